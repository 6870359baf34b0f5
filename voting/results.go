// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"

	"github.com/samber/lo"

	"github.com/danielhkuo/tokenvote/auth"
	"github.com/danielhkuo/tokenvote/models"
)

// TallyByElection returns every election with its candidates ranked by
// tally and the election's total
func (s *Service) TallyByElection(ctx context.Context) ([]models.ElectionResult, error) {
	var results []models.ElectionResult
	err := s.withTx(ctx, "tally elections", func(tx *sql.Tx) error {
		var err error
		results, err = tally(ctx, tx, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// TallyForToken is TallyByElection restricted to the elections a token was
// granted. Consumed tokens are accepted.
func (s *Service) TallyForToken(ctx context.Context, code string) ([]models.ElectionResult, error) {
	code = auth.NormalizeCode(code)
	if code == "" {
		return nil, newError(ErrValidation, "token code is required")
	}

	var results []models.ElectionResult
	err := s.withTx(ctx, "tally token elections", func(tx *sql.Tx) error {
		tok, err := loadToken(ctx, tx, code)
		if err != nil {
			return err
		}
		grants, err := queryGrants(ctx, tx, tok.ID)
		if err != nil {
			return err
		}

		ids := lo.Map(grants, func(g models.Grant, _ int) int64 { return g.ElectionID })
		results, err = tally(ctx, tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// tally builds results for the given elections, or all of them when
// electionIDs is nil
func tally(ctx context.Context, tx *sql.Tx, electionIDs []int64) ([]models.ElectionResult, error) {
	results := []models.ElectionResult{}
	if electionIDs != nil && len(electionIDs) == 0 {
		return results, nil
	}

	elections, err := queryElections(ctx, tx, electionIDs)
	if err != nil {
		return nil, err
	}
	candidates, err := queryCandidates(ctx, tx, electionIDs, `ORDER BY tally DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	byElection := lo.GroupBy(candidates, func(c models.Candidate) int64 { return c.ElectionID })

	for _, e := range elections {
		ranked := byElection[e.ID]
		if ranked == nil {
			ranked = []models.Candidate{}
		}
		results = append(results, models.ElectionResult{
			Election:   e,
			Candidates: ranked,
			TotalVotes: lo.SumBy(ranked, func(c models.Candidate) int64 { return c.Tally }),
		})
	}
	return results, nil
}

func queryElections(ctx context.Context, tx *sql.Tx, electionIDs []int64) ([]models.Election, error) {
	query := `SELECT id, name, description, status, created_at FROM election`
	var args []any
	if electionIDs != nil {
		query += ` WHERE id ` + inList(0, electionIDs)
		args = electionIDArgs(nil, electionIDs)
	}
	query += ` ORDER BY id`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("query elections", err)
	}
	defer rows.Close()

	var elections []models.Election
	for rows.Next() {
		var e models.Election
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Status, &e.CreatedAt); err != nil {
			return nil, storeError("scan election", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query elections", err)
	}
	return elections, nil
}
