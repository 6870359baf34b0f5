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

// Eligibility is what an unconsumed token may vote on
type Eligibility struct {
	Token      models.AccessToken
	Grants     []models.Grant
	Candidates []models.Candidate
}

// Resolve looks up a token by code and returns its granted elections and
// the candidates standing in them. It never consumes the token.
func (s *Service) Resolve(ctx context.Context, code string) (Eligibility, error) {
	code = auth.NormalizeCode(code)
	if code == "" {
		return Eligibility{}, newError(ErrValidation, "token code is required")
	}

	var out Eligibility
	err := s.withTx(ctx, "resolve token", func(tx *sql.Tx) error {
		tok, err := loadToken(ctx, tx, code)
		if err != nil {
			return err
		}
		if tok.Consumed {
			return newError(ErrAlreadyUsed, "token has already been used")
		}
		out.Token = tok

		out.Grants, err = queryGrants(ctx, tx, tok.ID)
		if err != nil {
			return err
		}

		electionIDs := lo.Map(out.Grants, func(g models.Grant, _ int) int64 { return g.ElectionID })
		out.Candidates, err = queryCandidates(ctx, tx, electionIDs, `ORDER BY election_id, id`)
		return err
	})
	if err != nil {
		return Eligibility{}, err
	}

	return out, nil
}

// loadToken fetches a token by normalized code
func loadToken(ctx context.Context, tx *sql.Tx, code string) (models.AccessToken, error) {
	var tok models.AccessToken
	var batchID sql.NullString
	var consumedAt sql.NullTime
	err := tx.QueryRowContext(ctx, `
		SELECT id, code, batch_id, consumed, consumed_at, created_at
		FROM access_token
		WHERE code = $1
	`, code).Scan(&tok.ID, &tok.Code, &batchID, &tok.Consumed, &consumedAt, &tok.CreatedAt)

	if err == sql.ErrNoRows {
		return models.AccessToken{}, newError(ErrNotFound, "token not found")
	}
	if err != nil {
		return models.AccessToken{}, storeError("load token", err)
	}

	if batchID.Valid {
		tok.BatchID = &batchID.String
	}
	if consumedAt.Valid {
		tok.ConsumedAt = &consumedAt.Time
	}
	return tok, nil
}

// queryGrants returns the elections a token was granted, by election id
func queryGrants(ctx context.Context, tx *sql.Tx, tokenID int64) ([]models.Grant, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT e.id, e.name, e.status
		FROM token_grant g
		JOIN election e ON e.id = g.election_id
		WHERE g.token_id = $1
		ORDER BY e.id
	`, tokenID)
	if err != nil {
		return nil, storeError("query grants", err)
	}
	defer rows.Close()

	grants := []models.Grant{}
	for rows.Next() {
		var g models.Grant
		if err := rows.Scan(&g.ElectionID, &g.Name, &g.Status); err != nil {
			return nil, storeError("scan grant", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query grants", err)
	}
	return grants, nil
}

// queryCandidates returns candidates of the given elections. A nil
// electionIDs means every election; an empty one means none.
func queryCandidates(ctx context.Context, tx *sql.Tx, electionIDs []int64, orderBy string) ([]models.Candidate, error) {
	candidates := []models.Candidate{}
	if electionIDs != nil && len(electionIDs) == 0 {
		return candidates, nil
	}

	query := `SELECT id, election_id, name, position, party, tally FROM candidate`
	var args []any
	if electionIDs != nil {
		query += ` WHERE election_id ` + inList(0, electionIDs)
		args = electionIDArgs(nil, electionIDs)
	}
	query += ` ` + orderBy

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("query candidates", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Position, &c.Party, &c.Tally); err != nil {
			return nil, storeError("scan candidate", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query candidates", err)
	}
	return candidates, nil
}
