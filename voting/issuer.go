// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/danielhkuo/tokenvote/auth"
	"github.com/danielhkuo/tokenvote/models"
)

// IssueBatch creates count tokens with fresh codes, each granted every
// referenced election, all sharing one batch id. The batch is written in a
// single transaction: either every token lands or none does.
func (s *Service) IssueBatch(ctx context.Context, count int, refs []models.ElectionRef) (models.TokenBatchResponse, error) {
	if count < 1 || count > s.opts.MaxBatchSize {
		return models.TokenBatchResponse{}, newError(ErrValidation, "count must be between 1 and %d", s.opts.MaxBatchSize)
	}

	batch := models.TokenBatchResponse{BatchID: auth.NewBatchID()}

	err := s.withTx(ctx, "issue batch", func(tx *sql.Tx) error {
		electionIDs, err := resolveElections(ctx, tx, refs)
		if err != nil {
			return err
		}
		batch.ElectionIDs = electionIDs

		now := s.now()
		batch.Tokens = make([]models.AccessToken, 0, count)
		for i := 0; i < count; i++ {
			tok, err := s.insertFreshToken(ctx, tx, batch.BatchID, now)
			if err != nil {
				return err
			}
			if err := insertGrants(ctx, tx, tok.ID, electionIDs); err != nil {
				return err
			}
			batch.Tokens = append(batch.Tokens, tok)
		}
		return nil
	})
	if err != nil {
		return models.TokenBatchResponse{}, err
	}

	slog.Info("token batch issued", "batch_id", batch.BatchID, "count", count, "elections", batch.ElectionIDs)
	return batch, nil
}

// insertFreshToken generates codes until one is not already taken. The
// insert itself is the uniqueness probe, so concurrent issuers never emit
// the same code.
func (s *Service) insertFreshToken(ctx context.Context, tx *sql.Tx, batchID string, now time.Time) (models.AccessToken, error) {
	for attempt := 0; attempt < s.opts.IssueRetries; attempt++ {
		code, err := s.generate(s.opts.CodeLength)
		if err != nil {
			return models.AccessToken{}, err
		}

		id, ok, err := insertToken(ctx, tx, code, &batchID, now)
		if err != nil {
			return models.AccessToken{}, err
		}
		if ok {
			return models.AccessToken{ID: id, Code: code, BatchID: &batchID, CreatedAt: now}, nil
		}
	}

	return models.AccessToken{}, newError(ErrConflict, "no unused code found after %d attempts", s.opts.IssueRetries)
}

// PushToken admits a caller-chosen code granted the referenced elections
func (s *Service) PushToken(ctx context.Context, code string, refs []models.ElectionRef) (models.AccessToken, error) {
	code = auth.NormalizeCode(code)
	if code == "" {
		return models.AccessToken{}, newError(ErrValidation, "token code is required")
	}

	var tok models.AccessToken
	err := s.withTx(ctx, "push token", func(tx *sql.Tx) error {
		electionIDs, err := resolveElections(ctx, tx, refs)
		if err != nil {
			return err
		}

		now := s.now()
		id, ok, err := insertToken(ctx, tx, code, nil, now)
		if err != nil {
			return err
		}
		if !ok {
			return newError(ErrConflict, "token code already exists")
		}
		tok = models.AccessToken{ID: id, Code: code, CreatedAt: now}

		return insertGrants(ctx, tx, id, electionIDs)
	})
	if err != nil {
		return models.AccessToken{}, err
	}

	slog.Info("token pushed", "token_id", tok.ID, "code", auth.MaskCode(code))
	return tok, nil
}

// Revoke deletes a token and its grants. Tallies from a vote already cast
// with the token are kept; its ballots lose the token reference.
func (s *Service) Revoke(ctx context.Context, tokenID int64) error {
	err := s.withTx(ctx, "revoke token", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM token_grant WHERE token_id = $1`, tokenID); err != nil {
			return storeError("delete grants", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE ballot SET token_id = NULL WHERE token_id = $1`, tokenID); err != nil {
			return storeError("detach ballots", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM access_token WHERE id = $1`, tokenID)
		if err != nil {
			return storeError("delete token", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storeError("delete token", err)
		}
		if n == 0 {
			return newError(ErrNotFound, "token %d", tokenID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("token revoked", "token_id", tokenID)
	return nil
}

// ListTokens returns tokens grouped by batch, newest first. Tokens pushed
// one at a time have no batch and form a group of their own. A non-zero
// electionID keeps only tokens granted that election.
func (s *Service) ListTokens(ctx context.Context, electionID int64) ([]models.TokenBatch, error) {
	batches := []models.TokenBatch{}

	err := s.withTx(ctx, "list tokens", func(tx *sql.Tx) error {
		query := `
			SELECT id, code, batch_id, consumed, consumed_at, created_at
			FROM access_token`
		args := []any{}
		if electionID != 0 {
			query += `
			WHERE EXISTS (
				SELECT 1 FROM token_grant g
				WHERE g.token_id = access_token.id AND g.election_id = $1
			)`
			args = append(args, electionID)
		}
		query += ` ORDER BY id DESC`

		tokens, err := queryTokens(ctx, tx, query, args...)
		if err != nil {
			return err
		}

		grants, err := queryAllGrants(ctx, tx)
		if err != nil {
			return err
		}
		grantsByToken := lo.GroupBy(grants, func(g tokenGrant) int64 { return g.tokenID })

		index := map[string]int{}
		for _, tok := range tokens {
			elections := lo.Map(grantsByToken[tok.ID], func(g tokenGrant, _ int) models.Grant { return g.grant })

			if tok.BatchID == nil {
				batches = append(batches, models.TokenBatch{Elections: elections, Tokens: []models.AccessToken{tok}})
				continue
			}
			i, ok := index[*tok.BatchID]
			if !ok {
				i = len(batches)
				index[*tok.BatchID] = i
				batches = append(batches, models.TokenBatch{BatchID: *tok.BatchID, Elections: elections})
			}
			batches[i].Tokens = append(batches[i].Tokens, tok)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return batches, nil
}

// insertToken reports ok=false when the code is already taken
func insertToken(ctx context.Context, tx *sql.Tx, code string, batchID *string, now time.Time) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO access_token (code, batch_id, consumed, created_at)
		VALUES ($1, $2, FALSE, $3)
		ON CONFLICT (code) DO NOTHING
		RETURNING id
	`, code, batchID, now).Scan(&id)

	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storeError("insert token", err)
	}
	return id, true, nil
}

func insertGrants(ctx context.Context, tx *sql.Tx, tokenID int64, electionIDs []int64) error {
	for _, electionID := range electionIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO token_grant (token_id, election_id)
			VALUES ($1, $2)
		`, tokenID, electionID)
		if err != nil {
			return storeError("insert grant", err)
		}
	}
	return nil
}

type tokenGrant struct {
	tokenID int64
	grant   models.Grant
}

func queryAllGrants(ctx context.Context, tx *sql.Tx) ([]tokenGrant, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT g.token_id, e.id, e.name, e.status
		FROM token_grant g
		JOIN election e ON e.id = g.election_id
		ORDER BY g.token_id, e.id
	`)
	if err != nil {
		return nil, storeError("query grants", err)
	}
	defer rows.Close()

	var grants []tokenGrant
	for rows.Next() {
		var g tokenGrant
		if err := rows.Scan(&g.tokenID, &g.grant.ElectionID, &g.grant.Name, &g.grant.Status); err != nil {
			return nil, storeError("scan grant", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query grants", err)
	}
	return grants, nil
}

func queryTokens(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]models.AccessToken, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("query tokens", err)
	}
	defer rows.Close()

	var tokens []models.AccessToken
	for rows.Next() {
		var tok models.AccessToken
		var batchID sql.NullString
		var consumedAt sql.NullTime
		if err := rows.Scan(&tok.ID, &tok.Code, &batchID, &tok.Consumed, &consumedAt, &tok.CreatedAt); err != nil {
			return nil, storeError("scan token", err)
		}
		if batchID.Valid {
			tok.BatchID = &batchID.String
		}
		if consumedAt.Valid {
			tok.ConsumedAt = &consumedAt.Time
		}
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query tokens", err)
	}
	return tokens, nil
}
