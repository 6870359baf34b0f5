// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"time"

	"github.com/samber/lo"

	"github.com/danielhkuo/tokenvote/auth"
	"github.com/danielhkuo/tokenvote/cliparse"
	"github.com/danielhkuo/tokenvote/db"
	"github.com/danielhkuo/tokenvote/models"
)

// Options tune token issuance
type Options struct {
	CodeLength   int
	IssueRetries int
	MaxBatchSize int
}

// OptionsFromConfig picks the issuance settings out of the server config
func OptionsFromConfig(cfg cliparse.Config) Options {
	return Options{
		CodeLength:   cfg.CodeLength,
		IssueRetries: cfg.IssueRetries,
		MaxBatchSize: cfg.MaxBatchSize,
	}
}

// Service runs token issuance, eligibility, vote casting and result
// aggregation against the relational store. Every call runs in its own
// transaction; Service holds no mutable state and is safe for concurrent use.
type Service struct {
	db   *sql.DB
	opts Options
	now  func() time.Time

	// generate is swapped in tests to force code collisions
	generate func(length int) (string, error)

	// beforeConsume runs inside CastVote after every check has passed and
	// before the authorizer is flipped. Tests use it to land a competing
	// vote in that window.
	beforeConsume func(ctx context.Context, tx *sql.Tx) error
}

func NewService(conn *sql.DB, opts Options) *Service {
	if opts.CodeLength == 0 {
		opts.CodeLength = 6
	}
	if opts.IssueRetries == 0 {
		opts.IssueRetries = 10
	}
	if opts.MaxBatchSize == 0 {
		opts.MaxBatchSize = 1000
	}
	return &Service{
		db:       conn,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		generate: auth.GenerateCode,
	}
}

// withTx runs fn in a transaction, committing only if fn succeeds
func (s *Service) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError(op+": begin", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError(op+": commit", err)
	}
	return nil
}

// resolveElections canonicalizes election references to surrogate ids,
// dropping repeats and keeping first-seen order
func resolveElections(ctx context.Context, tx *sql.Tx, refs []models.ElectionRef) ([]int64, error) {
	if len(refs) == 0 {
		return nil, newError(ErrValidation, "at least one election is required")
	}

	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		var id int64
		var err error
		switch {
		case ref.ID > 0:
			err = tx.QueryRowContext(ctx, `SELECT id FROM election WHERE id = $1`, ref.ID).Scan(&id)
		case ref.Name != "":
			err = tx.QueryRowContext(ctx, `SELECT id FROM election WHERE name = $1`, ref.Name).Scan(&id)
		default:
			return nil, newError(ErrValidation, "empty election reference")
		}

		if err == sql.ErrNoRows {
			e := newError(ErrNotFound, "election %s", ref)
			e.ElectionID = ref.ID
			return nil, e
		}
		if err != nil {
			return nil, storeError("resolve election", err)
		}
		ids = append(ids, id)
	}

	return lo.Uniq(ids), nil
}

// electionIDArgs turns ids into query arguments following any leading args
func electionIDArgs(lead []any, ids []int64) []any {
	return append(lead, lo.Map(ids, func(id int64, _ int) any { return id })...)
}

// inList renders "IN ($n, ...)" for ids placed after offset leading args
func inList(offset int, ids []int64) string {
	return "IN (" + db.Placeholders(offset+1, len(ids)) + ")"
}
