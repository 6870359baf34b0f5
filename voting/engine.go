// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"cmp"
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/danielhkuo/tokenvote/auth"
	"github.com/danielhkuo/tokenvote/db"
	"github.com/danielhkuo/tokenvote/models"
)

// Authorizer is what a vote consumes: an access code or, on the legacy
// path, a voter identity. Exactly one must be set.
type Authorizer struct {
	Code    string
	VoterID int64
}

// Receipt describes an accepted vote
type Receipt struct {
	ElectionsVoted []int64
	BallotCount    int
}

type target struct {
	candidateID int64
	electionID  int64
}

// CastVote validates a ballot of candidate ids and applies it atomically:
// one tally increment per candidate, one ballot row per candidate, and the
// authorizer flipped to consumed. Any rejection leaves the store untouched.
//
// Two casts with the same authorizer cannot both succeed. The consumption
// flip is a conditional update whose affected-row count decides the winner;
// it runs before the tally increments in the same transaction, so the loser
// blocks on the authorizer row and then rolls back without touching tallies.
func (s *Service) CastVote(ctx context.Context, authz Authorizer, candidateIDs []int64) (Receipt, error) {
	authz.Code = auth.NormalizeCode(authz.Code)
	if (authz.Code == "") == (authz.VoterID == 0) {
		return Receipt{}, newError(ErrValidation, "exactly one of token or voter id is required")
	}
	if len(candidateIDs) == 0 {
		return Receipt{}, newError(ErrValidation, "at least one candidate id is required")
	}
	for _, id := range candidateIDs {
		if id <= 0 {
			return Receipt{}, candidateError(ErrValidation, id, "invalid candidate id %d", id)
		}
	}

	var receipt Receipt
	var tokenID int64
	err := s.withTx(ctx, "cast vote", func(tx *sql.Tx) error {
		// 1. Authorizer
		var granted map[int64]bool
		if authz.Code != "" {
			tok, err := loadToken(ctx, tx, authz.Code)
			if err != nil {
				return err
			}
			if tok.Consumed {
				return newError(ErrAlreadyUsed, "token has already been used")
			}
			tokenID = tok.ID

			grants, err := queryGrants(ctx, tx, tok.ID)
			if err != nil {
				return err
			}
			granted = lo.SliceToMap(grants, func(g models.Grant) (int64, bool) { return g.ElectionID, true })
		} else {
			if err := checkVoter(ctx, tx, authz.VoterID); err != nil {
				return err
			}
		}

		// 2. Targets, one per election
		targets, err := resolveTargets(ctx, tx, candidateIDs, granted)
		if err != nil {
			return err
		}

		// 3. Commit
		if s.beforeConsume != nil {
			if err := s.beforeConsume(ctx, tx); err != nil {
				return err
			}
		}
		now := s.now()
		if err := consumeAuthorizer(ctx, tx, authz, tokenID, now); err != nil {
			return err
		}
		if err := applyBallots(ctx, tx, targets, authz, tokenID, now); err != nil {
			return err
		}

		receipt = Receipt{
			ElectionsVoted: lo.Map(targets, func(t target, _ int) int64 { return t.electionID }),
			BallotCount:    len(targets),
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	if authz.Code != "" {
		slog.Info("vote cast", "token_id", tokenID, "elections", receipt.ElectionsVoted, "ballots", receipt.BallotCount)
	} else {
		slog.Info("vote cast", "voter_id", authz.VoterID, "elections", receipt.ElectionsVoted, "ballots", receipt.BallotCount)
	}
	return receipt, nil
}

func checkVoter(ctx context.Context, tx *sql.Tx, voterID int64) error {
	var hasVoted bool
	err := tx.QueryRowContext(ctx, `SELECT has_voted FROM voter WHERE id = $1`, voterID).Scan(&hasVoted)
	if err == sql.ErrNoRows {
		return newError(ErrNotFound, "voter %d", voterID)
	}
	if err != nil {
		return storeError("load voter", err)
	}
	if hasVoted {
		return newError(ErrAlreadyVoted, "voter %d has already voted", voterID)
	}
	return nil
}

// resolveTargets maps each candidate to its election, in input order. With
// a non-nil granted set, every election must be in it. Candidates are
// checked one at a time, so the first offending id decides the error.
func resolveTargets(ctx context.Context, tx *sql.Tx, candidateIDs []int64, granted map[int64]bool) ([]target, error) {
	ids := lo.Uniq(candidateIDs)
	rows, err := tx.QueryContext(ctx, `
		SELECT c.id, c.election_id, e.status
		FROM candidate c
		JOIN election e ON e.id = c.election_id
		WHERE c.id `+inList(0, ids), electionIDArgs(nil, ids)...)
	if err != nil {
		return nil, storeError("query candidates", err)
	}
	defer rows.Close()

	type info struct {
		electionID int64
		status     string
	}
	found := make(map[int64]info, len(ids))
	for rows.Next() {
		var id int64
		var in info
		if err := rows.Scan(&id, &in.electionID, &in.status); err != nil {
			return nil, storeError("scan candidate", err)
		}
		found[id] = in
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query candidates", err)
	}

	targets := make([]target, 0, len(candidateIDs))
	seen := make(map[int64]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		in, ok := found[id]
		if !ok {
			return nil, candidateError(ErrNotFound, id, "candidate %d", id)
		}
		if granted != nil && !granted[in.electionID] {
			e := candidateError(ErrForbidden, id, "candidate %d is not in your authorized elections", id)
			e.ElectionID = in.electionID
			return nil, e
		}
		if seen[in.electionID] {
			e := electionError(ErrDuplicateElectionVote, in.electionID,
				"candidate %d is a second choice in election %d", id, in.electionID)
			e.CandidateID = id
			return nil, e
		}
		seen[in.electionID] = true
		if in.status != models.StatusActive {
			e := electionError(ErrElectionNotActive, in.electionID, "election %d is %s", in.electionID, in.status)
			e.CandidateID = id
			return nil, e
		}
		targets = append(targets, target{candidateID: id, electionID: in.electionID})
	}
	return targets, nil
}

// consumeAuthorizer flips the consumed flag only if it is still unset.
// Zero affected rows means a concurrent vote got there first.
func consumeAuthorizer(ctx context.Context, tx *sql.Tx, authz Authorizer, tokenID int64, now time.Time) error {
	var res sql.Result
	var err error
	if authz.Code != "" {
		res, err = tx.ExecContext(ctx, `
			UPDATE access_token
			SET consumed = TRUE, consumed_at = $1
			WHERE id = $2 AND consumed = FALSE
		`, now, tokenID)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE voter
			SET has_voted = TRUE, voted_at = $1
			WHERE id = $2 AND has_voted = FALSE
		`, now, authz.VoterID)
	}
	if err != nil {
		return storeError("consume authorizer", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storeError("consume authorizer", err)
	}
	if n == 1 {
		return nil
	}
	if authz.Code != "" {
		return newError(ErrAlreadyUsed, "token has already been used")
	}
	return newError(ErrAlreadyVoted, "voter %d has already voted", authz.VoterID)
}

// applyBallots increments tallies in ascending candidate order, so that
// concurrent votes for different authorizers lock rows in the same order.
func applyBallots(ctx context.Context, tx *sql.Tx, targets []target, authz Authorizer, tokenID int64, now time.Time) error {
	ordered := slices.Clone(targets)
	slices.SortFunc(ordered, func(a, b target) int { return cmp.Compare(a.candidateID, b.candidateID) })

	var tokenRef, voterRef sql.NullInt64
	if authz.Code != "" {
		tokenRef = sql.NullInt64{Int64: tokenID, Valid: true}
	} else {
		voterRef = sql.NullInt64{Int64: authz.VoterID, Valid: true}
	}

	for _, t := range ordered {
		res, err := tx.ExecContext(ctx, `UPDATE candidate SET tally = tally + 1 WHERE id = $1`, t.candidateID)
		if err != nil {
			return storeError("increment tally", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return storeError("increment tally", err)
		} else if n != 1 {
			return candidateError(ErrNotFound, t.candidateID, "candidate %d", t.candidateID)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ballot (token_id, voter_id, election_id, candidate_id, cast_at)
			VALUES ($1, $2, $3, $4, $5)
		`, tokenRef, voterRef, t.electionID, t.candidateID, now)
		if db.IsUniqueViolation(err) {
			return electionError(ErrDuplicateElectionVote, t.electionID, "a ballot already exists for election %d", t.electionID)
		}
		if err != nil {
			return storeError("insert ballot", err)
		}
	}
	return nil
}
