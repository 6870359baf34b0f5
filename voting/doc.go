// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting implements token issuance, eligibility resolution, vote
casting and result aggregation on top of the relational store.

# Service

All operations hang off a Service built from a *sql.DB:

	svc := voting.NewService(conn, voting.OptionsFromConfig(cfg))

Each call runs in its own transaction and Service keeps no state between
calls, so one instance serves every request.

# Tokens

An access token is a short code granted one or more elections:

	batch, err := svc.IssueBatch(ctx, 50, []models.ElectionRef{{ID: 1}, {Name: "Treasurer"}})
	tok, err := svc.PushToken(ctx, "AB12CD", refs)
	err = svc.Revoke(ctx, tok.ID)

Generated codes are inserted with ON CONFLICT DO NOTHING; a collision draws
a new code, up to Options.IssueRetries times.

# Casting

	receipt, err := svc.CastVote(ctx, voting.Authorizer{Code: "482913"}, []int64{4, 9})

A ballot names at most one candidate per election, every candidate must
stand in an active election the token was granted, and the token is
consumed by the same transaction that increments the tallies. Of two
concurrent casts with one token exactly one succeeds; the other returns
ErrAlreadyUsed.

Authorizer{VoterID: id} is the registered-voter path. It skips grants but
is otherwise held to the same rules.

# Errors

Failures are *Error values wrapping one of the Err* kinds:

	var verr *voting.Error
	if errors.As(err, &verr) && errors.Is(err, voting.ErrForbidden) {
		log.Printf("candidate %d outside granted elections", verr.CandidateID)
	}

ErrStoreUnavailable wraps the driver error and is the only retryable kind.
*/
package voting
