// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the tokenvote API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - ElectionHandler: elections, candidates, voter registration
  - TokenHandler: token issuance, listing, revocation, login
  - VotingHandler: ballot casting
  - ResultsHandler: tallies

Handlers are created via constructor functions that accept *sql.DB and Config:

	tokenHandler := handlers.NewTokenHandler(db, cfg)

Token, voting and results handlers delegate to voting.Service; the
registry handlers run their SQL inline.

# Token Flow

	POST /tokens/generate → Generate (admin, returns codes once)
	POST /tokens/login    → Login (grants, candidates, session)
	POST /vote            → CastVote (consumes the token)

CastVote takes the code from the body, or a session from
"Authorization: Bearer", or a registered voter_id.

# Errors

Service errors map to statuses in errors.go:

	ErrValidation            → 400
	ErrAlreadyUsed           → 401
	ErrForbidden             → 403
	ErrNotFound              → 404
	ErrConflict              → 409
	ErrAlreadyVoted          → 409
	ErrElectionNotActive     → 409
	ErrDuplicateElectionVote → 422
	ErrStoreUnavailable      → 503 with Retry-After

Error bodies name the offending election or candidate when there is one.
*/
package handlers
