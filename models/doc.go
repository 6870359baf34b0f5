// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Election References

Requests may name an election by id or by name. ElectionRef accepts
either in JSON:

	{"count": 20, "election_ids": [1, "Treasurer", "3"]}

# Request Types

  - CreateElectionRequest, UpdateElectionStatusRequest
  - AddCandidateRequest, RegisterVoterRequest
  - GenerateTokensRequest, PushTokenRequest, TokenLoginRequest
  - CastVoteRequest: token or voter_id, candidate_id or candidate_ids

# Response Types

  - TokenBatchResponse: batch_id, election_ids, tokens
  - TokenLoginResponse: session plus granted elections and candidates
  - CastVoteResponse: elections_voted, ballot_count
  - ErrorResponse: error, message, offending election or candidate

# Domain Types

  - Election, Candidate, Voter
  - AccessToken, Grant, TokenBatch
  - ElectionResult: candidates in tally order with the total

# Constants

Election status values:

	StatusDraft  = "draft"
	StatusActive = "active"
	StatusPaused = "paused"
	StatusEnded  = "ended"
*/
package models
