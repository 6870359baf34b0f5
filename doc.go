// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the tokenvote API server.

tokenvote runs one-time-token elections. Administrators create elections
and candidates, then issue batches of short numeric codes, each granted a
set of elections. A voter redeems a code once, picking at most one
candidate per granted election; the code is consumed atomically with the
tally increments.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	ADMIN_KEY=... SESSION_SECRET=... DATABASE_URL=votes.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

A .env file in the working directory is loaded first; variables already
present in the environment win.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path or PostgreSQL connection string
  - ADMIN_KEY (--admin-key): Value expected in the X-Admin-Key header
  - SESSION_SECRET (--session-secret): HMAC key for voter sessions

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SESSION_TTL (--session-ttl): Voter session lifetime (default: 30m)
  - TOKEN_CODE_LENGTH (--code-length): Digits per code (default: 6)
  - TOKEN_ISSUE_RETRIES (--issue-retries): Attempts per code (default: 10)
  - MAX_BATCH_SIZE (--max-batch): Largest batch (default: 1000)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - voting: Token issuance, eligibility, vote transactions and tallies
  - handlers: HTTP request handlers (elections, tokens, voting, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, admin key check, JSON helpers
  - models: Request/response types
  - auth: Code generation and voter sessions
  - db: Connection setup and schema creation
  - cliparse: Configuration parsing
  - cmd/votectl: Offline administration CLI

See package documentation for each component.
*/
package main
