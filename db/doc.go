// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the store and creates its schema.

# Connecting

Open picks the driver from the configured database type:

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

PostgreSQL uses lib/pq. SQLite uses modernc.org/sqlite with foreign keys
on, a busy timeout, and immediate transactions, limited to a single
connection.

# Schema Creation

	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - election: name, description, status
  - candidate: election, name, position, party, tally
  - access_token: code, batch, consumed flag
  - token_grant: elections a token may vote in
  - voter: registered identities for the legacy path
  - ballot: one row per accepted vote

# Relationships

	election 1──* candidate
	access_token *──* election (via token_grant)
	ballot *──1 candidate
	ballot *──1 access_token or voter

ballot is unique per (token_id, election_id) and per (voter_id, election_id).
*/
package db
