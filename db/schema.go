// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/danielhkuo/tokenvote/cliparse"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dbType string) error {
	_, err := db.Exec(SchemaFor(dbType))
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SchemaFor returns the DDL for the given database type. Only the id column
// types differ between the two dialects.
func SchemaFor(dbType string) string {
	r := strings.NewReplacer(
		"{{id}}", "BIGSERIAL PRIMARY KEY",
		"{{ref}}", "BIGINT",
	)
	if dbType == cliparse.DatabaseSQLite {
		r = strings.NewReplacer(
			"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{ref}}", "INTEGER",
		)
	}
	return r.Replace(schema)
}

const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS election (
    id {{id}},
    name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'active', 'paused', 'ended')),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_election_status ON election(status);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id {{id}},
    election_id {{ref}} NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    position TEXT NOT NULL DEFAULT '',
    party TEXT NOT NULL DEFAULT '',
    tally {{ref}} NOT NULL DEFAULT 0 CHECK (tally >= 0),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidate_election_id ON candidate(election_id);

-- Access tokens
CREATE TABLE IF NOT EXISTS access_token (
    id {{id}},
    code TEXT NOT NULL UNIQUE,
    batch_id TEXT,
    consumed BOOLEAN NOT NULL DEFAULT FALSE,
    consumed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_access_token_batch_id ON access_token(batch_id);

-- Token election grants
CREATE TABLE IF NOT EXISTS token_grant (
    token_id {{ref}} NOT NULL REFERENCES access_token(id) ON DELETE CASCADE,
    election_id {{ref}} NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    PRIMARY KEY (token_id, election_id)
);

CREATE INDEX IF NOT EXISTS idx_token_grant_election_id ON token_grant(election_id);

-- Voter identities (legacy voting path)
CREATE TABLE IF NOT EXISTS voter (
    id {{id}},
    name TEXT NOT NULL UNIQUE,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    voted_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

-- Ballots (one row per accepted vote)
CREATE TABLE IF NOT EXISTS ballot (
    id {{id}},
    token_id {{ref}} REFERENCES access_token(id) ON DELETE SET NULL,
    voter_id {{ref}} REFERENCES voter(id) ON DELETE SET NULL,
    election_id {{ref}} NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    candidate_id {{ref}} NOT NULL REFERENCES candidate(id) ON DELETE CASCADE,
    cast_at TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ballot_token_election ON ballot(token_id, election_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_ballot_voter_election ON ballot(voter_id, election_id);
CREATE INDEX IF NOT EXISTS idx_ballot_candidate_id ON ballot(candidate_id);
`
