// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadDotEnv optionally seeds the environment from a .env file, then
ParseFlags returns a Config struct with all settings:

	_ = cliparse.LoadDotEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: PostgreSQL or SQLite connection string (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - AdminKey: Key expected in the X-Admin-Key header (required)
  - SessionSecret: HMAC secret for voter sessions (required)
  - SessionTTL: Voter session lifetime (default: 30m)
  - CodeLength: Digits per generated token code (default: 6)
  - IssueRetries: Code generation attempts per token (default: 10)
  - MaxBatchSize: Largest batch accepted by /tokens/generate (default: 1000)

# CLI Flags

	-p                Server port
	-d                Database URL
	-t                Database type
	--admin-key       Admin key
	--session-secret  Session secret
	--session-ttl     Session lifetime
	--code-length     Token code length
	--issue-retries   Attempts per token
	--max-batch       Max batch size

# Environment Variables

Flags fall back to environment variables:

	PORT                → -p
	DATABASE_URL        → -d
	DATABASE_TYPE       → -t
	ADMIN_KEY           → --admin-key
	SESSION_SECRET      → --session-secret
	SESSION_TTL         → --session-ttl
	TOKEN_CODE_LENGTH   → --code-length
	TOKEN_ISSUE_RETRIES → --issue-retries
	MAX_BATCH_SIZE      → --max-batch

CLI flags take precedence over environment variables, and variables already
present in the environment take precedence over .env entries.

There are no built-in secrets: ParseFlags fails if ADMIN_KEY or
SESSION_SECRET is missing.
*/
package cliparse
