// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credential generation and validation utilities.

# Access Codes

Access codes are random numeric strings drawn from crypto/rand:

	code, err := auth.GenerateCode(6)  // e.g. "482913"

Codes supplied by callers are canonicalized before any lookup:

	code = auth.NormalizeCode("  abc123 ")  // "ABC123"

Uniqueness is not checked here; the voting package probes the store.

# Batch IDs

Tokens issued together share a short uuid-derived batch id:

	batchID := auth.NewBatchID()  // e.g. "B-3F9A12C0"

# Admin Keys

The admin key is configuration, never derived or stored:

	err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), cfg.AdminKey)

# Voter Sessions

A successful token login returns an HS256 JWT whose subject is the access
code. The session lets a client cast its vote without resending the code:

	signer := auth.NewSessionSigner(cfg.SessionSecret, cfg.SessionTTL)
	session, expiresAt, err := signer.Issue(code)
	code, err := signer.Verify(session)

A session never outlives its token: the vote path still checks the token.
*/
package auth
