// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the tokenvote API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health:

	GET /health

Registry (admin routes require X-Admin-Key):

	POST  /elections                 - Create election (admin)
	GET   /elections                 - List elections
	PATCH /elections/{id}/status     - Change status (admin)
	POST  /elections/{id}/candidates - Add candidate (admin)
	GET   /elections/{id}/candidates - List candidates
	POST  /voters                    - Register voter identity (admin)

Tokens:

	POST   /tokens/generate - Issue a batch (admin)
	POST   /tokens          - Push a chosen code (admin)
	GET    /tokens          - List by batch, ?election_id= (admin)
	DELETE /tokens/{id}     - Revoke (admin)
	POST   /tokens/login    - Resolve a code and start a session

Voting and results:

	POST /vote    - Cast a ballot
	GET  /results - Tallies, ?token= to restrict to its elections
*/
package router
