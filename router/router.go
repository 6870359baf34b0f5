// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/danielhkuo/tokenvote/cliparse"
	"github.com/danielhkuo/tokenvote/handlers"
	"github.com/danielhkuo/tokenvote/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(db, cfg)
	tokenHandler := handlers.NewTokenHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cfg)
	resultsHandler := handlers.NewResultsHandler(db, cfg)

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.AdminKey, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			middleware.RetryAfter(w, time.Second)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("DATABASE UNAVAILABLE"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election registry
	mux.HandleFunc("POST /elections", admin(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections", middleware.WithLogging(electionHandler.ListElections))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(electionHandler.GetElection))
	mux.HandleFunc("PUT /elections/{id}", admin(electionHandler.UpdateElection))
	mux.HandleFunc("DELETE /elections/{id}", admin(electionHandler.DeleteElection))
	mux.HandleFunc("PATCH /elections/{id}/status", admin(electionHandler.UpdateStatus))
	mux.HandleFunc("POST /elections/{id}/candidates", admin(electionHandler.AddCandidate))
	mux.HandleFunc("GET /elections/{id}/candidates", middleware.WithLogging(electionHandler.ListCandidates))
	mux.HandleFunc("PUT /candidates/{id}", admin(electionHandler.UpdateCandidate))
	mux.HandleFunc("DELETE /candidates/{id}", admin(electionHandler.DeleteCandidate))
	mux.HandleFunc("POST /voters", admin(electionHandler.RegisterVoter))

	// Tokens
	mux.HandleFunc("POST /tokens/generate", admin(tokenHandler.Generate))
	mux.HandleFunc("POST /tokens", admin(tokenHandler.Push))
	mux.HandleFunc("GET /tokens", admin(tokenHandler.List))
	mux.HandleFunc("DELETE /tokens/{id}", admin(tokenHandler.Revoke))
	mux.HandleFunc("POST /tokens/login", middleware.WithLogging(tokenHandler.Login))

	// Voting and results (public)
	mux.HandleFunc("POST /vote", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("GET /results", middleware.WithLogging(resultsHandler.GetResults))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tokenvote API v1"))
	})

	return mux
}
