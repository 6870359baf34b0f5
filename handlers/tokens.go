// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/tokenvote/auth"
	"github.com/danielhkuo/tokenvote/cliparse"
	"github.com/danielhkuo/tokenvote/middleware"
	"github.com/danielhkuo/tokenvote/models"
	"github.com/danielhkuo/tokenvote/voting"
)

// TokenHandler serves token issuance, revocation and voter login
type TokenHandler struct {
	svc      *voting.Service
	sessions *auth.SessionSigner
}

func NewTokenHandler(db *sql.DB, cfg cliparse.Config) *TokenHandler {
	return &TokenHandler{
		svc:      voting.NewService(db, voting.OptionsFromConfig(cfg)),
		sessions: auth.NewSessionSigner(cfg.SessionSecret, cfg.SessionTTL),
	}
}

// Generate handles POST /tokens/generate
func (h *TokenHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateTokensRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	batch, err := h.svc.IssueBatch(r.Context(), req.Count, req.ElectionIDs)
	if err != nil {
		serviceError(w, "issue batch", err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, batch)
}

// Push handles POST /tokens
func (h *TokenHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req models.PushTokenRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	tok, err := h.svc.PushToken(r.Context(), req.Token, req.ElectionIDs)
	if err != nil {
		serviceError(w, "push token", err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, tok)
}

// List handles GET /tokens?election_id=
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	var electionID int64
	if raw := r.URL.Query().Get("election_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "election_id must be a positive integer")
			return
		}
		electionID = id
	}

	batches, err := h.svc.ListTokens(r.Context(), electionID)
	if err != nil {
		serviceError(w, "list tokens", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, batches)
}

// Revoke handles DELETE /tokens/{id}
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "token id must be a positive integer")
		return
	}

	if err := h.svc.Revoke(r.Context(), tokenID); err != nil {
		serviceError(w, "revoke token", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Login handles POST /tokens/login. It resolves the token without
// consuming it and returns a voter session for the ballot screen.
func (h *TokenHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.TokenLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	elig, err := h.svc.Resolve(r.Context(), req.Token)
	if err != nil {
		serviceError(w, "resolve token", err)
		return
	}

	session, expiresAt, err := h.sessions.Issue(elig.Token.Code)
	if err != nil {
		slog.Error("failed to issue session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	slog.Info("token login", "token_id", elig.Token.ID, "code", auth.MaskCode(elig.Token.Code), "elections", len(elig.Grants))

	middleware.JSONResponse(w, http.StatusOK, models.TokenLoginResponse{
		Token:      elig.Token.Code,
		Session:    session,
		ExpiresAt:  expiresAt,
		Elections:  elig.Grants,
		Candidates: elig.Candidates,
	})
}
