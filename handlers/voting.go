// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/danielhkuo/tokenvote/auth"
	"github.com/danielhkuo/tokenvote/cliparse"
	"github.com/danielhkuo/tokenvote/middleware"
	"github.com/danielhkuo/tokenvote/models"
	"github.com/danielhkuo/tokenvote/voting"
)

type VotingHandler struct {
	svc      *voting.Service
	sessions *auth.SessionSigner
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{
		svc:      voting.NewService(db, voting.OptionsFromConfig(cfg)),
		sessions: auth.NewSessionSigner(cfg.SessionSecret, cfg.SessionTTL),
	}
}

// CastVote handles POST /vote
//
// The vote is authorized by the token in the body, else by a voter session
// in "Authorization: Bearer", else by voter_id.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	authz := voting.Authorizer{Code: req.Token, VoterID: req.VoterID}
	if authz.Code == "" && authz.VoterID == 0 {
		if session, ok := bearerToken(r); ok {
			code, err := h.sessions.Verify(session)
			if err != nil {
				middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}
			authz.Code = code
		}
	}

	// candidate_ids wins; candidate_id is the single-choice shorthand
	candidateIDs := req.CandidateIDs
	if len(candidateIDs) == 0 && req.CandidateID != 0 {
		candidateIDs = []int64{req.CandidateID}
	}

	receipt, err := h.svc.CastVote(r.Context(), authz, candidateIDs)
	if err != nil {
		serviceError(w, "cast vote", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CastVoteResponse{
		ElectionsVoted: receipt.ElectionsVoted,
		BallotCount:    receipt.BallotCount,
		Message:        "Vote recorded",
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
