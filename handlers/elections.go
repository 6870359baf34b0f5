// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/tokenvote/cliparse"
	"github.com/danielhkuo/tokenvote/db"
	"github.com/danielhkuo/tokenvote/middleware"
	"github.com/danielhkuo/tokenvote/models"
)

// ElectionHandler serves the election and candidate registry and voter
// registration
type ElectionHandler struct {
	db *sql.DB
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{db: db}
}

// pathID parses a positive integer path parameter
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Status == "" {
		req.Status = models.StatusDraft
	}
	if !models.ValidStatus(req.Status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be draft, active, paused, or ended")
		return
	}

	election := models.Election{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		CreatedAt:   time.Now().UTC(),
	}
	err := h.db.QueryRow(`
		INSERT INTO election (name, description, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, election.Name, election.Description, election.Status, election.CreatedAt).Scan(&election.ID)

	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "An election with this name already exists")
		return
	}
	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", election.ID, "name", election.Name, "status", election.Status)

	middleware.JSONResponse(w, http.StatusCreated, election)
}

// ListElections handles GET /elections
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, description, status, created_at
		FROM election
		ORDER BY id
	`)
	if err != nil {
		slog.Error("failed to query elections", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	elections := []models.Election{}
	for rows.Next() {
		var e models.Election
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Status, &e.CreatedAt); err != nil {
			slog.Error("failed to scan election", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate elections", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, elections)
}

// GetElection handles GET /elections/{id}
// The path accepts a numeric id or an exact election name.
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	ref := models.ParseElectionRef(r.PathValue("id"))
	if ref.ID <= 0 && ref.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id or name is required")
		return
	}

	query := `SELECT id, name, description, status, created_at FROM election WHERE `
	var arg any
	if ref.ID > 0 {
		query += `id = $1`
		arg = ref.ID
	} else {
		query += `name = $1`
		arg = ref.Name
	}

	var e models.Election
	err := h.db.QueryRow(query, arg).Scan(&e.ID, &e.Name, &e.Description, &e.Status, &e.CreatedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, e)
}

// UpdateElection handles PUT /elections/{id}
func (h *ElectionHandler) UpdateElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id must be a positive integer")
		return
	}

	var req models.UpdateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == nil && req.Description == nil && req.Status == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "No fields to update")
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		req.Name = &name
	}
	if req.Status != nil && !models.ValidStatus(*req.Status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be draft, active, paused, or ended")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var e models.Election
	err = tx.QueryRow(`
		SELECT id, name, description, status, created_at
		FROM election WHERE id = $1
	`, electionID).Scan(&e.ID, &e.Name, &e.Description, &e.Status, &e.CreatedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if req.Name != nil {
		e.Name = *req.Name
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Status != nil {
		e.Status = *req.Status
	}

	_, err = tx.Exec(`
		UPDATE election SET name = $1, description = $2, status = $3
		WHERE id = $4
	`, e.Name, e.Description, e.Status, e.ID)
	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "An election with this name already exists")
		return
	}
	if err != nil {
		slog.Error("failed to update election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit election update", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("election updated", "election_id", e.ID, "status", e.Status)

	middleware.JSONResponse(w, http.StatusOK, e)
}

// DeleteElection handles DELETE /elections/{id}
//
// An election that has been granted to a token or has recorded ballots is
// kept: deleting it would shrink issued grant sets and drop audit rows.
func (h *ElectionHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id must be a positive integer")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var grants, ballots int
	err = tx.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM token_grant WHERE election_id = e.id),
			(SELECT COUNT(*) FROM ballot WHERE election_id = e.id)
		FROM election e
		WHERE e.id = $1
	`, electionID).Scan(&grants, &ballots)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election usage", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if grants > 0 || ballots > 0 {
		middleware.ErrorDetail(w, http.StatusConflict, models.ErrorResponse{
			Message:    "Election has issued tokens or recorded votes",
			ElectionID: electionID,
		})
		return
	}

	if _, err := tx.Exec(`DELETE FROM election WHERE id = $1`, electionID); err != nil {
		slog.Error("failed to delete election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit election delete", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("election deleted", "election_id", electionID)

	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PATCH /elections/{id}/status
func (h *ElectionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id must be a positive integer")
		return
	}

	var req models.UpdateElectionStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !models.ValidStatus(req.Status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be draft, active, paused, or ended")
		return
	}

	result, err := h.db.Exec(`UPDATE election SET status = $1 WHERE id = $2`, req.Status, electionID)
	if err != nil {
		slog.Error("failed to update election status", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}

	slog.Info("election status changed", "election_id", electionID, "status", req.Status)

	middleware.JSONResponse(w, http.StatusOK, map[string]any{
		"election_id": electionID,
		"status":      req.Status,
	})
}

// AddCandidate handles POST /elections/{id}/candidates
func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id must be a positive integer")
		return
	}

	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	// Check election exists
	var exists int
	err := h.db.QueryRow(`SELECT 1 FROM election WHERE id = $1`, electionID).Scan(&exists)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	candidate := models.Candidate{
		ElectionID: electionID,
		Name:       req.Name,
		Position:   req.Position,
		Party:      req.Party,
	}
	err = h.db.QueryRow(`
		INSERT INTO candidate (election_id, name, position, party, tally, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING id
	`, electionID, candidate.Name, candidate.Position, candidate.Party, time.Now().UTC()).Scan(&candidate.ID)
	if err != nil {
		slog.Error("failed to insert candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add candidate")
		return
	}

	slog.Info("candidate added", "election_id", electionID, "candidate_id", candidate.ID)

	middleware.JSONResponse(w, http.StatusCreated, candidate)
}

// ListCandidates handles GET /elections/{id}/candidates
func (h *ElectionHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id must be a positive integer")
		return
	}

	var exists int
	err := h.db.QueryRow(`SELECT 1 FROM election WHERE id = $1`, electionID).Scan(&exists)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT id, election_id, name, position, party, tally
		FROM candidate
		WHERE election_id = $1
		ORDER BY id
	`, electionID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Position, &c.Party, &c.Tally); err != nil {
			slog.Error("failed to scan candidate", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, candidates)
}

// UpdateCandidate handles PUT /candidates/{id}
func (h *ElectionHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate id must be a positive integer")
		return
	}

	var req models.UpdateCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	var c models.Candidate
	err := h.db.QueryRow(`
		UPDATE candidate SET name = $1, position = $2, party = $3
		WHERE id = $4
		RETURNING id, election_id, name, position, party, tally
	`, req.Name, req.Position, req.Party, candidateID).Scan(&c.ID, &c.ElectionID, &c.Name, &c.Position, &c.Party, &c.Tally)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}
	if err != nil {
		slog.Error("failed to update candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("candidate updated", "candidate_id", c.ID)

	middleware.JSONResponse(w, http.StatusOK, c)
}

// DeleteCandidate handles DELETE /candidates/{id}
// Candidates that have received votes are kept so tallies match ballots.
func (h *ElectionHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate id must be a positive integer")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var tally int64
	err = tx.QueryRow(`SELECT tally FROM candidate WHERE id = $1`, candidateID).Scan(&tally)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}
	if err != nil {
		slog.Error("failed to query candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if tally > 0 {
		middleware.ErrorDetail(w, http.StatusConflict, models.ErrorResponse{
			Message:     "Candidate has recorded votes",
			CandidateID: candidateID,
		})
		return
	}

	if _, err := tx.Exec(`DELETE FROM candidate WHERE id = $1`, candidateID); err != nil {
		slog.Error("failed to delete candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit candidate delete", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("candidate deleted", "candidate_id", candidateID)

	w.WriteHeader(http.StatusNoContent)
}

// RegisterVoter handles POST /voters
func (h *ElectionHandler) RegisterVoter(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterVoterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	voter := models.Voter{Name: req.Name}
	err := h.db.QueryRow(`
		INSERT INTO voter (name, has_voted, created_at)
		VALUES ($1, FALSE, $2)
		RETURNING id
	`, voter.Name, time.Now().UTC()).Scan(&voter.ID)

	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "A voter with this name already exists")
		return
	}
	if err != nil {
		slog.Error("failed to insert voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
		return
	}

	slog.Info("voter registered", "voter_id", voter.ID)

	middleware.JSONResponse(w, http.StatusCreated, voter)
}
