// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/tokenvote/cliparse"
	"github.com/danielhkuo/tokenvote/middleware"
	"github.com/danielhkuo/tokenvote/voting"
)

type ResultsHandler struct {
	svc *voting.Service
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{svc: voting.NewService(db, voting.OptionsFromConfig(cfg))}
}

// GetResults handles GET /results
// With ?token= only the elections granted to that token are returned.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("token") {
		results, err := h.svc.TallyForToken(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			serviceError(w, "tally token elections", err)
			return
		}
		middleware.JSONResponse(w, http.StatusOK, results)
		return
	}

	results, err := h.svc.TallyByElection(r.Context())
	if err != nil {
		serviceError(w, "tally elections", err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, results)
}
