// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/tokenvote/middleware"
	"github.com/danielhkuo/tokenvote/models"
	"github.com/danielhkuo/tokenvote/voting"
)

// storeRetryAfter is suggested to clients when the store is unavailable
const storeRetryAfter = 1 * time.Second

// statusFor maps a voting error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, voting.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, voting.ErrAlreadyUsed):
		return http.StatusUnauthorized
	case errors.Is(err, voting.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, voting.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, voting.ErrConflict),
		errors.Is(err, voting.ErrAlreadyVoted),
		errors.Is(err, voting.ErrElectionNotActive):
		return http.StatusConflict
	case errors.Is(err, voting.ErrDuplicateElectionVote):
		return http.StatusUnprocessableEntity
	case errors.Is(err, voting.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// serviceError writes the response for an error returned by voting.Service
func serviceError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	resp := models.ErrorResponse{Message: err.Error()}

	var verr *voting.Error
	if errors.As(err, &verr) {
		resp.Message = verr.Msg
		if resp.Message == "" {
			resp.Message = verr.Kind.Error()
		}
		resp.ElectionID = verr.ElectionID
		resp.CandidateID = verr.CandidateID
	}

	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err)
		// Driver errors stay in the log
		resp.Message = "Database error"
		if status == http.StatusServiceUnavailable {
			middleware.RetryAfter(w, storeRetryAfter)
		}
	}

	middleware.ErrorDetail(w, status, resp)
}
