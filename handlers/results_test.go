// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/tokenvote/models"
	"github.com/danielhkuo/tokenvote/testutil"
)

func TestGetResults(t *testing.T) {
	f := newVoteFixture(t)
	handler := NewResultsHandler(f.db, testutil.GetTestConfig())

	testutil.CreateTestToken(t, f.db, "SECOND", f.e1)
	for _, v := range []models.CastVoteRequest{
		{Token: "482913", CandidateIDs: []int64{f.c3, f.c2}},
		{Token: "SECOND", CandidateIDs: []int64{f.c3}},
	} {
		w := httptest.NewRecorder()
		f.handler.CastVote(w, testutil.MakeRequest("POST", "/vote", v, nil))
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	w := httptest.NewRecorder()
	handler.GetResults(w, testutil.MakeRequest("GET", "/results", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var results []models.ElectionResult
	testutil.AssertJSON(t, w, &results)
	if len(results) != 4 {
		t.Fatalf("Expected 4 elections, got %d", len(results))
	}

	council := results[0]
	if council.Election.ID != f.e1 || council.TotalVotes != 2 {
		t.Errorf("Expected council with 2 votes, got %+v", council)
	}
	if council.Candidates[0].ID != f.c3 || council.Candidates[0].Tally != 2 {
		t.Errorf("Expected Carol leading with 2, got %+v", council.Candidates[0])
	}
	if results[1].TotalVotes != 1 {
		t.Errorf("Expected treasurer total 1, got %d", results[1].TotalVotes)
	}
}

func TestGetResultsForToken(t *testing.T) {
	f := newVoteFixture(t)
	handler := NewResultsHandler(f.db, testutil.GetTestConfig())
	testutil.CreateTestToken(t, f.db, "ONLYE2", f.e2)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedCount  int
	}{
		{"token with three grants", "?token=482913", http.StatusOK, 3},
		{"token with one grant", "?token=onlye2", http.StatusOK, 1},
		{"unknown token", "?token=ZZZZZZ", http.StatusNotFound, 0},
		{"empty token", "?token=", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.GetResults(w, testutil.MakeRequest("GET", "/results"+tt.query, nil, nil))

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if w.Code == http.StatusOK {
				var results []models.ElectionResult
				testutil.AssertJSON(t, w, &results)
				if len(results) != tt.expectedCount {
					t.Errorf("Expected %d elections, got %d", tt.expectedCount, len(results))
				}
			}
		})
	}
}
