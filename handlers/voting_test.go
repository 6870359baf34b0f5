// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/tokenvote/auth"
	"github.com/danielhkuo/tokenvote/models"
	"github.com/danielhkuo/tokenvote/testutil"
)

func TestCastVote(t *testing.T) {
	tests := []struct {
		name           string
		body           func(f *voteFixture) interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, f *voteFixture, resp *models.ErrorResponse)
	}{
		{
			name: "one candidate per granted election",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{Token: "482913", CandidateIDs: []int64{f.c1, f.c2}}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "single candidate field",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{Token: "482913", CandidateID: f.c3}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "two candidates in one election",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{Token: "482913", CandidateIDs: []int64{f.c1, f.c3}}
			},
			expectedStatus: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, f *voteFixture, resp *models.ErrorResponse) {
				if resp.ElectionID != f.e1 {
					t.Errorf("Expected election_id %d, got %d", f.e1, resp.ElectionID)
				}
			},
		},
		{
			name: "candidate outside grants",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{Token: "482913", CandidateIDs: []int64{f.c1, f.outside}}
			},
			expectedStatus: http.StatusForbidden,
			checkResponse: func(t *testing.T, f *voteFixture, resp *models.ErrorResponse) {
				if resp.CandidateID != f.outside {
					t.Errorf("Expected candidate_id %d, got %d", f.outside, resp.CandidateID)
				}
			},
		},
		{
			name: "unknown candidate",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{Token: "482913", CandidateIDs: []int64{99999}}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "unknown token",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{Token: "000000", CandidateIDs: []int64{f.c1}}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "no candidates",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{Token: "482913"}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "no authorizer",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{CandidateIDs: []int64{f.c1}}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "token and voter both set",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{Token: "482913", VoterID: f.voter, CandidateIDs: []int64{f.c1}}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "paused election",
			body: func(f *voteFixture) interface{} {
				return models.CastVoteRequest{Token: "482913", CandidateIDs: []int64{f.paused}}
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVoteFixture(t)

			req := testutil.MakeRequest("POST", "/vote", tt.body(f), nil)
			w := httptest.NewRecorder()
			f.handler.CastVote(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if w.Code == http.StatusOK {
				var resp models.CastVoteResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.BallotCount != len(resp.ElectionsVoted) || resp.BallotCount == 0 {
					t.Errorf("Unexpected receipt %+v", resp)
				}
				return
			}

			// Rejections leave every tally at zero and the token unconsumed
			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if tt.checkResponse != nil {
				tt.checkResponse(t, f, &resp)
			}
			if testutil.TokenConsumed(t, f.db, "482913") {
				t.Error("Rejected vote consumed the token")
			}
			if n := testutil.CountRows(t, f.db, "candidate", "tally > 0"); n != 0 {
				t.Errorf("Rejected vote changed %d tallies", n)
			}
		})
	}
}

func TestCastVoteTokenReuse(t *testing.T) {
	f := newVoteFixture(t)

	req := testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Token: "482913", CandidateIDs: []int64{f.c1}}, nil)
	w := httptest.NewRecorder()
	f.handler.CastVote(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	// The token is spent even though election 2 was not voted
	req = testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Token: "482913", CandidateIDs: []int64{f.c2}}, nil)
	w = httptest.NewRecorder()
	f.handler.CastVote(w, req)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	if got := testutil.Tally(t, f.db, f.c2); got != 0 {
		t.Errorf("Expected c2 tally 0, got %d", got)
	}
}

func TestCastVoteWithSession(t *testing.T) {
	f := newVoteFixture(t)
	cfg := testutil.GetTestConfig()

	session, _, err := auth.NewSessionSigner(cfg.SessionSecret, cfg.SessionTTL).Issue("482913")
	if err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}

	req := testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{CandidateIDs: []int64{f.c1}},
		map[string]string{"Authorization": "Bearer " + session})
	w := httptest.NewRecorder()
	f.handler.CastVote(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	if !testutil.TokenConsumed(t, f.db, "482913") {
		t.Error("Expected session vote to consume the token")
	}

	// The session cannot outlive its token
	req = testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{CandidateIDs: []int64{f.c2}},
		map[string]string{"Authorization": "Bearer " + session})
	w = httptest.NewRecorder()
	f.handler.CastVote(w, req)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestCastVoteWithBadSession(t *testing.T) {
	f := newVoteFixture(t)

	expired, _, err := auth.NewSessionSigner(testutil.TestSessionSecret, -time.Minute).Issue("482913")
	if err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}
	forged, _, err := auth.NewSessionSigner("another-secret", time.Minute).Issue("482913")
	if err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}

	for name, session := range map[string]string{"expired": expired, "forged": forged, "garbage": "not.a.jwt"} {
		t.Run(name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{CandidateIDs: []int64{f.c1}},
				map[string]string{"Authorization": "Bearer " + session})
			w := httptest.NewRecorder()
			f.handler.CastVote(w, req)
			testutil.AssertStatus(t, w, http.StatusUnauthorized)
		})
	}

	if testutil.TokenConsumed(t, f.db, "482913") {
		t.Error("Bad sessions must not consume the token")
	}
}

func TestCastVoteVoterIdentity(t *testing.T) {
	f := newVoteFixture(t)

	// The identity path is not restricted to grants
	req := testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{VoterID: f.voter, CandidateIDs: []int64{f.c1, f.outside}}, nil)
	w := httptest.NewRecorder()
	f.handler.CastVote(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{VoterID: f.voter, CandidateIDs: []int64{f.c2}}, nil)
	w = httptest.NewRecorder()
	f.handler.CastVote(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)

	req = testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{VoterID: 4040, CandidateIDs: []int64{f.c2}}, nil)
	w = httptest.NewRecorder()
	f.handler.CastVote(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic dXNlcg==", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("POST", "/vote", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := bearerToken(req)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCastVoteCandidateIDsWinOverCandidateID(t *testing.T) {
	f := newVoteFixture(t)

	// candidate_id is ignored once candidate_ids is present
	req := testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Token: "482913", CandidateID: f.c3, CandidateIDs: []int64{f.c1}}, nil)
	w := httptest.NewRecorder()
	f.handler.CastVote(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.CastVoteResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.BallotCount != 1 {
		t.Errorf("Expected 1 ballot, got %d", resp.BallotCount)
	}
	if got := testutil.Tally(t, f.db, f.c1); got != 1 {
		t.Errorf("Expected c1 tally 1, got %d", got)
	}
	if got := testutil.Tally(t, f.db, f.c3); got != 0 {
		t.Errorf("Expected candidate_id to be ignored, c3 tally %d", got)
	}
}

func TestCastVoteStoreUnavailable(t *testing.T) {
	f := newVoteFixture(t)
	f.db.Close()

	req := testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Token: "482913", CandidateIDs: []int64{f.c1}}, nil)
	w := httptest.NewRecorder()
	f.handler.CastVote(w, req)

	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Expected Retry-After 1, got %q", got)
	}

	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Message != "Database error" {
		t.Errorf("Expected driver details to stay hidden, got %q", resp.Message)
	}
}
