// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"testing"

	"github.com/danielhkuo/tokenvote/models"
	"github.com/danielhkuo/tokenvote/testutil"
)

func TestTallyByElection(t *testing.T) {
	f := newBallotFixture(t)
	ctx := context.Background()

	// Carol gets two votes, Alice one
	testutil.CreateTestToken(t, f.db, "100001", f.e1, f.e2)
	testutil.CreateTestToken(t, f.db, "100002", f.e1)
	votes := []struct {
		code       string
		candidates []int64
	}{
		{f.code, []int64{f.c3, f.c2}},
		{"100001", []int64{f.c3}},
		{"100002", []int64{f.c1}},
	}
	for _, v := range votes {
		if _, err := f.svc.CastVote(ctx, Authorizer{Code: v.code}, v.candidates); err != nil {
			t.Fatalf("CastVote %s failed: %v", v.code, err)
		}
	}

	results, err := f.svc.TallyByElection(ctx)
	if err != nil {
		t.Fatalf("TallyByElection failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 elections, got %d", len(results))
	}

	council := results[0]
	if council.Election.ID != f.e1 {
		t.Fatalf("Expected election %d first, got %d", f.e1, council.Election.ID)
	}
	if council.TotalVotes != 3 {
		t.Errorf("Expected 3 total votes, got %d", council.TotalVotes)
	}
	if len(council.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(council.Candidates))
	}
	if council.Candidates[0].ID != f.c3 || council.Candidates[0].Tally != 2 {
		t.Errorf("Expected Carol leading with 2, got %+v", council.Candidates[0])
	}
	if council.Candidates[1].ID != f.c1 || council.Candidates[1].Tally != 1 {
		t.Errorf("Expected Alice with 1, got %+v", council.Candidates[1])
	}

	treasurer := results[1]
	if treasurer.TotalVotes != 1 || treasurer.Candidates[0].Tally != 1 {
		t.Errorf("Expected treasurer total 1, got %+v", treasurer)
	}
}

func TestTallyTiesBreakByID(t *testing.T) {
	f := newBallotFixture(t)

	results, err := f.svc.TallyByElection(context.Background())
	if err != nil {
		t.Fatalf("TallyByElection failed: %v", err)
	}

	council := results[0]
	if council.TotalVotes != 0 {
		t.Errorf("Expected no votes, got %d", council.TotalVotes)
	}
	if council.Candidates[0].ID != f.c1 || council.Candidates[1].ID != f.c3 {
		t.Errorf("Expected tied candidates in id order, got %d then %d", council.Candidates[0].ID, council.Candidates[1].ID)
	}
}

func TestTallyElectionWithoutCandidates(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	svc := NewService(conn, Options{})

	testutil.CreateTestElection(t, conn, "Empty", models.StatusDraft)

	results, err := svc.TallyByElection(context.Background())
	if err != nil {
		t.Fatalf("TallyByElection failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 election, got %d", len(results))
	}
	if results[0].Candidates == nil || len(results[0].Candidates) != 0 || results[0].TotalVotes != 0 {
		t.Errorf("Expected empty result, got %+v", results[0])
	}
}

func TestTallyForToken(t *testing.T) {
	f := newBallotFixture(t)
	ctx := context.Background()

	testutil.CreateTestToken(t, f.db, "TREAS1", f.e2)
	if _, err := f.svc.CastVote(ctx, Authorizer{Code: "TREAS1"}, []int64{f.c2}); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	// Consumed tokens may still read their results
	results, err := f.svc.TallyForToken(ctx, "treas1")
	if err != nil {
		t.Fatalf("TallyForToken failed: %v", err)
	}
	if len(results) != 1 || results[0].Election.ID != f.e2 {
		t.Fatalf("Expected only election %d, got %+v", f.e2, results)
	}
	if results[0].TotalVotes != 1 {
		t.Errorf("Expected 1 vote, got %d", results[0].TotalVotes)
	}

	all, err := f.svc.TallyForToken(ctx, f.code)
	if err != nil {
		t.Fatalf("TallyForToken failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 elections for the fixture token, got %d", len(all))
	}

	if _, err := f.svc.TallyForToken(ctx, "NOPE00"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.TallyForToken(ctx, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}
