// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/tokenvote/models"
	"github.com/danielhkuo/tokenvote/testutil"
)

// The in-memory SQLite store runs one transaction at a time, so these tests
// check accounting under contention. Row locking on the conditional flip is
// only exercised when TEST_DATABASE_URL points at PostgreSQL; the race
// window itself is covered by TestCastVoteLosesRaceAfterChecks.

// TestConcurrentCastSameToken verifies that when many goroutines vote with
// the same token for disjoint candidates, exactly one ballot is counted
func TestConcurrentCastSameToken(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	svc := NewService(conn, OptionsFromConfig(testutil.GetTestConfig()))

	const attempts = 8
	electionID := testutil.CreateTestElection(t, conn, "Contested", models.StatusActive)
	candidates := make([]int64, attempts)
	for i := range candidates {
		candidates[i] = testutil.AddTestCandidate(t, conn, electionID, fmt.Sprintf("Candidate %d", i))
	}
	testutil.CreateTestToken(t, conn, "777777", electionID)

	var successCount, usedCount atomic.Int32
	var winner atomic.Int64
	var g errgroup.Group

	for i := 0; i < attempts; i++ {
		candidateID := candidates[i]
		g.Go(func() error {
			_, err := svc.CastVote(context.Background(), Authorizer{Code: "777777"}, []int64{candidateID})
			switch {
			case err == nil:
				successCount.Add(1)
				winner.Store(candidateID)
			case errors.Is(err, ErrAlreadyUsed):
				usedCount.Add(1)
			default:
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("Unexpected error from concurrent vote: %v", err)
	}

	if successCount.Load() != 1 {
		t.Fatalf("Expected exactly 1 successful vote, got %d", successCount.Load())
	}
	if usedCount.Load() != attempts-1 {
		t.Errorf("Expected %d ErrAlreadyUsed, got %d", attempts-1, usedCount.Load())
	}

	// Only the winner's candidate was counted
	for _, c := range candidates {
		want := int64(0)
		if c == winner.Load() {
			want = 1
		}
		if got := testutil.Tally(t, conn, c); got != want {
			t.Errorf("Candidate %d: expected tally %d, got %d", c, want, got)
		}
	}
	if n := testutil.CountRows(t, conn, "ballot", ""); n != 1 {
		t.Errorf("Expected 1 ballot row, got %d", n)
	}
}

// TestConcurrentCastDistinctTokens verifies no lost updates when many tokens
// vote for the same candidates at once
func TestConcurrentCastDistinctTokens(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	svc := NewService(conn, OptionsFromConfig(testutil.GetTestConfig()))

	e1 := testutil.CreateTestElection(t, conn, "President", models.StatusActive)
	e2 := testutil.CreateTestElection(t, conn, "Secretary", models.StatusActive)
	c1 := testutil.AddTestCandidate(t, conn, e1, "Alice")
	c2 := testutil.AddTestCandidate(t, conn, e2, "Bob")

	const voters = 12
	codes := make([]string, voters)
	for i := range codes {
		codes[i] = fmt.Sprintf("%06d", 100000+i)
		testutil.CreateTestToken(t, conn, codes[i], e1, e2)
	}

	var g errgroup.Group
	for i, code := range codes {
		// Alternate input order so lock order differs between ballots
		targets := []int64{c1, c2}
		if i%2 == 1 {
			targets = []int64{c2, c1}
		}
		g.Go(func() error {
			_, err := svc.CastVote(context.Background(), Authorizer{Code: code}, targets)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Concurrent votes failed: %v", err)
	}

	if got := testutil.Tally(t, conn, c1); got != voters {
		t.Errorf("Expected c1 tally %d, got %d", voters, got)
	}
	if got := testutil.Tally(t, conn, c2); got != voters {
		t.Errorf("Expected c2 tally %d, got %d", voters, got)
	}
	if n := testutil.CountRows(t, conn, "access_token", "consumed = TRUE"); n != voters {
		t.Errorf("Expected %d consumed tokens, got %d", voters, n)
	}
}

// TestConcurrentCastSameVoter covers the identity path race
func TestConcurrentCastSameVoter(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	svc := NewService(conn, OptionsFromConfig(testutil.GetTestConfig()))

	electionID := testutil.CreateTestElection(t, conn, "Board", models.StatusActive)
	a := testutil.AddTestCandidate(t, conn, electionID, "A")
	b := testutil.AddTestCandidate(t, conn, electionID, "B")
	voterID := testutil.CreateTestVoter(t, conn, "racer")

	var successCount atomic.Int32
	var g errgroup.Group
	for i := 0; i < 6; i++ {
		target := a
		if i%2 == 1 {
			target = b
		}
		g.Go(func() error {
			_, err := svc.CastVote(context.Background(), Authorizer{VoterID: voterID}, []int64{target})
			if err == nil {
				successCount.Add(1)
				return nil
			}
			if errors.Is(err, ErrAlreadyVoted) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 successful vote, got %d", successCount.Load())
	}
	if total := testutil.Tally(t, conn, a) + testutil.Tally(t, conn, b); total != 1 {
		t.Errorf("Expected total tally 1, got %d", total)
	}
}
