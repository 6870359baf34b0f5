// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"testing"

	"github.com/danielhkuo/tokenvote/models"
	"github.com/danielhkuo/tokenvote/testutil"
)

// voteFixture is token "482913" granted e1, e2 and a paused election.
// c1 and c3 stand in e1, c2 in e2, and outside in an active election the
// token was not granted.
type voteFixture struct {
	db      *sql.DB
	handler *VotingHandler

	e1, e2     int64
	c1, c2, c3 int64
	outside    int64
	paused     int64
	voter      int64
}

func newVoteFixture(t *testing.T) *voteFixture {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	t.Cleanup(func() { conn.Close() })

	f := &voteFixture{db: conn, handler: NewVotingHandler(conn, testutil.GetTestConfig())}
	f.e1 = testutil.CreateTestElection(t, conn, "Student Council", models.StatusActive)
	f.e2 = testutil.CreateTestElection(t, conn, "Treasurer", models.StatusActive)
	other := testutil.CreateTestElection(t, conn, "Sports Captain", models.StatusActive)
	held := testutil.CreateTestElection(t, conn, "Prom King", models.StatusPaused)

	f.c1 = testutil.AddTestCandidate(t, conn, f.e1, "Alice")
	f.c2 = testutil.AddTestCandidate(t, conn, f.e2, "Bob")
	f.c3 = testutil.AddTestCandidate(t, conn, f.e1, "Carol")
	f.outside = testutil.AddTestCandidate(t, conn, other, "Dave")
	f.paused = testutil.AddTestCandidate(t, conn, held, "Eve")

	testutil.CreateTestToken(t, conn, "482913", f.e1, f.e2, held)
	f.voter = testutil.CreateTestVoter(t, conn, "legacy-voter")
	return f
}
