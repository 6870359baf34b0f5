// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/danielhkuo/tokenvote/cliparse"
	"github.com/danielhkuo/tokenvote/db"
)

// TestDBURLEnv names the variable that points tests at a PostgreSQL
// database. When unset, each test gets a private in-memory SQLite database.
const TestDBURLEnv = "TEST_DATABASE_URL"

const (
	TestAdminKey      = "test-admin-key"
	TestSessionSecret = "test-session-secret"
)

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbType, url := testDatabase()
	conn, err := db.Open(context.Background(), dbType, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if dbType == cliparse.DatabasePostgres {
		// Clean up tables before each test
		_, err = conn.Exec(`
			DROP TABLE IF EXISTS ballot CASCADE;
			DROP TABLE IF EXISTS voter CASCADE;
			DROP TABLE IF EXISTS token_grant CASCADE;
			DROP TABLE IF EXISTS access_token CASCADE;
			DROP TABLE IF EXISTS candidate CASCADE;
			DROP TABLE IF EXISTS election CASCADE;
		`)
		if err != nil {
			t.Fatalf("Failed to clean database: %v", err)
		}
	}

	if err := db.CreateSchema(conn, dbType); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// IsPostgres reports whether tests run against PostgreSQL
func IsPostgres() bool {
	dbType, _ := testDatabase()
	return dbType == cliparse.DatabasePostgres
}

func testDatabase() (string, string) {
	if url := os.Getenv(TestDBURLEnv); url != "" {
		return cliparse.DatabasePostgres, url
	}
	return cliparse.DatabaseSQLite, "file::memory:"
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	dbType, url := testDatabase()
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   url,
		DatabaseType:  dbType,
		AdminKey:      TestAdminKey,
		SessionSecret: TestSessionSecret,
		SessionTTL:    10 * time.Minute,
		CodeLength:    6,
		IssueRetries:  10,
		MaxBatchSize:  100,
	}
}

// CreateTestElection inserts an election and returns its id.
// status should be "draft", "active", "paused", or "ended"
func CreateTestElection(t *testing.T, conn *sql.DB, name, status string) int64 {
	t.Helper()

	var id int64
	err := conn.QueryRow(`
		INSERT INTO election (name, description, status, created_at)
		VALUES ($1, 'A test election', $2, $3)
		RETURNING id
	`, name, status, time.Now().UTC()).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return id
}

// AddTestCandidate adds a candidate to an election and returns its id
func AddTestCandidate(t *testing.T, conn *sql.DB, electionID int64, name string) int64 {
	t.Helper()

	var id int64
	err := conn.QueryRow(`
		INSERT INTO candidate (election_id, name, position, party, tally, created_at)
		VALUES ($1, $2, 'Member', 'Independent', 0, $3)
		RETURNING id
	`, electionID, name, time.Now().UTC()).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return id
}

// CreateTestToken inserts an unconsumed token granted the given elections
func CreateTestToken(t *testing.T, conn *sql.DB, code string, electionIDs ...int64) int64 {
	t.Helper()

	var id int64
	err := conn.QueryRow(`
		INSERT INTO access_token (code, consumed, created_at)
		VALUES ($1, FALSE, $2)
		RETURNING id
	`, code, time.Now().UTC()).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test token: %v", err)
	}

	for _, electionID := range electionIDs {
		_, err := conn.Exec(`
			INSERT INTO token_grant (token_id, election_id)
			VALUES ($1, $2)
		`, id, electionID)
		if err != nil {
			t.Fatalf("Failed to create test grant: %v", err)
		}
	}

	return id
}

// CreateTestVoter registers a voter identity and returns its id
func CreateTestVoter(t *testing.T, conn *sql.DB, name string) int64 {
	t.Helper()

	var id int64
	err := conn.QueryRow(`
		INSERT INTO voter (name, has_voted, created_at)
		VALUES ($1, FALSE, $2)
		RETURNING id
	`, name, time.Now().UTC()).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return id
}

// Tally reads a candidate's current tally
func Tally(t *testing.T, conn *sql.DB, candidateID int64) int64 {
	t.Helper()

	var tally int64
	if err := conn.QueryRow(`SELECT tally FROM candidate WHERE id = $1`, candidateID).Scan(&tally); err != nil {
		t.Fatalf("Failed to read tally: %v", err)
	}
	return tally
}

// TokenConsumed reads a token's consumed flag by code
func TokenConsumed(t *testing.T, conn *sql.DB, code string) bool {
	t.Helper()

	var consumed bool
	if err := conn.QueryRow(`SELECT consumed FROM access_token WHERE code = $1`, code).Scan(&consumed); err != nil {
		t.Fatalf("Failed to read token: %v", err)
	}
	return consumed
}

// CountRows counts rows in a table matching an optional WHERE clause
func CountRows(t *testing.T, conn *sql.DB, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AdminHeaders returns headers carrying the test admin key
func AdminHeaders() map[string]string {
	return map[string]string{"X-Admin-Key": TestAdminKey}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
