package models

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Election status constants
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusPaused = "paused"
	StatusEnded  = "ended"
)

// ValidStatus reports whether s is one of the election statuses
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusEnded:
		return true
	}
	return false
}

// ElectionRef identifies an election either by surrogate id or by name.
// JSON accepts a number, a numeric string, or a name string.
type ElectionRef struct {
	ID   int64
	Name string
}

func (r *ElectionRef) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		id, err := n.Int64()
		if err != nil {
			return errors.New("election id must be an integer")
		}
		*r = ElectionRef{ID: id}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("election reference must be a number or string")
	}
	*r = ParseElectionRef(s)
	return nil
}

func (r ElectionRef) MarshalJSON() ([]byte, error) {
	if r.ID != 0 {
		return json.Marshal(r.ID)
	}
	return json.Marshal(r.Name)
}

func (r ElectionRef) String() string {
	if r.ID != 0 {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.Name
}

// ParseElectionRef treats an all-digit string as an id and anything else as a name
func ParseElectionRef(s string) ElectionRef {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ElectionRef{ID: id}
	}
	return ElectionRef{Name: s}
}

// Request types

type CreateElectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// UpdateElectionRequest changes only the fields that are present
type UpdateElectionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type UpdateElectionStatusRequest struct {
	Status string `json:"status"`
}

type AddCandidateRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Party    string `json:"party"`
}

// UpdateCandidateRequest replaces a candidate's details. The election and
// tally are not editable.
type UpdateCandidateRequest = AddCandidateRequest

type RegisterVoterRequest struct {
	Name string `json:"name"`
}

type GenerateTokensRequest struct {
	Count       int           `json:"count"`
	ElectionIDs []ElectionRef `json:"election_ids"`
}

type PushTokenRequest struct {
	Token       string        `json:"token"`
	ElectionIDs []ElectionRef `json:"election_ids"`
}

type TokenLoginRequest struct {
	Token string `json:"token"`
}

// Exactly one of Token or VoterID authorizes the vote. CandidateID is
// accepted for single-candidate clients and ignored when CandidateIDs is set.
type CastVoteRequest struct {
	Token        string  `json:"token,omitempty"`
	VoterID      int64   `json:"voter_id,omitempty"`
	CandidateID  int64   `json:"candidate_id,omitempty"`
	CandidateIDs []int64 `json:"candidate_ids,omitempty"`
}

// Response types

type TokenBatchResponse struct {
	BatchID     string        `json:"batch_id"`
	ElectionIDs []int64       `json:"election_ids"`
	Tokens      []AccessToken `json:"tokens"`
}

type TokenLoginResponse struct {
	Token      string      `json:"token"`
	Session    string      `json:"session"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Elections  []Grant     `json:"elections"`
	Candidates []Candidate `json:"candidates"`
}

type CastVoteResponse struct {
	ElectionsVoted []int64 `json:"elections_voted"`
	BallotCount    int     `json:"ballot_count"`
	Message        string  `json:"message"`
}

// Domain types

type Election struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Candidate struct {
	ID         int64  `json:"id"`
	ElectionID int64  `json:"election_id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Party      string `json:"party"`
	Tally      int64  `json:"tally"`
}

type AccessToken struct {
	ID         int64      `json:"id"`
	Code       string     `json:"code"`
	BatchID    *string    `json:"batch_id,omitempty"`
	Consumed   bool       `json:"consumed"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Grant is one election a token may vote in
type Grant struct {
	ElectionID int64  `json:"election_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

type Voter struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	HasVoted bool       `json:"has_voted"`
	VotedAt  *time.Time `json:"voted_at,omitempty"`
}

// TokenBatch groups tokens that were issued together
type TokenBatch struct {
	BatchID   string        `json:"batch_id"`
	Elections []Grant       `json:"elections"`
	Tokens    []AccessToken `json:"tokens"`
}

// Result types

type ElectionResult struct {
	Election   Election    `json:"election"`
	Candidates []Candidate `json:"candidates"` // tally descending
	TotalVotes int64       `json:"total_votes"`
}

// Error response

type ErrorResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message,omitempty"`
	ElectionID  int64  `json:"election_id,omitempty"`
	CandidateID int64  `json:"candidate_id,omitempty"`
}
