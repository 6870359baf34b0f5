// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is; use errors.As with *Error for the
// offending election or candidate.
var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrAlreadyUsed           = errors.New("token already used")
	ErrAlreadyVoted          = errors.New("voter already voted")
	ErrForbidden             = errors.New("candidate is not in an authorized election")
	ErrDuplicateElectionVote = errors.New("only one candidate per election")
	ErrValidation            = errors.New("validation failed")
	ErrElectionNotActive     = errors.New("election is not active")
	ErrStoreUnavailable      = errors.New("store unavailable")
)

// Error is a rejected operation. ElectionID and CandidateID are zero when
// they do not apply.
type Error struct {
	Kind        error
	Msg         string
	ElectionID  int64
	CandidateID int64
	Err         error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func storeError(op string, err error) *Error {
	return &Error{Kind: ErrStoreUnavailable, Msg: op, Err: err}
}

func candidateError(kind error, candidateID int64, format string, args ...any) *Error {
	e := newError(kind, format, args...)
	e.CandidateID = candidateID
	return e
}

func electionError(kind error, electionID int64, format string, args ...any) *Error {
	e := newError(kind, format, args...)
	e.ElectionID = electionID
	return e
}
