// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package session

import (
	"fmt"

	"github.com/pkg/errors"
)

// The session error taxonomy. Callers distinguish a bad session identifier
// (malformed string), a well-formed identifier with no live session, a stage
// invoked before its policy dependency, and a failure inside a delegated
// inspection engine.
var (
	// ErrUnknownSession is returned when a well-formed session id has no entry
	// in the stores, either because it was never created or because it was
	// torn down.
	ErrUnknownSession = errors.New("unknown session id")

	// ErrPolicyNotMatched is returned by stages requiring the matched security
	// policy when the policy-match stage did not succeed yet for the session.
	ErrPolicyNotMatched = errors.New("security policy not matched yet")

	// ErrNoMatchingPolicy is returned by the policy-match stage when no
	// configured policy serves the request.
	ErrNoMatchingPolicy = errors.New("no matching security policy")
)

// MalformedIDError is returned when the session id string does not parse into
// an identifier. It is distinct from ErrUnknownSession: the latter implies the
// id was well-formed.
type MalformedIDError struct {
	ID  string
	Err error
}

func (e *MalformedIDError) Error() string {
	return fmt.Sprintf("malformed session id `%s`: %v", e.ID, e.Err)
}

func (e *MalformedIDError) Unwrap() error { return e.Err }

// MalformedDocumentError is returned by ingestion when the encoded request
// document fails structural validation. No session state is created.
type MalformedDocumentError struct {
	Err error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed request document: %v", e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// CollaboratorError wraps a failure, including a recovered panic, of one of
// the delegated inspection engines. The session state is left untouched and
// the stage can be retried.
type CollaboratorError struct {
	Stage string
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
