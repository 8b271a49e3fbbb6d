// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package decision defines the verdict type shared by the inspection stages.
// A stage either passes the request through or returns an action describing
// the blocking response to apply.
package decision

import "fmt"

// ActionKind is the kind of blocking response an action carries.
type ActionKind int

const (
	// Monitor reports the match without blocking the request.
	Monitor ActionKind = iota
	// Block responds with a blocking page and the action status code.
	Block
	// Challenge asks the client to prove it is a browser before going on.
	Challenge
)

func (k ActionKind) String() string {
	switch k {
	case Monitor:
		return "monitor"
	case Block:
		return "block"
	case Challenge:
		return "challenge"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// ParseActionKind returns the kind named by `s`, Monitor when none matches.
func ParseActionKind(s string) (ActionKind, bool) {
	switch s {
	case "monitor":
		return Monitor, true
	case "block":
		return Block, true
	case "challenge":
		return Challenge, true
	}
	return Monitor, false
}

// Action is the concrete response of a non-passing decision.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Status int        `json:"status"`
	Reason string     `json:"reason"`
}

// Decision is a stage verdict: either a pass-through or an action. The zero
// value is a pass.
type Decision struct {
	Action *Action `json:"action,omitempty"`
}

// Pass returns a passing decision.
func Pass() Decision {
	return Decision{}
}

// NewAction returns an action decision.
func NewAction(kind ActionKind, status int, reason string) Decision {
	return Decision{Action: &Action{Kind: kind, Status: status, Reason: reason}}
}

// IsPass returns true when the decision lets the request through. Monitor
// actions are reported but do not block.
func (d Decision) IsPass() bool {
	return d.Action == nil
}

// WithoutChallenge collapses challenge actions to plain blocking actions, for
// callers that cannot emit a challenge response.
func (d Decision) WithoutChallenge() Decision {
	if d.Action == nil || d.Action.Kind != Challenge {
		return d
	}
	a := *d.Action
	a.Kind = Block
	return Decision{Action: &a}
}

func (d Decision) String() string {
	if d.Action == nil {
		return "pass"
	}
	return fmt.Sprintf("%s(%d): %s", d.Action.Kind, d.Action.Status, d.Action.Reason)
}
