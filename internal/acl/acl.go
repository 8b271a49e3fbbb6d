// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package acl evaluates the tag set accumulated on a request against the
// access-control profile of its matched security policy.
package acl

import "github.com/stoneguard/waf/internal/tagging"

// Profile is the set of tag lists an ACL decision is computed from. The lists
// hold canonical tag names.
type Profile struct {
	ID   string
	Name string

	ForceDeny   []string
	Passthrough []string
	DenyBot     []string
	AllowBot    []string
	Deny        []string
	Allow       []string
}

// ResultKind is the outcome kind of an ACL evaluation.
type ResultKind int

const (
	// Allow lets the request through.
	Allow ResultKind = iota
	// Deny blocks the request; the decision can still be overridden by an
	// inactive ACL stage.
	Deny
	// ForceDeny blocks the request no matter the policy activation flags.
	ForceDeny
)

func (k ResultKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case ForceDeny:
		return "force-deny"
	}
	return "unknown"
}

// Result is the raw outcome of an ACL evaluation. Tag is the matched tag name
// when the outcome was decided by a profile entry.
type Result struct {
	Kind ResultKind
	Tag  string
}

// HumanTag marks a request that passed a humanity challenge. Bot rules only
// apply to requests not carrying it.
const HumanTag = "human"

// Check evaluates the profile lists against the request tags, in decreasing
// precedence: force-deny, passthrough, bot gating, deny, allow. A request
// matching none of the lists is allowed.
func Check(tags tagging.Tags, profile *Profile) Result {
	if profile == nil {
		return Result{Kind: Allow}
	}

	if tag, ok := firstMatch(tags, profile.ForceDeny); ok {
		return Result{Kind: ForceDeny, Tag: tag}
	}
	if tag, ok := firstMatch(tags, profile.Passthrough); ok {
		return Result{Kind: Allow, Tag: tag}
	}

	if !tags.Has(HumanTag) {
		if tag, ok := firstMatch(tags, profile.AllowBot); ok {
			return Result{Kind: Allow, Tag: tag}
		}
		if tag, ok := firstMatch(tags, profile.DenyBot); ok {
			return Result{Kind: Deny, Tag: tag}
		}
	}

	if tag, ok := firstMatch(tags, profile.Deny); ok {
		return Result{Kind: Deny, Tag: tag}
	}
	if tag, ok := firstMatch(tags, profile.Allow); ok {
		return Result{Kind: Allow, Tag: tag}
	}

	return Result{Kind: Allow}
}

func firstMatch(tags tagging.Tags, names []string) (string, bool) {
	for _, name := range names {
		if tags.Has(name) {
			return name, true
		}
	}
	return "", false
}
