// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package limit implements the per-key request rate limiter consumed by the
// session limit-check stage.
package limit

import (
	"strings"
	"time"

	"github.com/stoneguard/waf/internal/counter"
	"github.com/stoneguard/waf/internal/decision"
	"github.com/stoneguard/waf/internal/request"
	"github.com/stoneguard/waf/internal/tagging"
)

// Rule is one rate-limit rule referenced by a security policy.
type Rule struct {
	ID   string
	Name string
	// TTL is the length of the counting window.
	TTL time.Duration
	// Threshold is the number of requests allowed within one window.
	Threshold int64
	// Keys are the request selectors the counting key is built from. A rule
	// whose selectors do not resolve on a request does not apply to it.
	Keys   []string
	Action decision.Action
}

// BlockedTagCategory qualifies the tag added to a request blocked by a limit
// rule.
const BlockedTagCategory = "limit"

// Limiter counts requests per rule key and decides when a rule threshold is
// exceeded.
type Limiter struct {
	counters *counter.Store
}

// NewLimiter returns a limiter counting into `counters`.
func NewLimiter(counters *counter.Store) *Limiter {
	return &Limiter{counters: counters}
}

// Check counts the request against every applicable rule and returns the
// action of the first exceeded one. The blocked request is tagged with the
// exceeded rule name; the caller holds the tag write lock for the duration of
// the call.
func (l *Limiter) Check(policyName string, info *request.Info, rules []*Rule, tags tagging.Tags) decision.Decision {
	for _, rule := range rules {
		key, ok := request.BuildKey(info, rule.Keys)
		if !ok {
			continue
		}
		key = strings.Join([]string{"limit", rule.ID, policyName, key}, "\x00")
		if n := l.counters.Incr(key, rule.TTL); n > rule.Threshold {
			tags.AddQualified(BlockedTagCategory, rule.Name)
			action := rule.Action
			return decision.Decision{Action: &action}
		}
	}
	return decision.Pass()
}
