// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package flow checks multi-request sequences. A flow rule describes an
// ordered sequence of steps; the engine records how far each client has
// progressed through the sequence and triggers the rule action when a request
// completes it.
package flow

import (
	"strings"
	"time"

	"github.com/stoneguard/waf/internal/counter"
	"github.com/stoneguard/waf/internal/decision"
	"github.com/stoneguard/waf/internal/request"
	"github.com/stoneguard/waf/internal/tagging"
)

// Step is one element of a flow sequence.
type Step struct {
	Method string
	Path   string
}

// Rule is one configured flow sequence.
type Rule struct {
	ID   string
	Name string
	// TTL bounds the time between the first and the last step of a sequence.
	TTL time.Duration
	// Keys are the request selectors identifying one client of the sequence.
	Keys  []string
	Steps []Step
	// Tags are added to the request when the sequence completes.
	Tags   []string
	Action decision.Action
}

// TagCategory qualifies the tag added to a request that completed a flow
// sequence.
const TagCategory = "flow"

// Engine tracks sequence progress per rule and client key.
type Engine struct {
	counters *counter.Store
}

// NewEngine returns a flow engine recording its state into `counters`.
func NewEngine(counters *counter.Store) *Engine {
	return &Engine{counters: counters}
}

// Check advances the sequence state of every rule the request participates in
// and returns the action of the first completed sequence. Completing rules tag
// the request; the caller holds the tag write lock for the duration of the
// call.
func (e *Engine) Check(rules []*Rule, info *request.Info, tags tagging.Tags) decision.Decision {
	for _, rule := range rules {
		step, ok := matchStep(rule.Steps, info)
		if !ok {
			continue
		}
		key, ok := request.BuildKey(info, rule.Keys)
		if !ok {
			continue
		}
		key = strings.Join([]string{"flow", rule.ID, key}, "\x00")

		// The counter value is the number of consecutive sequence steps already
		// observed for this key. A request replaying an earlier step leaves the
		// state untouched; a request skipping ahead does not advance it.
		seen := e.counters.Peek(key)
		if int64(step) != seen {
			continue
		}
		if step == len(rule.Steps)-1 {
			e.counters.Reset(key)
			tags.AddQualified(TagCategory, rule.Name)
			for _, tag := range rule.Tags {
				tags.Add(tag)
			}
			action := rule.Action
			return decision.Decision{Action: &action}
		}
		e.counters.Incr(key, rule.TTL)
	}
	return decision.Pass()
}

func matchStep(steps []Step, info *request.Info) (int, bool) {
	for i, step := range steps {
		if step.Method == info.Method && step.Path == info.Path {
			return i, true
		}
	}
	return 0, false
}
