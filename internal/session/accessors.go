// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package session

import (
	"github.com/google/uuid"

	"github.com/stoneguard/waf/internal/config"
	"github.com/stoneguard/waf/internal/request"
	"github.com/stoneguard/waf/internal/tagging"
)

// parseSessionID parses a session id string. A parse failure is a
// MalformedIDError, never an unknown-session error.
func parseSessionID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, &MalformedIDError{ID: id, Err: err}
	}
	return parsed, nil
}

// The with* accessors below are the only way the stages touch the shared
// state. Each one takes exactly one lock and releases it before returning, so
// that composing them in the global acquisition order
// configuration → raw → request-info → security-policy → tags
// is the natural way to write a stage. A stage needing values from two stores
// copies them out between acquisitions instead of nesting the locks.

// withConfig runs `f` with the current security configuration snapshot under
// the configuration read lock.
func (h *Hub) withConfig(f func(cfg *config.SecurityConfig) error) error {
	return h.cfg.View(f)
}

// withRawDocument runs `f` with the raw request document of the session under
// the raw-store read lock. The document is only ever read after insertion.
func (h *Hub) withRawDocument(id uuid.UUID, f func(raw map[string]interface{}) error) error {
	h.raw.mu.RLock()
	defer h.raw.mu.RUnlock()
	raw, ok := h.raw.entries[id]
	if !ok {
		return ErrUnknownSession
	}
	return f(raw)
}

// withRequestInfo runs `f` with the derived request info of the session under
// the request-info read lock.
func (h *Hub) withRequestInfo(id uuid.UUID, f func(info *request.Info) error) error {
	h.infos.mu.RLock()
	defer h.infos.mu.RUnlock()
	info, ok := h.infos.entries[id]
	if !ok {
		return ErrUnknownSession
	}
	return f(info)
}

// withSecurityPolicy runs `f` with the matched security policy of the session
// under the security-policy read lock. A miss is disambiguated after the lock
// is released: a live session whose policy-match stage did not run yet yields
// ErrPolicyNotMatched, anything else ErrUnknownSession. The disambiguating
// request-info probe must not run under the policy lock, as it sits earlier in
// the acquisition order.
func (h *Hub) withSecurityPolicy(id uuid.UUID, f func(mp matchedPolicy) error) error {
	h.policies.mu.RLock()
	mp, ok := h.policies.entries[id]
	if !ok {
		h.policies.mu.RUnlock()
		if h.infos.has(id) {
			return ErrPolicyNotMatched
		}
		return ErrUnknownSession
	}
	defer h.policies.mu.RUnlock()
	return f(mp)
}

// withTags runs `f` with the tag set of the session under the tag read lock.
func (h *Hub) withTags(id uuid.UUID, f func(tags tagging.Tags) error) error {
	h.tags.mu.RLock()
	defer h.tags.mu.RUnlock()
	tags, ok := h.tags.entries[id]
	if !ok {
		return ErrUnknownSession
	}
	return f(tags)
}

// withTagsMut runs `f` with the tag set of the session under the tag write
// lock. The tag lock is the last one of the acquisition order, so `f` must not
// reach back into any other store.
func (h *Hub) withTagsMut(id uuid.UUID, f func(tags tagging.Tags) error) error {
	h.tags.mu.Lock()
	defer h.tags.mu.Unlock()
	tags, ok := h.tags.entries[id]
	if !ok {
		return ErrUnknownSession
	}
	return f(tags)
}
