// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package config

import (
	"sync"

	"github.com/stoneguard/waf/internal/sglib/sgerrors"
)

// Handle is the process-wide published security configuration. Configuration
// reads are scoped: the reader borrows the current snapshot for the duration
// of the callback and the read lock is released on every exit path. The
// configuration lock is the first one in the global acquisition order, ahead
// of every session store lock.
type Handle struct {
	mu  sync.RWMutex
	cfg *SecurityConfig
}

// NewHandle returns a handle with no configuration loaded yet.
func NewHandle() *Handle {
	return &Handle{}
}

// ErrNotLoaded is returned by View before the first successful Store.
var ErrNotLoaded = sgerrors.New("config: no security configuration loaded")

// View read-locks the handle and runs `f` with the current configuration
// snapshot.
func (h *Handle) View(f func(*SecurityConfig) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cfg == nil {
		return ErrNotLoaded
	}
	return f(h.cfg)
}

// Store publishes a new configuration snapshot.
func (h *Handle) Store(cfg *SecurityConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}

// Loaded returns true once a configuration snapshot was published.
func (h *Handle) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg != nil
}
