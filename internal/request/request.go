// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package request holds the typed, immutable view of an ingested request that
// the inspection stages read. It is derived once from the encoded request
// document and never mutated afterwards.
package request

import (
	"net"

	"github.com/stoneguard/waf/internal/geo"
)

// Fields is a named value mapping for one request section (headers, cookies
// or arguments).
type Fields map[string]string

// Get returns the value of the field `name` and whether it is present.
func (f Fields) Get(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

// Add sets the value of the field `name`.
func (f Fields) Add(name, value string) {
	f[name] = value
}

// Copy returns an independent copy of the fields.
func (f Fields) Copy() Fields {
	cp := make(Fields, len(f))
	for k, v := range f {
		cp[k] = v
	}
	return cp
}

// Info is the derived request context. The session layer guarantees that an
// Info value is written exactly once at ingestion, so the stages can read it
// concurrently without further synchronization.
type Info struct {
	Headers Fields
	Cookies Fields
	Args    Fields

	Method   string
	Path     string
	RawQuery string
	URI      string
	// Authority is the declared request authority, when any.
	Authority string
	// Host is the resolved request host: the host header when present, the
	// authority otherwise, and UnknownHost as a last resort.
	Host string

	ClientIP net.IP
	// Geo is the best-effort network location of the client address.
	Geo geo.Location
}

// UnknownHost is the resolved host of a request carrying neither a host
// header nor an authority.
const UnknownHost = "unknown"
