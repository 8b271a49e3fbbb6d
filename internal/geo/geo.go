// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package geo resolves client IP addresses to coarse location records. The
// lookup is best effort: an address that matches no entry yields the zero
// Location and never an error, so that ingestion cannot fail on it.
package geo

import "net"

// Location is the resolved network location of a client address.
type Location struct {
	Country string `json:"country,omitempty"`
	ASN     uint32 `json:"asn,omitempty"`
	Org     string `json:"org,omitempty"`
}

// Resolver maps an IP address to its location record.
type Resolver interface {
	Resolve(ip net.IP) Location
}

// NullResolver resolves every address to the zero Location.
type NullResolver struct{}

func (NullResolver) Resolve(net.IP) Location { return Location{} }
