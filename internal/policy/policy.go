// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package policy selects the security policy applying to a request. Policies
// are grouped into host maps; a host map owns an ordered list of entries, each
// guarded by a URI regular expression.
package policy

import (
	"regexp"

	"github.com/stoneguard/waf/internal/acl"
	"github.com/stoneguard/waf/internal/contentfilter"
	"github.com/stoneguard/waf/internal/limit"
)

// SecurityPolicy is one host-map entry: the profiles and rules applying to
// the requests it matches. A matched policy is write-once session state; it is
// never mutated after the match stage publishes it.
type SecurityPolicy struct {
	Name string
	// URIMatch guards the entry; nil matches everything.
	URIMatch *regexp.Regexp

	ACLProfile *acl.Profile
	ACLActive  bool

	ContentFilterProfile *contentfilter.Profile
	ContentFilterActive  bool

	Limits []*limit.Rule
}

// HostMap is a named group of security policies serving one set of hosts.
type HostMap struct {
	Name string
	// Hosts are the exact or parent domain names the map serves. The entry
	// `example.com` also serves `api.example.com`.
	Hosts []string
	// Default marks the map serving the hosts no other map lists.
	Default bool
	Entries []*SecurityPolicy
}

// match returns the first entry whose URI expression matches.
func (m *HostMap) match(uri string) (*SecurityPolicy, bool) {
	for _, entry := range m.Entries {
		if entry.URIMatch == nil || entry.URIMatch.MatchString(uri) {
			return entry, true
		}
	}
	return nil, false
}
