// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package policy

import (
	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/stoneguard/waf/internal/request"
)

// Matcher indexes host maps by host name for the policy-match stage. The
// index is immutable: a new Matcher is built on every configuration load, so
// lookups never need locking.
type Matcher struct {
	// index maps reversed host names to their host map, so that a radix
	// longest-prefix walk implements longest-suffix domain matching.
	index *iradix.Tree
	// fallback serves the hosts the index does not cover; nil when no map is
	// marked default.
	fallback *HostMap
}

// NewMatcher builds the host index of the given maps. The first map marked
// default becomes the fallback of unlisted hosts.
func NewMatcher(maps []*HostMap) *Matcher {
	m := &Matcher{}
	txn := iradix.New().Txn()
	for _, hm := range maps {
		for _, host := range hm.Hosts {
			txn.Insert([]byte(reverse(host)), hm)
		}
		if hm.Default && m.fallback == nil {
			m.fallback = hm
		}
	}
	m.index = txn.Commit()
	return m
}

// Match selects the host map serving the request host and the first matching
// entry within it. The returned group name is the host map name. The boolean
// is false when no policy applies.
func (m *Matcher) Match(info *request.Info) (group string, policy *SecurityPolicy, ok bool) {
	hostMap, ok := m.lookup(info.Host)
	if !ok {
		return "", nil, false
	}
	entry, ok := hostMap.match(info.URI)
	if !ok {
		return "", nil, false
	}
	return hostMap.Name, entry, true
}

func (m *Matcher) lookup(host string) (*HostMap, bool) {
	rev := reverse(host)
	key, value, ok := m.index.Root().LongestPrefix([]byte(rev))
	// The prefix must cover the whole host or stop at a domain label boundary:
	// `example.com` serves `api.example.com` but not `notexample.com`.
	if ok && (len(key) == len(rev) || rev[len(key)] == '.') {
		return value.(*HostMap), true
	}
	if m.fallback != nil {
		return m.fallback, true
	}
	return nil, false
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
