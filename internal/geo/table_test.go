// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package geo

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableResolver(t *testing.T) {
	r, err := NewTableResolver([]Entry{
		{CIDR: "203.0.113.0/24", Location: Location{Country: "FR", ASN: 64496, Org: "Example FR"}},
		{CIDR: "203.0.113.128/25", Location: Location{Country: "BE", ASN: 64497, Org: "Example BE"}},
		{CIDR: "2001:db8::/32", Location: Location{Country: "DE", ASN: 64498}},
	})
	require.NoError(t, err)

	t.Run("ipv4 match", func(t *testing.T) {
		loc := r.Resolve(net.ParseIP("203.0.113.7"))
		require.Equal(t, "FR", loc.Country)
		require.Equal(t, uint32(64496), loc.ASN)
	})

	t.Run("most specific network wins", func(t *testing.T) {
		loc := r.Resolve(net.ParseIP("203.0.113.200"))
		require.Equal(t, "BE", loc.Country)
	})

	t.Run("ipv6 match", func(t *testing.T) {
		loc := r.Resolve(net.ParseIP("2001:db8::42"))
		require.Equal(t, "DE", loc.Country)
	})

	t.Run("ipv4-mapped address resolves as ipv4", func(t *testing.T) {
		loc := r.Resolve(net.ParseIP("::ffff:203.0.113.7"))
		require.Equal(t, "FR", loc.Country)
	})

	t.Run("no match", func(t *testing.T) {
		require.Equal(t, Location{}, r.Resolve(net.ParseIP("198.51.100.1")))
		require.Equal(t, Location{}, r.Resolve(net.ParseIP("2001:db9::1")))
	})
}

func TestTableResolverOverwrite(t *testing.T) {
	// A duplicate network keeps a single entry holding the last location.
	r, err := NewTableResolver([]Entry{
		{CIDR: "203.0.113.0/24", Location: Location{Country: "FR"}},
		{CIDR: "203.0.113.0/24", Location: Location{Country: "BE"}},
	})
	require.NoError(t, err)
	require.Equal(t, "BE", r.Resolve(net.ParseIP("203.0.113.7")).Country)
	require.Len(t, r.locations, 1)
}

func TestTableResolverErrors(t *testing.T) {
	_, err := NewTableResolver([]Entry{{CIDR: "not-a-network"}})
	require.Error(t, err)

	entries := make([]Entry, maxTableEntries+1)
	for i := range entries {
		entries[i] = Entry{CIDR: fmt.Sprintf("10.%d.%d.0/24", i/256, i%256)}
	}
	_, err = NewTableResolver(entries)
	require.Error(t, err)
}

func TestNullResolver(t *testing.T) {
	require.Equal(t, Location{}, NullResolver{}.Resolve(net.ParseIP("203.0.113.7")))
}
