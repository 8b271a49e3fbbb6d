// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package request

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stoneguard/waf/internal/geo"
)

func testInfo() *Info {
	return &Info{
		Headers:   Fields{"user-agent": "test-client"},
		Cookies:   Fields{"session": "abc"},
		Args:      Fields{"q": "hello"},
		Method:    "POST",
		Path:      "/login",
		RawQuery:  "q=hello",
		URI:       "/login?q=hello",
		Authority: "example.com:443",
		Host:      "example.com",
		ClientIP:  net.ParseIP("203.0.113.7"),
		Geo:       geo.Location{Country: "FR", ASN: 64496},
	}
}

func TestSelectValue(t *testing.T) {
	info := testInfo()

	for _, tc := range []struct {
		selector string
		value    string
		ok       bool
	}{
		{selector: "ip", value: "203.0.113.7", ok: true},
		{selector: "method", value: "POST", ok: true},
		{selector: "path", value: "/login", ok: true},
		{selector: "query", value: "q=hello", ok: true},
		{selector: "uri", value: "/login?q=hello", ok: true},
		{selector: "host", value: "example.com", ok: true},
		{selector: "authority", value: "example.com:443", ok: true},
		{selector: "country", value: "FR", ok: true},
		{selector: "asn", value: "64496", ok: true},
		{selector: "header:user-agent", value: "test-client", ok: true},
		{selector: "cookie:session", value: "abc", ok: true},
		{selector: "arg:q", value: "hello", ok: true},
		{selector: "header:missing", ok: false},
		{selector: "section:whatever", ok: false},
		{selector: "unknown", ok: false},
	} {
		tc := tc
		t.Run(tc.selector, func(t *testing.T) {
			v, ok := SelectValue(info, tc.selector)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.value, v)
		})
	}
}

func TestSelectValueUnresolvable(t *testing.T) {
	info := testInfo()
	info.ClientIP = nil
	info.Authority = ""
	info.Geo = geo.Location{}

	for _, selector := range []string{"ip", "authority", "country", "asn"} {
		_, ok := SelectValue(info, selector)
		require.False(t, ok, selector)
	}
}

func TestBuildKey(t *testing.T) {
	info := testInfo()

	key, ok := BuildKey(info, []string{"ip", "path"})
	require.True(t, ok)
	require.Equal(t, "203.0.113.7\x00/login", key)

	// One unresolvable selector invalidates the whole key.
	_, ok = BuildKey(info, []string{"ip", "cookie:missing"})
	require.False(t, ok)

	key, ok = BuildKey(info, nil)
	require.True(t, ok)
	require.Equal(t, "", key)
}
