// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package acl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stoneguard/waf/internal/acl"
	"github.com/stoneguard/waf/internal/tagging"
)

func TestCheck(t *testing.T) {
	profile := &acl.Profile{
		ID:          "acl-test",
		Name:        "test",
		ForceDeny:   []string{"blocklist"},
		Passthrough: []string{"trusted"},
		DenyBot:     []string{"bad-bot"},
		AllowBot:    []string{"good-bot"},
		Deny:        []string{"bot"},
		Allow:       []string{"all"},
	}

	for _, tc := range []struct {
		name     string
		tags     []string
		expected acl.Result
	}{
		{
			name:     "no tags allows",
			tags:     nil,
			expected: acl.Result{Kind: acl.Allow},
		},
		{
			name:     "allow list",
			tags:     []string{"all"},
			expected: acl.Result{Kind: acl.Allow, Tag: "all"},
		},
		{
			name:     "deny list",
			tags:     []string{"all", "bot"},
			expected: acl.Result{Kind: acl.Deny, Tag: "bot"},
		},
		{
			name:     "force deny wins over everything",
			tags:     []string{"all", "trusted", "blocklist"},
			expected: acl.Result{Kind: acl.ForceDeny, Tag: "blocklist"},
		},
		{
			name:     "passthrough wins over deny",
			tags:     []string{"trusted", "bot"},
			expected: acl.Result{Kind: acl.Allow, Tag: "trusted"},
		},
		{
			name:     "bot deny",
			tags:     []string{"all", "bad-bot"},
			expected: acl.Result{Kind: acl.Deny, Tag: "bad-bot"},
		},
		{
			name:     "bot allow wins over bot deny",
			tags:     []string{"good-bot", "bad-bot", "bot"},
			expected: acl.Result{Kind: acl.Allow, Tag: "good-bot"},
		},
		{
			name:     "human skips the bot gating",
			tags:     []string{acl.HumanTag, "bad-bot"},
			expected: acl.Result{Kind: acl.Allow},
		},
		{
			name:     "human is still subject to deny",
			tags:     []string{acl.HumanTag, "bot"},
			expected: acl.Result{Kind: acl.Deny, Tag: "bot"},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			result := acl.Check(tagging.FromNames(tc.tags), profile)
			require.Equal(t, tc.expected, result)
		})
	}
}

func TestCheckNilProfile(t *testing.T) {
	result := acl.Check(tagging.FromNames([]string{"bot"}), nil)
	require.Equal(t, acl.Result{Kind: acl.Allow}, result)
}
