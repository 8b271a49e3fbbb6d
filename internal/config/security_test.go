// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package config

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stoneguard/waf/internal/contentfilter"
	"github.com/stoneguard/waf/internal/decision"
	"github.com/stoneguard/waf/internal/plog"
	"github.com/stoneguard/waf/internal/request"
)

const testSecurityDocument = `{
  "policies": [
    {
      "name": "example",
      "hosts": ["example.com"],
      "entries": [
        {
          "name": "admin",
          "uri_regex": "^/admin",
          "acl_profile": "acl-1",
          "acl_active": true,
          "content_filter_profile": "cf-1",
          "content_filter_active": true,
          "limits": ["limit-1"]
        },
        {
          "name": "default",
          "acl_profile": "acl-1",
          "content_filter_profile": "cf-1"
        }
      ]
    },
    {
      "name": "catchall",
      "default": true,
      "entries": [
        {
          "name": "any",
          "acl_profile": "acl-1",
          "content_filter_profile": "cf-1"
        }
      ]
    }
  ],
  "acl_profiles": [
    {"id": "acl-1", "name": "default", "deny": ["bot"], "allow": ["all"]}
  ],
  "content_filter_profiles": [
    {
      "id": "cf-1",
      "name": "default",
      "ignore_alphanum": true,
      "sections": {"args": {"max_count": 32, "max_length": 1024, "exclude": ["raw"]}}
    }
  ],
  "limits": [
    {
      "id": "limit-1",
      "name": "login attempts",
      "ttl_seconds": 60,
      "threshold": 5,
      "keys": ["ip"],
      "action": {"kind": "block"}
    }
  ],
  "flows": [
    {
      "id": "flow-1",
      "name": "scraper",
      "ttl_seconds": 60,
      "keys": ["ip"],
      "steps": [{"method": "GET", "path": "/a"}, {"method": "GET", "path": "/b"}],
      "action": {"kind": "challenge"}
    }
  ],
  "tag_rules": [
    {"id": "rule-1", "tag": "french", "countries": ["FR"]}
  ],
  "signatures": [
    {"id": "sig-1", "category": "sqli", "risk": 5, "operand": "(?i)union\\s+select"}
  ],
  "geo": [
    {"cidr": "203.0.113.0/24", "country": "FR", "asn": 64496}
  ]
}`

func writeSecurityFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "security.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSecurity(t *testing.T) {
	record := plog.NewRecord()
	cfg, db, err := LoadSecurity(writeSecurityFile(t, testSecurityDocument), record)
	require.NoError(t, err)
	require.False(t, record.HasErrors())

	require.Equal(t, 1, db.Len())
	require.Len(t, cfg.Flows, 1)

	group, entry, ok := cfg.Policies.Match(&request.Info{Host: "example.com", URI: "/admin/login"})
	require.True(t, ok)
	require.Equal(t, "example", group)
	require.Equal(t, "admin", entry.Name)
	require.True(t, entry.ACLActive)
	require.Len(t, entry.Limits, 1)
	require.Equal(t, int64(5), entry.Limits[0].Threshold)
	// A limit action without a status defaults to 429.
	require.Equal(t, 429, entry.Limits[0].Action.Status)
	require.Equal(t, decision.Challenge, cfg.Flows[0].Action.Kind)

	// A host no map lists is served by the default-flagged map.
	group, entry, ok = cfg.Policies.Match(&request.Info{Host: "unlisted.net", URI: "/index"})
	require.True(t, ok)
	require.Equal(t, "catchall", group)
	require.Equal(t, "any", entry.Name)

	require.Equal(t, "FR", cfg.Geo.Resolve(net.ParseIP("203.0.113.7")).Country)

	tags := cfg.TagRules.Tag(&request.Info{Host: "example.com"})
	require.True(t, tags.Has("all"))
}

func TestLoadSecurityErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadSecurity(filepath.Join(t.TempDir(), "nope.json"), plog.NewRecord())
		require.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, _, err := LoadSecurity(writeSecurityFile(t, "{"), plog.NewRecord())
		require.Error(t, err)
	})
}

func TestCompileReferenceValidation(t *testing.T) {
	base := func() *Document {
		return &Document{
			Policies: []HostMapSpec{
				{
					Name:  "example",
					Hosts: []string{"example.com"},
					Entries: []EntrySpec{
						{Name: "default", ACLProfile: "acl-1", ContentFilterProfile: "cf-1"},
					},
				},
			},
			ACLProfiles:           []ACLProfileSpec{{ID: "acl-1", Name: "default"}},
			ContentFilterProfiles: []ContentFilterProfileSpec{{ID: "cf-1", Name: "default"}},
		}
	}

	t.Run("valid", func(t *testing.T) {
		_, _, err := Compile(base(), plog.NewRecord())
		require.NoError(t, err)
	})

	t.Run("unknown acl profile", func(t *testing.T) {
		doc := base()
		doc.Policies[0].Entries[0].ACLProfile = "nope"
		_, _, err := Compile(doc, plog.NewRecord())
		require.Error(t, err)
		require.Contains(t, err.Error(), "nope")
	})

	t.Run("unknown content filter profile", func(t *testing.T) {
		doc := base()
		doc.Policies[0].Entries[0].ContentFilterProfile = "nope"
		_, _, err := Compile(doc, plog.NewRecord())
		require.Error(t, err)
	})

	t.Run("unknown limit", func(t *testing.T) {
		doc := base()
		doc.Policies[0].Entries[0].Limits = []string{"nope"}
		_, _, err := Compile(doc, plog.NewRecord())
		require.Error(t, err)
	})

	t.Run("bad uri regex", func(t *testing.T) {
		doc := base()
		doc.Policies[0].Entries[0].URIRegex = "("
		_, _, err := Compile(doc, plog.NewRecord())
		require.Error(t, err)
	})
}

func TestCompileBrokenSignaturesAreNotFatal(t *testing.T) {
	record := plog.NewRecord()
	doc := &Document{
		Signatures: []contentfilter.SignatureSpec{
			{ID: "ok", Category: "test", Operand: "abc"},
			{ID: "broken", Category: "test", Operand: "("},
		},
	}
	_, db, err := Compile(doc, record)
	require.NoError(t, err)
	require.Equal(t, 1, db.Len())
	require.True(t, record.HasErrors())
}

func TestHandle(t *testing.T) {
	h := NewHandle()
	require.False(t, h.Loaded())
	require.ErrorIs(t, h.View(func(*SecurityConfig) error { return nil }), ErrNotLoaded)

	h.Store(&SecurityConfig{})
	require.True(t, h.Loaded())

	var seen *SecurityConfig
	require.NoError(t, h.View(func(cfg *SecurityConfig) error {
		seen = cfg
		return nil
	}))
	require.NotNil(t, seen)
}

func TestConfigDefaults(t *testing.T) {
	logger := plog.NewLogger(plog.Disabled, nil)
	cfg, err := New(logger)
	require.NoError(t, err)

	require.Equal(t, plog.Info, cfg.LogLevel())
	require.Equal(t, ":9110", cfg.ListenAddr())
	require.Equal(t, "security.json", cfg.SecurityConfigPath())
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("STONEGUARD_LOG_LEVEL", "debug")
	t.Setenv("STONEGUARD_LISTEN_ADDR", "127.0.0.1:8080")
	t.Setenv("STONEGUARD_SECURITY_CONFIG", "/etc/stoneguard/security.json")

	cfg, err := New(plog.NewLogger(plog.Disabled, nil))
	require.NoError(t, err)

	require.Equal(t, plog.Debug, cfg.LogLevel())
	require.Equal(t, "127.0.0.1:8080", cfg.ListenAddr())
	require.Equal(t, "/etc/stoneguard/security.json", cfg.SecurityConfigPath())
}
