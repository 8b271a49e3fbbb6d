// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package config

import (
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/stoneguard/waf/internal/acl"
	"github.com/stoneguard/waf/internal/contentfilter"
	"github.com/stoneguard/waf/internal/decision"
	"github.com/stoneguard/waf/internal/flow"
	"github.com/stoneguard/waf/internal/geo"
	"github.com/stoneguard/waf/internal/limit"
	"github.com/stoneguard/waf/internal/plog"
	"github.com/stoneguard/waf/internal/policy"
	"github.com/stoneguard/waf/internal/sglib/sgerrors"
	"github.com/stoneguard/waf/internal/tagging"
)

// SecurityConfig is the immutable compiled form of the security configuration
// document. A new value is built on every load and published through a
// Handle; the inspection stages read the snapshot they were handed and never
// mutate it.
type SecurityConfig struct {
	Policies *policy.Matcher
	TagRules *tagging.Engine
	Flows    []*flow.Rule
	Geo      geo.Resolver
}

// Document is the JSON form of the security configuration.
type Document struct {
	Policies              []HostMapSpec                 `json:"policies"`
	ACLProfiles           []ACLProfileSpec              `json:"acl_profiles"`
	ContentFilterProfiles []ContentFilterProfileSpec    `json:"content_filter_profiles"`
	Limits                []LimitSpec                   `json:"limits"`
	Flows                 []FlowSpec                    `json:"flows"`
	TagRules              []tagging.RuleSpec            `json:"tag_rules"`
	Signatures            []contentfilter.SignatureSpec `json:"signatures"`
	Geo                   []GeoEntrySpec                `json:"geo"`
}

type HostMapSpec struct {
	Name    string      `json:"name"`
	Hosts   []string    `json:"hosts"`
	Default bool        `json:"default,omitempty"`
	Entries []EntrySpec `json:"entries"`
}

type EntrySpec struct {
	Name                 string   `json:"name"`
	URIRegex             string   `json:"uri_regex,omitempty"`
	ACLProfile           string   `json:"acl_profile"`
	ACLActive            bool     `json:"acl_active"`
	ContentFilterProfile string   `json:"content_filter_profile"`
	ContentFilterActive  bool     `json:"content_filter_active"`
	Limits               []string `json:"limits,omitempty"`
}

type ACLProfileSpec struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ForceDeny   []string `json:"force_deny,omitempty"`
	Passthrough []string `json:"passthrough,omitempty"`
	DenyBot     []string `json:"deny_bot,omitempty"`
	AllowBot    []string `json:"allow_bot,omitempty"`
	Deny        []string `json:"deny,omitempty"`
	Allow       []string `json:"allow,omitempty"`
}

type ContentFilterProfileSpec struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	IgnoreAlphanum bool                       `json:"ignore_alphanum"`
	Sections       map[string]SectionRuleSpec `json:"sections,omitempty"`
}

type SectionRuleSpec struct {
	MaxCount  int      `json:"max_count,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
	Exclude   []string `json:"exclude,omitempty"`
}

type LimitSpec struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	TTLSeconds int        `json:"ttl_seconds"`
	Threshold  int64      `json:"threshold"`
	Keys       []string   `json:"keys"`
	Action     ActionSpec `json:"action"`
}

type FlowSpec struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	TTLSeconds int        `json:"ttl_seconds"`
	Keys       []string   `json:"keys"`
	Steps      []StepSpec `json:"steps"`
	Tags       []string   `json:"tags,omitempty"`
	Action     ActionSpec `json:"action"`
}

type StepSpec struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

type ActionSpec struct {
	Kind   string `json:"kind"`
	Status int    `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type GeoEntrySpec struct {
	CIDR    string `json:"cidr"`
	Country string `json:"country,omitempty"`
	ASN     uint32 `json:"asn,omitempty"`
	Org     string `json:"org,omitempty"`
}

// LoadSecurity reads, parses and compiles the security configuration document
// at `path`. Diagnostics are reported to `logger`. The returned signature
// database is published separately from the rest of the configuration, as its
// snapshot has its own process-wide handle.
func LoadSecurity(path string, logger plog.DebugLevelLogger) (*SecurityConfig, *contentfilter.DB, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, sgerrors.Wrapf(err, "config: could not read the security configuration file `%s`", path)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, sgerrors.Wrapf(err, "config: could not parse the security configuration file `%s`", path)
	}

	cfg, db, err := Compile(&doc, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("config: loaded the security configuration from `%s`: %d host maps, %d tag rules, %d flows, %d signatures",
		path, len(doc.Policies), len(doc.TagRules), len(doc.Flows), db.Len())
	return cfg, db, nil
}

// Compile builds the runtime security configuration from its document form.
func Compile(doc *Document, logger plog.DebugLevelLogger) (*SecurityConfig, *contentfilter.DB, error) {
	aclProfiles := make(map[string]*acl.Profile, len(doc.ACLProfiles))
	for _, spec := range doc.ACLProfiles {
		aclProfiles[spec.ID] = &acl.Profile{
			ID:          spec.ID,
			Name:        spec.Name,
			ForceDeny:   spec.ForceDeny,
			Passthrough: spec.Passthrough,
			DenyBot:     spec.DenyBot,
			AllowBot:    spec.AllowBot,
			Deny:        spec.Deny,
			Allow:       spec.Allow,
		}
	}

	cfProfiles := make(map[string]*contentfilter.Profile, len(doc.ContentFilterProfiles))
	for _, spec := range doc.ContentFilterProfiles {
		profile := &contentfilter.Profile{
			ID:             spec.ID,
			Name:           spec.Name,
			IgnoreAlphanum: spec.IgnoreAlphanum,
			Sections:       make(map[contentfilter.Section]contentfilter.SectionRules, len(spec.Sections)),
		}
		for name, rules := range spec.Sections {
			exclude := make(map[string]struct{}, len(rules.Exclude))
			for _, field := range rules.Exclude {
				exclude[field] = struct{}{}
			}
			profile.Sections[contentfilter.Section(name)] = contentfilter.SectionRules{
				MaxCount:  rules.MaxCount,
				MaxLength: rules.MaxLength,
				Exclude:   exclude,
			}
		}
		cfProfiles[spec.ID] = profile
	}

	limits := make(map[string]*limit.Rule, len(doc.Limits))
	for _, spec := range doc.Limits {
		limits[spec.ID] = &limit.Rule{
			ID:        spec.ID,
			Name:      spec.Name,
			TTL:       time.Duration(spec.TTLSeconds) * time.Second,
			Threshold: spec.Threshold,
			Keys:      spec.Keys,
			Action:    compileAction(spec.Action, http.StatusTooManyRequests),
		}
	}

	maps := make([]*policy.HostMap, 0, len(doc.Policies))
	for _, mapSpec := range doc.Policies {
		hostMap := &policy.HostMap{
			Name:    mapSpec.Name,
			Hosts:   mapSpec.Hosts,
			Default: mapSpec.Default,
		}
		for _, entrySpec := range mapSpec.Entries {
			entry := &policy.SecurityPolicy{
				Name:                 entrySpec.Name,
				ACLProfile:           aclProfiles[entrySpec.ACLProfile],
				ACLActive:            entrySpec.ACLActive,
				ContentFilterProfile: cfProfiles[entrySpec.ContentFilterProfile],
				ContentFilterActive:  entrySpec.ContentFilterActive,
			}
			if entry.ACLProfile == nil {
				return nil, nil, sgerrors.Errorf("config: policy entry `%s` references the unknown ACL profile `%s`", entrySpec.Name, entrySpec.ACLProfile)
			}
			if entry.ContentFilterProfile == nil {
				return nil, nil, sgerrors.Errorf("config: policy entry `%s` references the unknown content-filter profile `%s`", entrySpec.Name, entrySpec.ContentFilterProfile)
			}
			if entrySpec.URIRegex != "" {
				re, err := regexp.Compile(entrySpec.URIRegex)
				if err != nil {
					return nil, nil, sgerrors.Wrapf(err, "config: could not compile the URI expression of the policy entry `%s`", entrySpec.Name)
				}
				entry.URIMatch = re
			}
			for _, limitID := range entrySpec.Limits {
				rule, ok := limits[limitID]
				if !ok {
					return nil, nil, sgerrors.Errorf("config: policy entry `%s` references the unknown limit `%s`", entrySpec.Name, limitID)
				}
				entry.Limits = append(entry.Limits, rule)
			}
			hostMap.Entries = append(hostMap.Entries, entry)
		}
		maps = append(maps, hostMap)
	}

	tagRules, err := tagging.NewEngine(doc.TagRules)
	if err != nil {
		return nil, nil, err
	}

	flows := make([]*flow.Rule, 0, len(doc.Flows))
	for _, spec := range doc.Flows {
		steps := make([]flow.Step, 0, len(spec.Steps))
		for _, step := range spec.Steps {
			steps = append(steps, flow.Step{Method: step.Method, Path: step.Path})
		}
		flows = append(flows, &flow.Rule{
			ID:     spec.ID,
			Name:   spec.Name,
			TTL:    time.Duration(spec.TTLSeconds) * time.Second,
			Keys:   spec.Keys,
			Steps:  steps,
			Tags:   spec.Tags,
			Action: compileAction(spec.Action, http.StatusForbidden),
		})
	}

	var resolver geo.Resolver = geo.NullResolver{}
	if len(doc.Geo) > 0 {
		entries := make([]geo.Entry, 0, len(doc.Geo))
		for _, spec := range doc.Geo {
			entries = append(entries, geo.Entry{
				CIDR: spec.CIDR,
				Location: geo.Location{
					Country: spec.Country,
					ASN:     spec.ASN,
					Org:     spec.Org,
				},
			})
		}
		table, err := geo.NewTableResolver(entries)
		if err != nil {
			return nil, nil, err
		}
		resolver = table
	}

	db, err := contentfilter.CompileDB(doc.Signatures)
	if err != nil {
		// Signatures that failed to compile were skipped; the rest of the
		// database is usable.
		logger.Error(err)
	}

	return &SecurityConfig{
		Policies: policy.NewMatcher(maps),
		TagRules: tagRules,
		Flows:    flows,
		Geo:      resolver,
	}, db, nil
}

func compileAction(spec ActionSpec, defaultStatus int) decision.Action {
	kind, ok := decision.ParseActionKind(spec.Kind)
	if !ok {
		kind = decision.Block
	}
	status := spec.Status
	if status == 0 {
		status = defaultStatus
	}
	return decision.Action{Kind: kind, Status: status, Reason: spec.Reason}
}
