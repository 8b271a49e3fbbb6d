// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package session exposes the session-oriented API of the inspection engine.
// A caller registers an incoming request once with SessionInit and then
// invokes the inspection stages it cares about, in its own order and cadence,
// against the returned session id. The package owns the per-session shared
// state (raw document, derived request info, tag set, matched policy) and the
// locking discipline that lets the independently-implemented stages share it.
package session

import (
	"github.com/stoneguard/waf/internal/acl"
	"github.com/stoneguard/waf/internal/config"
	"github.com/stoneguard/waf/internal/contentfilter"
	"github.com/stoneguard/waf/internal/counter"
	"github.com/stoneguard/waf/internal/decision"
	"github.com/stoneguard/waf/internal/flow"
	"github.com/stoneguard/waf/internal/limit"
	"github.com/stoneguard/waf/internal/plog"
	"github.com/stoneguard/waf/internal/policy"
	"github.com/stoneguard/waf/internal/request"
	"github.com/stoneguard/waf/internal/tagging"
)

// The inspection engines the stage orchestrators delegate to. The session
// layer owns the state and the locking; the engines own the algorithms. Every
// engine call runs inside a panic guard, so a failing engine surfaces as a
// CollaboratorError and never leaks a held lock.
type (
	// PolicyMatcher selects the security policy serving a request.
	PolicyMatcher interface {
		Match(cfg *config.SecurityConfig, info *request.Info) (group string, matched *policy.SecurityPolicy, ok bool)
	}

	// Tagger computes the tag additions of the tagging rules.
	Tagger interface {
		Tag(cfg *config.SecurityConfig, info *request.Info) tagging.Tags
	}

	// Limiter counts the request against the policy's rate-limit rules. It may
	// tag the request; the tag write lock is held for the duration of the
	// call.
	Limiter interface {
		Check(policyName string, info *request.Info, rules []*limit.Rule, tags tagging.Tags) decision.Decision
	}

	// ACLEvaluator evaluates the request tags against an ACL profile.
	ACLEvaluator interface {
		Check(tags tagging.Tags, profile *acl.Profile) acl.Result
	}

	// FilterEngine inspects the request against a content-filter profile and a
	// signature database snapshot. A non-nil error is the filter verdict.
	FilterEngine interface {
		Check(info *request.Info, profile *contentfilter.Profile, db *contentfilter.DB) error
	}

	// FlowEngine advances the multi-request flow state machines. It may tag
	// the request; the tag write lock is held for the duration of the call.
	FlowEngine interface {
		Check(rules []*flow.Rule, info *request.Info, tags tagging.Tags) decision.Decision
	}
)

// matchedPolicy is the security-policy store entry: the matched host-map
// entry and the name of the host map owning it. Written at most once per
// session.
type matchedPolicy struct {
	group  string
	policy *policy.SecurityPolicy
}

// Hub holds the four per-session stores, the process-wide configuration and
// signature database handles, and the inspection engines. It is safe for
// concurrent use from any number of goroutines.
type Hub struct {
	raw      *store[map[string]interface{}]
	infos    *store[*request.Info]
	tags     *store[tagging.Tags]
	policies *store[matchedPolicy]

	cfg  *config.Handle
	db   *contentfilter.Handle
	path string

	logger *plog.Logger

	matcher PolicyMatcher
	tagger  Tagger
	limiter Limiter
	acls    ACLEvaluator
	filter  FilterEngine
	flows   FlowEngine
}

// HubConfig carries the Hub dependencies. Every engine field is optional and
// defaults to the in-repo implementation.
type HubConfig struct {
	// SecurityConfigPath is the security configuration document loaded by
	// InitConfig.
	SecurityConfigPath string
	Logger             *plog.Logger

	Matcher PolicyMatcher
	Tagger  Tagger
	Limiter Limiter
	ACL     ACLEvaluator
	Filter  FilterEngine
	Flow    FlowEngine
}

// NewHub returns a Hub with empty stores and no security configuration
// loaded.
func NewHub(hc HubConfig) (*Hub, error) {
	logger := hc.Logger
	if logger == nil {
		logger = plog.NewLogger(plog.Disabled, nil)
	}

	h := &Hub{
		raw:      newStore[map[string]interface{}](),
		infos:    newStore[*request.Info](),
		tags:     newStore[tagging.Tags](),
		policies: newStore[matchedPolicy](),
		cfg:      config.NewHandle(),
		db:       contentfilter.NewHandle(),
		path:     hc.SecurityConfigPath,
		logger:   logger,
		matcher:  hc.Matcher,
		tagger:   hc.Tagger,
		limiter:  hc.Limiter,
		acls:     hc.ACL,
		filter:   hc.Filter,
		flows:    hc.Flow,
	}

	if h.matcher == nil {
		h.matcher = configMatcher{}
	}
	if h.tagger == nil {
		h.tagger = configTagger{}
	}
	if h.acls == nil {
		h.acls = aclEvaluator{}
	}
	if h.filter == nil {
		h.filter = filterEngine{}
	}
	if h.limiter == nil || h.flows == nil {
		counters, err := counter.NewStore()
		if err != nil {
			return nil, err
		}
		if h.limiter == nil {
			h.limiter = limit.NewLimiter(counters)
		}
		if h.flows == nil {
			h.flows = flow.NewEngine(counters)
		}
	}

	return h, nil
}

// InitConfig loads the security configuration document and publishes it along
// with the compiled signature database. It returns whether the load fully
// succeeded and the diagnostic log lines of the loader.
func (h *Hub) InitConfig() (bool, []string) {
	record := plog.NewRecord()
	cfg, db, err := config.LoadSecurity(h.path, record)
	if err != nil {
		record.Error(err)
		return false, record.Lines()
	}
	h.cfg.Store(cfg)
	h.db.Store(db)
	return !record.HasErrors(), record.Lines()
}

// Default engine wiring, delegating to the in-repo implementations.
type (
	configMatcher struct{}
	configTagger  struct{}
	aclEvaluator  struct{}
	filterEngine  struct{}
)

func (configMatcher) Match(cfg *config.SecurityConfig, info *request.Info) (string, *policy.SecurityPolicy, bool) {
	return cfg.Policies.Match(info)
}

func (configTagger) Tag(cfg *config.SecurityConfig, info *request.Info) tagging.Tags {
	return cfg.TagRules.Tag(info)
}

func (aclEvaluator) Check(tags tagging.Tags, profile *acl.Profile) acl.Result {
	return acl.Check(tags, profile)
}

func (filterEngine) Check(info *request.Info, profile *contentfilter.Profile, db *contentfilter.DB) error {
	return contentfilter.Check(info, profile, db)
}
