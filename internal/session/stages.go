// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package session

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/stoneguard/waf/internal/acl"
	"github.com/stoneguard/waf/internal/config"
	"github.com/stoneguard/waf/internal/contentfilter"
	"github.com/stoneguard/waf/internal/decision"
	"github.com/stoneguard/waf/internal/flow"
	"github.com/stoneguard/waf/internal/limit"
	"github.com/stoneguard/waf/internal/request"
	"github.com/stoneguard/waf/internal/sglib/sgsafe"
	"github.com/stoneguard/waf/internal/tagging"
)

// PolicySummary is the serializable description of the security policy
// matched for a session.
type PolicySummary struct {
	Group                string   `json:"group"`
	Name                 string   `json:"name"`
	ACLProfile           string   `json:"acl_profile"`
	ACLActive            bool     `json:"acl_active"`
	ContentFilterProfile string   `json:"content_filter_profile"`
	ContentFilterActive  bool     `json:"content_filter_active"`
	LimitIDs             []string `json:"limit_ids,omitempty"`
}

// SessionMatchSecurityPolicy selects the security policy serving the session
// request, publishes it as session state and tags the session with the policy
// identity. When no policy matches, no state is written and the stage can be
// retried, eg. after a configuration reload.
func (h *Hub) SessionMatchSecurityPolicy(id string) (PolicySummary, error) {
	parsed, err := parseSessionID(id)
	if err != nil {
		return PolicySummary{}, err
	}

	var mp matchedPolicy
	err = h.withConfig(func(cfg *config.SecurityConfig) error {
		return h.withRequestInfo(parsed, func(info *request.Info) error {
			var ok bool
			err := sgsafe.Call(func() error {
				mp.group, mp.policy, ok = h.matcher.Match(cfg, info)
				return nil
			})
			if err != nil {
				return &CollaboratorError{Stage: "policy-match", Err: err}
			}
			if !ok {
				return ErrNoMatchingPolicy
			}
			h.policies.mu.Lock()
			defer h.policies.mu.Unlock()
			h.policies.entries[parsed] = mp
			return nil
		})
	})
	if err != nil {
		return PolicySummary{}, err
	}

	summary := summarize(mp)
	err = h.withTagsMut(parsed, func(tags tagging.Tags) error {
		tags.AddQualified("securitypolicy", mp.group)
		tags.AddQualified("securitypolicy-entry", mp.policy.Name)
		if p := mp.policy.ACLProfile; p != nil {
			tags.AddQualified("aclid", p.ID)
			tags.AddQualified("aclname", p.Name)
		}
		if p := mp.policy.ContentFilterProfile; p != nil {
			tags.AddQualified("contentfilterid", p.ID)
			tags.AddQualified("contentfiltername", p.Name)
		}
		return nil
	})
	if err != nil {
		return PolicySummary{}, err
	}
	return summary, nil
}

func summarize(mp matchedPolicy) PolicySummary {
	summary := PolicySummary{
		Group:               mp.group,
		Name:                mp.policy.Name,
		ACLActive:           mp.policy.ACLActive,
		ContentFilterActive: mp.policy.ContentFilterActive,
	}
	if p := mp.policy.ACLProfile; p != nil {
		summary.ACLProfile = p.ID
	}
	if p := mp.policy.ContentFilterProfile; p != nil {
		summary.ContentFilterProfile = p.ID
	}
	for _, rule := range mp.policy.Limits {
		summary.LimitIDs = append(summary.LimitIDs, rule.ID)
	}
	return summary
}

// SessionTagRequest runs the tagging rules against the session request and
// merges the produced tags into the session tag set. It returns true when the
// set grew. Tags only ever accumulate; re-running the stage is idempotent.
func (h *Hub) SessionTagRequest(id string) (bool, error) {
	parsed, err := parseSessionID(id)
	if err != nil {
		return false, err
	}

	var computed tagging.Tags
	err = h.withConfig(func(cfg *config.SecurityConfig) error {
		return h.withRequestInfo(parsed, func(info *request.Info) error {
			err := sgsafe.Call(func() error {
				computed = h.tagger.Tag(cfg, info)
				return nil
			})
			if err != nil {
				return &CollaboratorError{Stage: "tagging", Err: err}
			}
			return nil
		})
	})
	if err != nil {
		return false, err
	}

	var grew bool
	err = h.withTagsMut(parsed, func(tags tagging.Tags) error {
		before := tags.Len()
		tags.Extend(computed)
		grew = tags.Len() > before
		return nil
	})
	return grew, err
}

// SessionLimitCheck counts the session request against the rate-limit rules
// of its matched policy and returns the resulting decision. Exceeded rules tag
// the session. Challenge actions are collapsed to blocking ones, as the
// session API has no challenge channel.
func (h *Hub) SessionLimitCheck(id string) (decision.Decision, error) {
	parsed, err := parseSessionID(id)
	if err != nil {
		return decision.Pass(), err
	}

	// The policy fields are immutable once matched, so they are copied out and
	// the policy lock is not held across the later tag acquisition.
	var policyName string
	var rules []*limit.Rule
	err = h.withSecurityPolicy(parsed, func(mp matchedPolicy) error {
		policyName = mp.policy.Name
		rules = mp.policy.Limits
		return nil
	})
	if err != nil {
		return decision.Pass(), err
	}

	info, ok := h.infos.get(parsed)
	if !ok {
		return decision.Pass(), ErrUnknownSession
	}

	var dec decision.Decision
	err = h.withTagsMut(parsed, func(tags tagging.Tags) error {
		err := sgsafe.Call(func() error {
			dec = h.limiter.Check(policyName, info, rules, tags)
			return nil
		})
		if err != nil {
			return &CollaboratorError{Stage: "limit", Err: err}
		}
		return nil
	})
	if err != nil {
		return decision.Pass(), err
	}
	return dec.WithoutChallenge(), nil
}

// ACLStatus is the outcome of the ACL stage: the raw profile evaluation plus
// the activation flag of the matched policy, left for the caller to combine.
type ACLStatus struct {
	Result acl.Result `json:"result"`
	Active bool       `json:"active"`
}

// Decision maps the raw ACL evaluation to a stage decision. A deny outcome of
// an inactive stage is reported as a monitor action; a force-deny blocks no
// matter the flag.
func (s ACLStatus) Decision() decision.Decision {
	switch s.Result.Kind {
	case acl.ForceDeny:
		return decision.NewAction(decision.Block, http.StatusForbidden,
			"acl: force deny on tag `"+s.Result.Tag+"`")
	case acl.Deny:
		kind := decision.Block
		if !s.Active {
			kind = decision.Monitor
		}
		return decision.NewAction(kind, http.StatusForbidden,
			"acl: deny on tag `"+s.Result.Tag+"`")
	}
	return decision.Pass()
}

// SessionACLCheck evaluates the session tags against the ACL profile of its
// matched policy and returns the untransformed evaluation together with the
// policy activation flag.
func (h *Hub) SessionACLCheck(id string) (ACLStatus, error) {
	parsed, err := parseSessionID(id)
	if err != nil {
		return ACLStatus{}, err
	}

	var mp matchedPolicy
	err = h.withSecurityPolicy(parsed, func(p matchedPolicy) error {
		mp = p
		return nil
	})
	if err != nil {
		return ACLStatus{}, err
	}

	status := ACLStatus{Active: mp.policy.ACLActive}
	err = h.withTags(parsed, func(tags tagging.Tags) error {
		err := sgsafe.Call(func() error {
			status.Result = h.acls.Check(tags, mp.policy.ACLProfile)
			return nil
		})
		if err != nil {
			return &CollaboratorError{Stage: "acl", Err: err}
		}
		return nil
	})
	if err != nil {
		return ACLStatus{}, err
	}
	return status, nil
}

// SessionContentFilterCheck inspects the session request against the
// content-filter profile of its matched policy and the current signature
// database snapshot. A filter match on an inactive stage is reported as a
// monitor action.
func (h *Hub) SessionContentFilterCheck(id string) (decision.Decision, error) {
	parsed, err := parseSessionID(id)
	if err != nil {
		return decision.Pass(), err
	}

	// Grab the database snapshot first: a concurrent reload must not swap the
	// signatures under a running check.
	db := h.db.View()

	var mp matchedPolicy
	err = h.withSecurityPolicy(parsed, func(p matchedPolicy) error {
		mp = p
		return nil
	})
	if err != nil {
		return decision.Pass(), err
	}

	info, ok := h.infos.get(parsed)
	if !ok {
		return decision.Pass(), ErrUnknownSession
	}

	var checkErr error
	err = sgsafe.Call(func() error {
		checkErr = h.filter.Check(info, mp.policy.ContentFilterProfile, db)
		return nil
	})
	if err != nil {
		return decision.Pass(), &CollaboratorError{Stage: "content-filter", Err: err}
	}
	if checkErr == nil {
		return decision.Pass(), nil
	}

	// Injected engines may wrap the verdict.
	var blocked *contentfilter.BlockError
	if !errors.As(checkErr, &blocked) {
		return decision.Pass(), &CollaboratorError{Stage: "content-filter", Err: checkErr}
	}
	action := blocked.Action()
	if !mp.policy.ContentFilterActive {
		action.Kind = decision.Monitor
	}
	return decision.Decision{Action: &action}, nil
}

// SessionFlowCheck advances the flow state machines with the session request
// and returns the resulting decision. Completed sequences tag the session.
// Challenge actions are collapsed to blocking ones.
func (h *Hub) SessionFlowCheck(id string) (decision.Decision, error) {
	parsed, err := parseSessionID(id)
	if err != nil {
		return decision.Pass(), err
	}

	var rules []*flow.Rule
	err = h.withConfig(func(cfg *config.SecurityConfig) error {
		rules = cfg.Flows
		return nil
	})
	if err != nil {
		return decision.Pass(), err
	}

	info, ok := h.infos.get(parsed)
	if !ok {
		return decision.Pass(), ErrUnknownSession
	}

	var dec decision.Decision
	err = h.withTagsMut(parsed, func(tags tagging.Tags) error {
		err := sgsafe.Call(func() error {
			dec = h.flows.Check(rules, info, tags)
			return nil
		})
		if err != nil {
			return &CollaboratorError{Stage: "flow", Err: err}
		}
		return nil
	})
	if err != nil {
		return decision.Pass(), err
	}
	return dec.WithoutChallenge(), nil
}
