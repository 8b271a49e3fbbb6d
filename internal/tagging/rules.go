// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package tagging

import (
	"regexp"
	"strconv"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/kentik/patricia"
	"github.com/kentik/patricia/uint8_tree"

	"github.com/stoneguard/waf/internal/request"
	"github.com/stoneguard/waf/internal/sglib/sgerrors"
)

// RuleSpec is the configuration form of one tagging rule. A rule inserts its
// tag when every configured condition matches; a condition with several
// accepted values matches on any of them.
type RuleSpec struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`

	CIDRs     []string `json:"cidrs,omitempty"`
	Countries []string `json:"countries,omitempty"`
	Methods   []string `json:"methods,omitempty"`
	PathRegex string   `json:"path_regex,omitempty"`
	// Expr is an optional expression evaluated against the request attributes,
	// eg. `asn == 64496 && path startsWith "/login"`.
	Expr string `json:"expr,omitempty"`
}

// Rule is one compiled tagging rule.
type Rule struct {
	ID    string
	Tag   string
	conds []condition
}

type condition interface {
	match(info *request.Info) bool
}

// Engine evaluates the compiled tagging rules against a request.
type Engine struct {
	rules []*Rule
}

// NewEngine compiles the rule specifications. Compilation failures abort the
// load: a tagging rule that silently stops matching would weaken every
// downstream ACL decision built on its tag.
func NewEngine(specs []RuleSpec) (*Engine, error) {
	e := &Engine{rules: make([]*Rule, 0, len(specs))}
	for _, spec := range specs {
		rule, err := compileRule(spec)
		if err != nil {
			return nil, sgerrors.Wrapf(err, "could not compile the tagging rule `%s`", spec.ID)
		}
		e.rules = append(e.rules, rule)
	}
	return e, nil
}

func compileRule(spec RuleSpec) (*Rule, error) {
	rule := &Rule{ID: spec.ID, Tag: spec.Tag}

	if len(spec.CIDRs) > 0 {
		cond, err := newCIDRCondition(spec.CIDRs)
		if err != nil {
			return nil, err
		}
		rule.conds = append(rule.conds, cond)
	}
	if len(spec.Countries) > 0 {
		rule.conds = append(rule.conds, countryCondition(stringSet(spec.Countries)))
	}
	if len(spec.Methods) > 0 {
		rule.conds = append(rule.conds, methodCondition(stringSet(spec.Methods)))
	}
	if spec.PathRegex != "" {
		re, err := regexp.Compile(spec.PathRegex)
		if err != nil {
			return nil, err
		}
		rule.conds = append(rule.conds, pathCondition{re: re})
	}
	if spec.Expr != "" {
		program, err := expr.Compile(spec.Expr, expr.Env(exprEnv(nil)), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, err
		}
		rule.conds = append(rule.conds, exprCondition{program: program})
	}
	return rule, nil
}

// Tag evaluates every rule and returns the resulting tag additions, including
// the unconditional request description tags (`all`, `ip:`, `geo:`, `asn:`,
// `host:`).
func (e *Engine) Tag(info *request.Info) Tags {
	tags := NewTags()
	tags.Add("all")
	if info.ClientIP != nil {
		tags.AddQualified("ip", info.ClientIP.String())
	}
	if info.Geo.Country != "" {
		tags.AddQualified("geo", info.Geo.Country)
	}
	if info.Geo.ASN != 0 {
		tags.AddQualified("asn", strconv.FormatUint(uint64(info.Geo.ASN), 10))
	}
	tags.AddQualified("host", info.Host)

	for _, rule := range e.rules {
		if rule.matches(info) {
			tags.Add(rule.Tag)
		}
	}
	return tags
}

func (r *Rule) matches(info *request.Info) bool {
	if len(r.conds) == 0 {
		return false
	}
	for _, cond := range r.conds {
		if !cond.match(info) {
			return false
		}
	}
	return true
}

const (
	ipv4Bits = 32
	ipv6Bits = 128
)

// cidrCondition matches the client address against a set of networks. The
// trees carry a single tag value; only membership matters.
type cidrCondition struct {
	treeV4 *uint8_tree.TreeV4
	treeV6 *uint8_tree.TreeV6
}

func newCIDRCondition(cidrs []string) (*cidrCondition, error) {
	cond := &cidrCondition{}
	keep := func(uint8, uint8) bool { return true }
	for _, cidr := range cidrs {
		ipv4, ipv6, err := patricia.ParseIPFromString(cidr)
		if err != nil {
			return nil, sgerrors.Wrapf(err, "could not parse the network `%s`", cidr)
		}
		switch {
		case ipv4 != nil:
			if cond.treeV4 == nil {
				cond.treeV4 = uint8_tree.NewTreeV4()
			}
			if _, _, err := cond.treeV4.Add(*ipv4, 0, keep); err != nil {
				return nil, err
			}
		case ipv6 != nil:
			if cond.treeV6 == nil {
				cond.treeV6 = uint8_tree.NewTreeV6()
			}
			if _, _, err := cond.treeV6.Add(*ipv6, 0, keep); err != nil {
				return nil, err
			}
		default:
			return nil, sgerrors.Errorf("could not parse the network `%s`", cidr)
		}
	}
	return cond, nil
}

func (c *cidrCondition) match(info *request.Info) bool {
	ip := info.ClientIP
	if ip == nil {
		return false
	}
	everything := func(uint8) bool { return true }
	if stdIPv4 := ip.To4(); stdIPv4 != nil {
		if c.treeV4 == nil {
			return false
		}
		addr := patricia.NewIPv4AddressFromBytes(stdIPv4, ipv4Bits)
		tags, err := c.treeV4.FindTagsWithFilter(addr, everything)
		return err == nil && len(tags) > 0
	}
	if stdIPv6 := ip.To16(); stdIPv6 != nil {
		if c.treeV6 == nil {
			return false
		}
		addr := patricia.NewIPv6Address(stdIPv6, ipv6Bits)
		tags, err := c.treeV6.FindTagsWithFilter(addr, everything)
		return err == nil && len(tags) > 0
	}
	return false
}

type countryCondition map[string]struct{}

func (c countryCondition) match(info *request.Info) bool {
	_, ok := c[info.Geo.Country]
	return ok
}

type methodCondition map[string]struct{}

func (c methodCondition) match(info *request.Info) bool {
	_, ok := c[info.Method]
	return ok
}

type pathCondition struct {
	re *regexp.Regexp
}

func (c pathCondition) match(info *request.Info) bool {
	return c.re.MatchString(info.Path)
}

type exprCondition struct {
	program *vm.Program
}

func (c exprCondition) match(info *request.Info) bool {
	out, err := expr.Run(c.program, exprEnv(info))
	if err != nil {
		return false
	}
	matched, ok := out.(bool)
	return ok && matched
}

// exprEnv is the variable environment expression conditions run against.
func exprEnv(info *request.Info) map[string]interface{} {
	if info == nil {
		return map[string]interface{}{}
	}
	env := map[string]interface{}{
		"method":    info.Method,
		"path":      info.Path,
		"query":     info.RawQuery,
		"uri":       info.URI,
		"host":      info.Host,
		"authority": info.Authority,
		"country":   info.Geo.Country,
		"asn":       int(info.Geo.ASN),
		"headers":   map[string]string(info.Headers),
		"cookies":   map[string]string(info.Cookies),
		"args":      map[string]string(info.Args),
	}
	if info.ClientIP != nil {
		env["ip"] = info.ClientIP.String()
	} else {
		env["ip"] = ""
	}
	return env
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
