// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package contentfilter

import (
	"fmt"
	"net/http"

	"github.com/stoneguard/waf/internal/decision"
	"github.com/stoneguard/waf/internal/request"
)

// Section identifies one inspected request section.
type Section string

const (
	SectionHeaders Section = "headers"
	SectionCookies Section = "cookies"
	SectionArgs    Section = "args"
)

// Sections in inspection order.
var sections = []Section{SectionHeaders, SectionCookies, SectionArgs}

// SectionRules are the structural limits and exemptions of one section.
type SectionRules struct {
	// MaxCount bounds the number of fields in the section, 0 meaning no bound.
	MaxCount int
	// MaxLength bounds the byte length of each field value, 0 meaning no
	// bound.
	MaxLength int
	// Exclude lists field names exempted from signature matching.
	Exclude map[string]struct{}
}

// Profile is the per-policy content-filter configuration.
type Profile struct {
	ID   string
	Name string
	// IgnoreAlphanum skips signature matching of purely alphanumeric values,
	// which no signature of the database can match.
	IgnoreAlphanum bool
	Sections       map[Section]SectionRules
}

// BlockError is the typed failure of a content-filter check. It converts to
// the action the caller should apply.
type BlockError struct {
	Reason    string
	Section   Section
	FieldName string
	Signature *Signature
}

func (e *BlockError) Error() string {
	if e.Signature != nil {
		return fmt.Sprintf("content filter: %s: signature `%s` (%s) matched %s field `%s`",
			e.Reason, e.Signature.ID, e.Signature.Category, e.Section, e.FieldName)
	}
	return fmt.Sprintf("content filter: %s: %s field `%s`", e.Reason, e.Section, e.FieldName)
}

// Action returns the blocking action of the failure.
func (e *BlockError) Action() decision.Action {
	return decision.Action{
		Kind:   decision.Block,
		Status: http.StatusForbidden,
		Reason: e.Error(),
	}
}

// Check inspects the request sections against the profile limits and the
// signature database snapshot. It returns nil when the request passes and a
// *BlockError otherwise.
func Check(info *request.Info, profile *Profile, db *DB) error {
	if profile == nil || db == nil {
		return nil
	}

	for _, section := range sections {
		fields := sectionFields(info, section)
		rules := profile.Sections[section]

		if rules.MaxCount > 0 && len(fields) > rules.MaxCount {
			return &BlockError{Reason: "too many fields", Section: section}
		}

		for name, value := range fields {
			if rules.MaxLength > 0 && len(value) > rules.MaxLength {
				return &BlockError{Reason: "field too long", Section: section, FieldName: name}
			}
			if _, excluded := rules.Exclude[name]; excluded {
				continue
			}
			if profile.IgnoreAlphanum && isAlphanum(value) {
				continue
			}
			if sig := db.match(value); sig != nil {
				return &BlockError{
					Reason:    "signature match",
					Section:   section,
					FieldName: name,
					Signature: sig,
				}
			}
		}
	}
	return nil
}

func sectionFields(info *request.Info, section Section) request.Fields {
	switch section {
	case SectionHeaders:
		return info.Headers
	case SectionCookies:
		return info.Cookies
	case SectionArgs:
		return info.Args
	}
	return nil
}

func isAlphanum(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
