// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package tagging

import (
	"sort"
	"strings"
)

// Tag is a single label attached to a request. Qualified tags carry the
// category they were derived from (eg. `aclid`), so that downstream stages can
// reason about the tag origin instead of parsing its name.
type Tag struct {
	Category string
	Value    string
}

// Name returns the canonical tag name, `category:value` for qualified tags.
func (t Tag) Name() string {
	if t.Category == "" {
		return t.Value
	}
	return t.Category + ":" + t.Value
}

// Tags is the accumulating set of labels describing a request. It is not safe
// for concurrent use; the session layer serializes accesses to it.
type Tags struct {
	set map[string]Tag
}

// NewTags returns an empty tag set.
func NewTags() Tags {
	return Tags{set: make(map[string]Tag)}
}

// FromNames returns a tag set holding the given raw names.
func FromNames(names []string) Tags {
	tags := NewTags()
	for _, name := range names {
		tags.Add(name)
	}
	return tags
}

// Add inserts a plain tag. The name is normalized.
func (t Tags) Add(name string) {
	tag := Tag{Value: normalize(name)}
	t.set[tag.Name()] = tag
}

// AddQualified inserts a `category:value` tag, both parts normalized.
func (t Tags) AddQualified(category, value string) {
	tag := Tag{Category: normalize(category), Value: normalize(value)}
	t.set[tag.Name()] = tag
}

// Extend merges every tag of `o` into the set.
func (t Tags) Extend(o Tags) {
	for name, tag := range o.set {
		t.set[name] = tag
	}
}

// Has returns true when the canonical tag name is present.
func (t Tags) Has(name string) bool {
	_, ok := t.set[name]
	return ok
}

// Len returns the number of tags in the set.
func (t Tags) Len() int {
	return len(t.set)
}

// Names returns the sorted canonical tag names.
func (t Tags) Names() []string {
	names := make([]string, 0, len(t.set))
	for name := range t.set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copy returns an independent copy of the tag set.
func (t Tags) Copy() Tags {
	cp := Tags{set: make(map[string]Tag, len(t.set))}
	for name, tag := range t.set {
		cp.set[name] = tag
	}
	return cp
}

// PresenceMap returns the wire representation of the set: each tag name mapped
// to the presence count 1.
func (t Tags) PresenceMap() map[string]uint32 {
	m := make(map[string]uint32, len(t.set))
	for name := range t.set {
		m[name] = 1
	}
	return m
}

// normalize lowercases the value and replaces every character outside
// [a-z0-9:-] with a dash, so that tag names are stable no matter the source
// they were derived from.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
