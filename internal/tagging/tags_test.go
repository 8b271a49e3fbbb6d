// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package tagging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTags(t *testing.T) {
	tags := NewTags()
	require.Equal(t, 0, tags.Len())

	tags.Add("All")
	tags.AddQualified("ip", "203.0.113.7")
	tags.Add("all")

	require.Equal(t, 2, tags.Len())
	require.True(t, tags.Has("all"))
	require.True(t, tags.Has("ip:203-0-113-7"))
	require.False(t, tags.Has("ip"))

	require.Equal(t, []string{"all", "ip:203-0-113-7"}, tags.Names())
}

func TestTagsNormalization(t *testing.T) {
	for _, tc := range []struct {
		value    string
		expected string
	}{
		{value: "simple", expected: "simple"},
		{value: "UPPER", expected: "upper"},
		{value: "with space", expected: "with-space"},
		{value: "dots.and.more", expected: "dots-and-more"},
		{value: "già", expected: "gi-"},
		{value: "keep:colon-dash", expected: "keep:colon-dash"},
	} {
		tc := tc
		t.Run(tc.value, func(t *testing.T) {
			tags := NewTags()
			tags.Add(tc.value)
			require.True(t, tags.Has(tc.expected), tags.Names())
		})
	}
}

func TestTagsExtend(t *testing.T) {
	a := FromNames([]string{"one", "two"})
	b := FromNames([]string{"two", "three"})
	a.Extend(b)
	require.Equal(t, []string{"one", "three", "two"}, a.Names())

	// Extending does not alias the source set.
	a.Add("four")
	require.False(t, b.Has("four"))
}

func TestTagsCopy(t *testing.T) {
	orig := FromNames([]string{"one"})
	cp := orig.Copy()
	cp.Add("two")
	require.False(t, orig.Has("two"))
	require.True(t, cp.Has("one"))
}

func TestTagsPresenceMap(t *testing.T) {
	tags := FromNames([]string{"one", "two"})
	require.Equal(t, map[string]uint32{"one": 1, "two": 1}, tags.PresenceMap())
}
