// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package request

import (
	"strconv"
	"strings"
)

// SelectValue resolves a key selector against the request. Selectors name
// either a request attribute (`ip`, `method`, `path`, `query`, `uri`, `host`,
// `authority`, `country`, `asn`) or a section field (`header:<name>`,
// `cookie:<name>`, `arg:<name>`). The boolean is false when the selector does
// not resolve on this request, in which case the rule using it does not
// apply.
func SelectValue(info *Info, selector string) (string, bool) {
	if section, name, ok := strings.Cut(selector, ":"); ok {
		switch section {
		case "header":
			return info.Headers.Get(name)
		case "cookie":
			return info.Cookies.Get(name)
		case "arg":
			return info.Args.Get(name)
		}
		return "", false
	}

	switch selector {
	case "ip":
		if info.ClientIP == nil {
			return "", false
		}
		return info.ClientIP.String(), true
	case "method":
		return info.Method, true
	case "path":
		return info.Path, true
	case "query":
		return info.RawQuery, true
	case "uri":
		return info.URI, true
	case "host":
		return info.Host, true
	case "authority":
		if info.Authority == "" {
			return "", false
		}
		return info.Authority, true
	case "country":
		if info.Geo.Country == "" {
			return "", false
		}
		return info.Geo.Country, true
	case "asn":
		if info.Geo.ASN == 0 {
			return "", false
		}
		return strconv.FormatUint(uint64(info.Geo.ASN), 10), true
	}
	return "", false
}

// BuildKey resolves every selector and joins the values into one key part.
// The boolean is false as soon as one selector does not resolve.
func BuildKey(info *Info, selectors []string) (string, bool) {
	parts := make([]string, 0, len(selectors))
	for _, selector := range selectors {
		v, ok := SelectValue(info, selector)
		if !ok {
			return "", false
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "\x00"), true
}
