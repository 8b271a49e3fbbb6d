// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package contentfilter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stoneguard/waf/internal/decision"
	"github.com/stoneguard/waf/internal/request"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := CompileDB([]SignatureSpec{
		{ID: "sqli-union", Category: "sqli", Risk: 5, Operand: `(?i)union\s+select`},
		{ID: "xss-script", Category: "xss", Risk: 4, Operand: `(?i)<script`},
	})
	require.NoError(t, err)
	return db
}

func testProfile() *Profile {
	return &Profile{
		ID:             "cf-test",
		Name:           "test",
		IgnoreAlphanum: true,
		Sections: map[Section]SectionRules{
			SectionArgs: {
				MaxCount:  3,
				MaxLength: 64,
				Exclude:   map[string]struct{}{"raw": {}},
			},
		},
	}
}

func testInfo(args request.Fields) *request.Info {
	return &request.Info{
		Headers: request.Fields{"user-agent": "test-client"},
		Cookies: request.Fields{},
		Args:    args,
		Method:  "GET",
		Path:    "/search",
		URI:     "/search",
		Host:    "example.com",
	}
}

func TestCheckPass(t *testing.T) {
	err := Check(testInfo(request.Fields{"q": "hello world"}), testProfile(), testDB(t))
	require.NoError(t, err)
}

func TestCheckSignatureMatch(t *testing.T) {
	err := Check(testInfo(request.Fields{"q": "1 UNION SELECT password"}), testProfile(), testDB(t))
	require.Error(t, err)

	var blocked *BlockError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, SectionArgs, blocked.Section)
	require.Equal(t, "q", blocked.FieldName)
	require.Equal(t, "sqli-union", blocked.Signature.ID)

	action := blocked.Action()
	require.Equal(t, decision.Block, action.Kind)
	require.Equal(t, 403, action.Status)
	require.Contains(t, action.Reason, "sqli-union")
}

func TestCheckTooManyFields(t *testing.T) {
	args := request.Fields{"a": "1", "b": "2", "c": "3", "d": "4"}
	err := Check(testInfo(args), testProfile(), testDB(t))
	var blocked *BlockError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, "too many fields", blocked.Reason)
}

func TestCheckFieldTooLong(t *testing.T) {
	long := make([]byte, 65)
	for i := range long {
		long[i] = '.'
	}
	err := Check(testInfo(request.Fields{"q": string(long)}), testProfile(), testDB(t))
	var blocked *BlockError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, "field too long", blocked.Reason)
	require.Equal(t, "q", blocked.FieldName)
}

func TestCheckExcludedField(t *testing.T) {
	// The excluded field skips signature matching but not the length bound.
	err := Check(testInfo(request.Fields{"raw": "1 UNION SELECT password"}), testProfile(), testDB(t))
	require.NoError(t, err)
}

func TestCheckIgnoreAlphanum(t *testing.T) {
	profile := testProfile()
	profile.IgnoreAlphanum = true

	db, err := CompileDB([]SignatureSpec{
		{ID: "broad", Category: "test", Risk: 1, Operand: `abc`},
	})
	require.NoError(t, err)

	require.NoError(t, Check(testInfo(request.Fields{"q": "abc123"}), profile, db))

	profile.IgnoreAlphanum = false
	require.Error(t, Check(testInfo(request.Fields{"q": "abc123"}), profile, db))
}

func TestCheckNilProfile(t *testing.T) {
	require.NoError(t, Check(testInfo(request.Fields{"q": "1 UNION SELECT password"}), nil, testDB(t)))
}

func TestCompileDBSkipsBrokenSignatures(t *testing.T) {
	db, err := CompileDB([]SignatureSpec{
		{ID: "ok", Category: "test", Risk: 1, Operand: `abc`},
		{ID: "broken", Category: "test", Risk: 1, Operand: `(`},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
	require.Equal(t, 1, db.Len())
}
