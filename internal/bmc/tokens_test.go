package bmc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var defaultFields = DefaultConfig().Fields

func TestExtractTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		want   Tokens
		wantOK bool
	}{
		{
			name:   "captured response",
			body:   loginBody,
			want:   Tokens{Cookie: "Gc3bZ0n1ZJkCeL1HGxO3VnD3iNJxHb0a005", CSRF: "Tn8c0hs2"},
			wantOK: true,
		},
		{
			name:   "cookie only",
			body:   `{ 'SESSION_COOKIE' : 'abc123' }`,
			want:   Tokens{Cookie: "abc123"},
			wantOK: true,
		},
		{
			name: "csrf only",
			body: `{ 'CSRF_TOKEN' : 'abc123' }`,
		},
		{
			name: "empty body",
		},
		{
			name: "non alphanumeric cookie",
			body: `{ 'SESSION_COOKIE' : 'abc-123' }`,
		},
		{
			name: "different spacing",
			body: `{ 'SESSION_COOKIE': 'abc123' }`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractTokens(tc.body, defaultFields)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestExtractTokens_CustomFieldNames(t *testing.T) {
	t.Parallel()

	body := `{ 'SESSION_COOKIE' : 'c00kie', 'CSRFTOKEN' : 'x5rf' }`
	got, ok := ExtractTokens(body, TokenFields{Cookie: "SESSION_COOKIE", CSRF: "CSRFTOKEN"})
	require.True(t, ok)
	require.Equal(t, Tokens{Cookie: "c00kie", CSRF: "x5rf"}, got)
}

func TestExtractTokensScript(t *testing.T) {
	t.Parallel()

	got, ok := ExtractTokensScript(loginBody, defaultFields)
	require.True(t, ok)
	require.Equal(t, Tokens{Cookie: "Gc3bZ0n1ZJkCeL1HGxO3VnD3iNJxHb0a005", CSRF: "Tn8c0hs2"}, got)
}

func TestExtractTokensScript_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"syntax error":      `WEBVAR_JSONVAR_WEB_SESSION = {`,
		"no session record": `var x = 1;`,
		"empty record":      `WEBVAR_JSONVAR_WEB_SESSION = { WEBVAR_STRUCTNAME_WEB_SESSION : [ {} ] };`,
		"numeric cookie":    `WEBVAR_JSONVAR_WEB_SESSION = { WEBVAR_STRUCTNAME_WEB_SESSION : [ { 'SESSION_COOKIE' : 42 } ] };`,
		"unsafe cookie":     `WEBVAR_JSONVAR_WEB_SESSION = { WEBVAR_STRUCTNAME_WEB_SESSION : [ { 'SESSION_COOKIE' : 'a b' } ] };`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractTokensScript(body, defaultFields)
			require.False(t, ok)
			require.Equal(t, Tokens{}, got)
		})
	}
}

func TestExtractTokensScript_Timeout(t *testing.T) {
	saved := scriptTimeout
	scriptTimeout = 50 * time.Millisecond
	defer func() { scriptTimeout = saved }()

	start := time.Now()
	_, ok := ExtractTokensScript(`while (true) {}`, defaultFields)
	require.False(t, ok)
	require.Less(t, time.Since(start), 5*time.Second)
}
