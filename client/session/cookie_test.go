package session

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractSessionID(t *testing.T) {
	// Plain attribute list
	require.Equal(t, "abc123", ExtractSessionID("session_id=abc123; Path=/; HttpOnly"))
	// Comma-joined multi-cookie string
	require.Equal(t, "abc123", ExtractSessionID("foo=bar, session_id=abc123; Path=/"))
	// Bare value
	require.Equal(t, "abc123", ExtractSessionID("session_id=abc123"))
	// Trailing cookie in the joined form
	require.Equal(t, "xyz", ExtractSessionID("a=1; Path=/, b=2, session_id=xyz"))
	// Absent
	require.Equal(t, "", ExtractSessionID("foo=bar; Path=/"))
	require.Equal(t, "", ExtractSessionID(""))
}

func TestSessionIDFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("Set-Cookie", "theme=dark; Path=/")
	h.Add("Set-Cookie", "session_id=abc123; Path=/; HttpOnly")
	require.Equal(t, "abc123", sessionIDFromHeaders(h))

	empty := http.Header{}
	require.Equal(t, "", sessionIDFromHeaders(empty))
}
