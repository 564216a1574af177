package session

import (
	"net/http"
	"strings"
)

// ExtractSessionID pulls the session_id value out of a Set-Cookie header.
// Proxies sometimes fold multiple Set-Cookie headers into one comma-joined
// string, so we tolerate both forms:
//
//	session_id=abc123; Path=/; HttpOnly
//	foo=bar, session_id=abc123; Path=/
//
// Returns "" if no session_id attribute is present.
func ExtractSessionID(setCookie string) string {
	return extractCookieValue(setCookie, "session_id")
}

func extractCookieValue(setCookie, name string) string {
	// Split on both cookie separators (comma) and attribute separators
	// (semicolon); a lone "name=value" survives either way.
	for _, part := range strings.FieldsFunc(setCookie, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, name+"="); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// sessionIDFromHeaders scans every Set-Cookie header value for the session id.
func sessionIDFromHeaders(header http.Header) string {
	for _, sc := range header.Values("Set-Cookie") {
		if id := ExtractSessionID(sc); id != "" {
			return id
		}
	}
	return ""
}
