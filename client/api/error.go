package api

import (
	"errors"
	"fmt"
)

// The error taxonomy every response is classified into before anything above
// this layer sees it. Callers match with errors.Is / errors.As.
var (
	// ErrNetworkUnavailable wraps connection-refused/timeout class failures.
	// Retryable in production; in dev mode the session manager degrades to
	// last-known-good local state.
	ErrNetworkUnavailable = errors.New("server unreachable")

	// ErrMisconfiguredEndpoint means we received an HTML document where JSON
	// was expected. A misrouted backend returns its HTML error page with a
	// 200 status, which would otherwise be silently mis-decoded as data.
	// Not retryable, and never a reason to discard stored credentials.
	ErrMisconfiguredEndpoint = errors.New("endpoint returned an HTML page where JSON was expected")

	// ErrAuthenticationFailed means the backend rejected our credentials
	// during login. The user must re-authenticate.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrSessionInvalid means the backend told us our session is no longer
	// valid. All local state must be cleared (fail closed).
	ErrSessionInvalid = errors.New("session is no longer valid")
)

// StatusError is a non-2xx HTTP response that is not one of the special
// classifications above.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP status %v", e.Code)
	}
	return fmt.Sprintf("HTTP status %v: %v", e.Code, e.Body)
}

// IsAuthStatus reports whether err is a StatusError carrying 401 or 403.
func IsAuthStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Code == 401 || se.Code == 403)
}
