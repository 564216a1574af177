package api

// Package api is the single point through which the client talks to the
// backend. It attaches the session cookie and CSRF header to authenticated
// requests, and classifies every response (JSON vs HTML error page vs
// transport failure) before any caller sees it.

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
)

// SessionCookie is the name of the backend's session cookie.
const SessionCookie = "session_id"

// CSRFHeader must be echoed on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

const htmlPrefix = "<!DOCTYPE html"

const defaultTimeout = 15 * time.Second

type Client struct {
	Log     logs.Log
	BaseURL string // eg https://api.swellcast.org (no trailing slash)

	httpClient *http.Client

	credsLock sync.Mutex
	sessionID string
	csrfToken string
}

func NewClient(log logs.Log, baseURL string) *Client {
	return &Client{
		Log:        log,
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetCredentials is called by the session manager whenever the session
// cookie or CSRF token changes.
func (c *Client) SetCredentials(sessionID, csrfToken string) {
	c.credsLock.Lock()
	defer c.credsLock.Unlock()
	c.sessionID = sessionID
	c.csrfToken = csrfToken
}

func (c *Client) ClearCredentials() {
	c.SetCredentials("", "")
}

func (c *Client) credentials() (sessionID, csrfToken string) {
	c.credsLock.Lock()
	defer c.credsLock.Unlock()
	return c.sessionID, c.csrfToken
}

// HasSession reports whether a session cookie is currently attached.
func (c *Client) HasSession() bool {
	id, _ := c.credentials()
	return id != ""
}

// CookieHeader returns the Cookie header value carrying the current session,
// for transports (eg websocket dials) that bypass Do.
func (c *Client) CookieHeader() string {
	id, _ := c.credentials()
	if id == "" {
		return ""
	}
	return SessionCookie + "=" + id
}

// Do issues a request and returns the classified response body.
// If body is non-nil it is marshalled as JSON.
func (c *Client) Do(ctx context.Context, method, path string, body any, authenticated bool) ([]byte, error) {
	data, _, err := c.DoWithHeaders(ctx, method, path, body, authenticated)
	return data, err
}

// DoWithHeaders is Do, but also returns the response headers. The session
// manager needs them to harvest Set-Cookie and the CSRF token on login.
func (c *Client) DoWithHeaders(ctx context.Context, method, path string, body any, authenticated bool) ([]byte, http.Header, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		sessionID, csrfToken := c.credentials()
		if sessionID != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionID})
		}
		if csrfToken != "" && isMutating(method) {
			req.Header.Set(CSRFHeader, csrfToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failure (connection refused, timeout, DNS). The
		// distinction from an HTTP-level error matters to the session
		// manager, so classify it here.
		return nil, nil, &wrappedError{ErrNetworkUnavailable, err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, &wrappedError{ErrNetworkUnavailable, err}
	}

	if isHTML(resp.Header, respBody) {
		c.Log.Errorf("%v %v returned HTML instead of JSON (status %v). Endpoint routing is likely misconfigured.", method, path, resp.StatusCode)
		return nil, resp.Header, ErrMisconfiguredEndpoint
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.Header, &StatusError{Code: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}
	return respBody, resp.Header, nil
}

// DoJSON issues a request and decodes the JSON response into T.
func DoJSON[T any](ctx context.Context, c *Client, method, path string, body any, authenticated bool) (*T, error) {
	respBody, err := c.Do(ctx, method, path, body, authenticated)
	if err != nil {
		return nil, err
	}
	obj := new(T)
	if err := json.Unmarshal(respBody, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// isHTML detects an HTML error page masquerading as an API response, either
// via the Content-Type header or the document prefix.
func isHTML(header http.Header, body []byte) bool {
	if strings.Contains(strings.ToLower(header.Get("Content-Type")), "text/html") {
		return true
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) >= len(htmlPrefix) && strings.EqualFold(string(trimmed[:len(htmlPrefix)]), htmlPrefix)
}

func isMutating(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// wrappedError attaches a classification sentinel to an underlying cause.
type wrappedError struct {
	kind  error
	cause error
}

func (e *wrappedError) Error() string   { return e.kind.Error() + ": " + e.cause.Error() }
func (e *wrappedError) Unwrap() []error { return []error{e.kind, e.cause} }
