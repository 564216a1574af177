package session

// Package session owns the client's authentication state machine.
//
// States: SignedOut -> PendingValidation (stored credentials found at start)
// -> Authenticated (validate/login succeeded) -> SignedOut (logout or
// validation failure). Authenticate, ValidateSession, DevSession and Logout
// are serialized through opLock, held across the entire operation including
// the network call. A logout racing an in-flight validate therefore always
// wins: it blocks until the validate completes, then clears.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/swellcast/swellcast/client/api"
	"github.com/swellcast/swellcast/client/config"
	"github.com/swellcast/swellcast/client/model"
	"github.com/swellcast/swellcast/pkg/creds"
	"github.com/swellcast/swellcast/pkg/event"
)

type State int

const (
	StateSignedOut State = iota
	StatePendingValidation
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StatePendingValidation:
		return "pendingValidation"
	case StateAuthenticated:
		return "authenticated"
	}
	return "signedOut"
}

// StateChange is broadcast to listeners after every transition.
type StateChange struct {
	Old  State
	New  State
	User *model.User // non-nil iff New == StateAuthenticated
}

// Credential store keys. These two values are the only secrets we persist.
const (
	CredSessionID = "session_id"
	CredCSRFToken = "csrf_token"
)

// LastUserStore is the slice of the state DB the manager needs: the
// last-known user snapshot used by the offline/dev fallback.
type LastUserStore interface {
	SaveLastUser(user *model.User) error
	GetLastUser() (*model.User, error)
}

type Manager struct {
	log   logs.Log
	api   *api.Client
	creds creds.Store
	users LastUserStore
	mode  config.Mode

	// Events fires after every state transition, outside the manager lock.
	Events event.Sender[StateChange]

	// onClear hooks run during ClearAllAppData: cache invalidation, state DB
	// reset, etc. Registered once at container construction.
	onClear []func()

	// providerSignOut, if set, signs out of the third-party identity
	// provider during logout.
	providerSignOut func()

	// opLock serializes whole operations (login, validate, logout), so a
	// logout issued during an in-flight validate clears state after the
	// validate finishes, never before.
	opLock sync.Mutex

	lock  sync.Mutex
	state State
	user  *model.User
}

func NewManager(log logs.Log, apiClient *api.Client, credStore creds.Store, users LastUserStore, mode config.Mode) *Manager {
	m := &Manager{
		log:   log,
		api:   apiClient,
		creds: credStore,
		users: users,
		mode:  mode,
		state: StateSignedOut,
	}
	m.loadStoredCredentials()
	return m
}

// loadStoredCredentials moves us to PendingValidation if a previous session
// survives in the credential store, and arms the API client with it.
func (m *Manager) loadStoredCredentials() {
	sessionID, err := m.creds.Retrieve(CredSessionID)
	if errors.Is(err, creds.ErrNotFound) {
		return
	} else if err != nil {
		m.log.Errorf("Failed to read stored session: %v", err)
		return
	}
	csrfToken, err := m.creds.Retrieve(CredCSRFToken)
	if err != nil && !errors.Is(err, creds.ErrNotFound) {
		m.log.Errorf("Failed to read stored CSRF token: %v", err)
	}
	m.api.SetCredentials(sessionID, csrfToken)
	m.setState(StatePendingValidation, nil)
	m.log.Infof("Found stored session, pending validation")
}

// State returns the current authentication state.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// User returns the current user, or nil when not authenticated.
func (m *Manager) User() *model.User {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.user
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// RegisterClearHook adds fn to the set run by ClearAllAppData.
func (m *Manager) RegisterClearHook(fn func()) {
	m.onClear = append(m.onClear, fn)
}

// SetProviderSignOut installs the identity-provider signout callback.
func (m *Manager) SetProviderSignOut(fn func()) {
	m.providerSignOut = fn
}

// setState performs the transition and notifies listeners.
func (m *Manager) setState(newState State, user *model.User) {
	m.lock.Lock()
	old := m.state
	m.state = newState
	m.user = user
	m.lock.Unlock()
	if old != newState {
		m.log.Infof("Session state %v -> %v", old, newState)
		m.Events.Send(StateChange{Old: old, New: newState, User: user})
	}
}

type loginResponse struct {
	User *model.User `json:"user"`
}

// Authenticate posts a third-party identity token to the backend login
// endpoint, and on success persists the session cookie and CSRF token.
func (m *Manager) Authenticate(ctx context.Context, identityToken string) (*model.User, error) {
	return m.login(ctx, "/api/auth/google", map[string]string{"id_token": identityToken})
}

// DevSession creates a development-only session for the given email.
// Same cookie/CSRF contract as the real login.
func (m *Manager) DevSession(ctx context.Context, email string) (*model.User, error) {
	if m.mode != config.ModeDev {
		return nil, fmt.Errorf("dev sessions are only available in dev mode")
	}
	return m.login(ctx, "/api/auth/dev-session", map[string]string{"email": email})
}

func (m *Manager) login(ctx context.Context, path string, body any) (*model.User, error) {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	respBody, header, err := m.api.DoWithHeaders(ctx, "POST", path, body, false)
	if err != nil {
		if errors.Is(err, api.ErrMisconfiguredEndpoint) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", api.ErrAuthenticationFailed, err)
	}

	sessionID := sessionIDFromHeaders(header)
	csrfToken := header.Get(api.CSRFHeader)
	if sessionID == "" {
		// Extraction failure is logged, not fatal: proceed with whatever
		// partial state we have, but an unusable session will fail the next
		// validate.
		m.log.Errorf("Login response carried no parseable %v cookie", api.SessionCookie)
	}
	if sessionID != "" {
		if err := m.creds.Save(CredSessionID, sessionID); err != nil {
			m.log.Errorf("Failed to persist session id: %v", err)
		}
	}
	if csrfToken != "" {
		if err := m.creds.Save(CredCSRFToken, csrfToken); err != nil {
			m.log.Errorf("Failed to persist CSRF token: %v", err)
		}
	}
	m.api.SetCredentials(sessionID, csrfToken)

	resp := loginResponse{}
	if err := decodeJSON(respBody, &resp); err != nil || resp.User == nil {
		return nil, fmt.Errorf("%w: malformed login response", api.ErrAuthenticationFailed)
	}
	m.rememberUser(resp.User)
	m.setState(StateAuthenticated, resp.User)
	return resp.User, nil
}

type validateResponse struct {
	Valid    bool        `json:"valid"`
	AuthType string      `json:"auth_type"`
	User     *model.User `json:"user"`
}

// ValidateSession checks the stored session against the backend.
//
// Outcomes:
//  1. 200 + {valid:true}: refresh the user, state Authenticated.
//  2. Non-200, or {valid:false}: clear ALL local state, state SignedOut
//     (fail closed), return ErrSessionInvalid.
//  3. HTML response: configuration error, NOT an invalid session. Stored
//     credentials are preserved and ErrMisconfiguredEndpoint returned.
//
// In dev mode, a connection-refused/timeout failure with a stored session
// degrades to the last-known user without contacting the backend. In prod
// the same failure is surfaced as retryable (ErrNetworkUnavailable) without
// clearing state, since unreachability says nothing about session validity.
func (m *Manager) ValidateSession(ctx context.Context) (*model.User, error) {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	sessionID, err := m.creds.Retrieve(CredSessionID)
	if errors.Is(err, creds.ErrNotFound) {
		m.setState(StateSignedOut, nil)
		return nil, fmt.Errorf("%w: no stored session", api.ErrSessionInvalid)
	} else if err != nil {
		return nil, err
	}
	m.setState(StatePendingValidation, nil)

	respBody, err := m.api.Do(ctx, "GET", "/api/auth/validate", nil, true)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrMisconfiguredEndpoint):
			// The session may still be perfectly valid; the endpoint routing
			// is wrong. Preserve credentials and report a diagnosable error.
			return nil, err
		case errors.Is(err, api.ErrNetworkUnavailable):
			if m.mode == config.ModeDev && sessionID != "" {
				if user := m.lastKnownUser(); user != nil {
					m.log.Warnf("Backend unreachable; trusting stored dev session for %v", user.Email)
					m.setState(StateAuthenticated, user)
					return user, nil
				}
			}
			m.setState(StateSignedOut, nil)
			return nil, err
		default:
			// The backend answered and did not accept the session
			m.ClearAllAppData()
			m.setState(StateSignedOut, nil)
			return nil, fmt.Errorf("%w: %v", api.ErrSessionInvalid, err)
		}
	}

	resp := validateResponse{}
	if err := decodeJSON(respBody, &resp); err != nil {
		m.ClearAllAppData()
		m.setState(StateSignedOut, nil)
		return nil, fmt.Errorf("%w: malformed validate response", api.ErrSessionInvalid)
	}
	if !resp.Valid || resp.User == nil {
		m.ClearAllAppData()
		m.setState(StateSignedOut, nil)
		return nil, api.ErrSessionInvalid
	}
	m.rememberUser(resp.User)
	m.setState(StateAuthenticated, resp.User)
	return resp.User, nil
}

// Logout posts to the logout endpoint (best effort), then unconditionally
// clears all local state. Local cleanup cannot fail, so Logout never returns
// an error.
func (m *Manager) Logout(ctx context.Context) {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	if _, err := m.api.Do(ctx, "POST", "/api/auth/logout", nil, true); err != nil {
		// Server-side acknowledgment is nice to have, nothing more
		m.log.Warnf("Server logout failed (continuing with local cleanup): %v", err)
	}
	if m.providerSignOut != nil {
		m.providerSignOut()
	}
	m.ClearAllAppData()
	m.setState(StateSignedOut, nil)
}

// ClearAllAppData erases credentials and runs every registered clear hook
// (caches, state DB). Idempotent: a second call is a no-op that leaves the
// same empty state.
func (m *Manager) ClearAllAppData() {
	if err := m.creds.Delete(CredSessionID); err != nil {
		m.log.Errorf("Failed to delete stored session id: %v", err)
	}
	if err := m.creds.Delete(CredCSRFToken); err != nil {
		m.log.Errorf("Failed to delete stored CSRF token: %v", err)
	}
	m.api.ClearCredentials()
	for _, fn := range m.onClear {
		fn()
	}
}

func (m *Manager) rememberUser(user *model.User) {
	if m.users == nil {
		return
	}
	if err := m.users.SaveLastUser(user); err != nil {
		m.log.Errorf("Failed to store user snapshot: %v", err)
	}
}

func (m *Manager) lastKnownUser() *model.User {
	if m.users == nil {
		return nil
	}
	user, err := m.users.GetLastUser()
	if err != nil {
		m.log.Errorf("Failed to load user snapshot: %v", err)
		return nil
	}
	return user
}

func decodeJSON(body []byte, obj any) error {
	if len(body) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(body, obj)
}
