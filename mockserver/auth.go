package mockserver

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"

	"github.com/swellcast/swellcast/client/model"
)

const sessionCookie = "session_id"
const csrfHeader = "X-CSRF-Token"

// 62 symbols is about 5.95 bits per character, so 30 characters is ~178 bits.
const alphaNumChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func strongRandomAlphaNumChars(nchars int) string {
	buf := make([]byte, nchars)
	if n, _ := rand.Read(buf); n != nchars {
		panic("Unable to read from crypto/rand")
	}
	for i := 0; i < nchars; i++ {
		buf[i] = alphaNumChars[buf[i]%byte(len(alphaNumChars))]
	}
	return string(buf)
}

// Session tokens are stored hashed so the plaintext only ever lives with the
// client (and guards against timing attacks in the map lookup).
func hashSessionToken(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}

type authGoogleRequest struct {
	IDToken string `json:"id_token"`
}

type authDevRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	User *model.User `json:"user"`
}

type validateResponse struct {
	Valid    bool        `json:"valid"`
	AuthType string      `json:"auth_type"`
	User     *model.User `json:"user,omitempty"`
}

// httpAuthGoogle accepts a Google identity token and establishes a session.
// The mock does not talk to Google: any token of the form "mock:<email>" maps
// to that email, and anything else non-empty maps to the demo user.
func (s *Server) httpAuthGoogle(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := authGoogleRequest{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if req.IDToken == "" {
		www.PanicBadRequestf("id_token is required")
	}
	email := demoUserEmail
	if after, ok := strings.CutPrefix(req.IDToken, "mock:"); ok {
		email = after
	}
	s.loginUser(w, email)
}

func (s *Server) httpAuthDevSession(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := authDevRequest{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if req.Email == "" {
		www.PanicBadRequestf("email is required")
	}
	s.loginUser(w, req.Email)
}

// loginUser creates the session, sets the cookie, returns the CSRF token in a
// response header, and the user profile in the body.
func (s *Server) loginUser(w http.ResponseWriter, email string) {
	now := time.Now().UTC()
	user := s.upsertUser(email, now)

	cookieToken := strongRandomAlphaNumChars(30)
	csrfToken := strongRandomAlphaNumChars(30)
	s.lock.Lock()
	s.sessions[hashSessionToken(cookieToken)] = &serverSession{
		email:     email,
		csrfToken: csrfToken,
		createdAt: now,
	}
	s.lock.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    cookieToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	w.Header().Set(csrfHeader, csrfToken)
	s.Log.Infof("Logging %v in", email)
	www.SendJSON(w, &loginResponse{User: user})
}

func (s *Server) upsertUser(email string, now time.Time) *model.User {
	s.lock.Lock()
	defer s.lock.Unlock()
	user := s.users[email]
	if user == nil {
		created := now
		user = &model.User{
			Email:     email,
			Name:      nameFromEmail(email),
			GivenName: nameFromEmail(email),
			CreatedAt: &created,
			Theme:     "light",
		}
		s.users[email] = user
	}
	lastLogin := now
	user.LastLogin = &lastLogin
	return user
}

func nameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// sessionFromRequest looks up the session for the request's cookie, or nil.
func (s *Server) sessionFromRequest(r *http.Request) *serverSession {
	cookie, _ := r.Cookie(sessionCookie)
	if cookie == nil {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.sessions[hashSessionToken(cookie.Value)]
}

// authenticateRequest returns the session, or sends 401/403 and returns nil.
// Mutating verbs must also present the session's CSRF token.
func (s *Server) authenticateRequest(w http.ResponseWriter, r *http.Request, method string) *serverSession {
	ses := s.sessionFromRequest(r)
	if ses == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return nil
	}
	if method != "GET" && method != "HEAD" {
		token := r.Header.Get(csrfHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(ses.csrfToken)) != 1 {
			http.Error(w, "CSRF token missing or invalid", http.StatusForbidden)
			return nil
		}
	}
	return ses
}

func (s *Server) httpAuthValidate(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	ses := s.sessionFromRequest(r)
	if ses == nil {
		www.SendJSON(w, &validateResponse{Valid: false})
		return
	}
	s.lock.Lock()
	user := s.users[ses.email]
	s.lock.Unlock()
	www.SendJSON(w, &validateResponse{Valid: true, AuthType: "session_cookie", User: user})
}

func (s *Server) httpAuthLogout(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cookie, _ := r.Cookie(sessionCookie)
	if cookie != nil {
		s.lock.Lock()
		delete(s.sessions, hashSessionToken(cookie.Value))
		s.lock.Unlock()
	}
	www.SendOK(w)
}

// RevokeAllSessions invalidates every live session. Test helper.
func (s *Server) RevokeAllSessions() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.sessions = map[string]*serverSession{}
}
