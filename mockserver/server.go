package mockserver

// Package mockserver is a self-contained swellcast backend used for local
// development and integration tests. It speaks the same wire contract as the
// production API (session cookie + CSRF header auth, JSON bodies) over
// in-memory fixture data.

import (
	"net/http"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/swellcast/swellcast/client/model"
)

type Server struct {
	Log    logs.Log
	router *httprouter.Router

	lock     sync.Mutex
	sessions map[string]*serverSession // key is hex(sha256(cookie token))
	users    map[string]*model.User    // by email

	spots      []model.Spot
	conditions map[string]*model.Conditions
	images     map[string][]byte
	reports    map[string][]model.SurfReport // by spot id

	wsUpgrader websocket.Upgrader
	wsLock     sync.Mutex
	wsConns    map[*websocket.Conn]bool

	httpServer *http.Server
}

type serverSession struct {
	email     string
	csrfToken string
	createdAt time.Time
}

func NewServer(logger logs.Log) *Server {
	s := &Server{
		Log:        logger,
		sessions:   map[string]*serverSession{},
		users:      map[string]*model.User{},
		conditions: map[string]*model.Conditions{},
		images:     map[string][]byte{},
		reports:    map[string][]model.SurfReport{},
		wsConns:    map[*websocket.Conn]bool{},
	}
	s.seedFixtures()
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	router := httprouter.New()

	type authedHandler func(w http.ResponseWriter, r *http.Request, params httprouter.Params, ses *serverSession)

	// protected requires a valid session cookie. Mutating verbs additionally
	// require the CSRF header to match the session's token.
	protected := func(method, route string, handle authedHandler) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			ses := s.authenticateRequest(w, r, method)
			if ses == nil {
				return
			}
			handle(w, r, params, ses)
		})
	}

	unprotected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	// Login endpoints are brute-forceable, so they get a per-IP rate limit
	ratelimited := func(method, route string, handle httprouter.Handle, requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	unprotected("GET", "/api/ping", s.httpPing)

	ratelimited("POST", "/api/auth/google", s.httpAuthGoogle, 10, time.Minute)
	ratelimited("POST", "/api/auth/dev-session", s.httpAuthDevSession, 30, time.Minute)
	unprotected("GET", "/api/auth/validate", s.httpAuthValidate)
	unprotected("POST", "/api/auth/logout", s.httpAuthLogout)

	protected("GET", "/api/spots", s.httpSpots)
	protected("GET", "/api/conditions/:spot", s.httpConditions)
	protected("GET", "/api/forecast/:spot", s.httpForecast)
	protected("GET", "/api/forecast/:spot/extended", s.httpForecastExtended)
	protected("GET", "/api/surf-reports", s.httpReportsList)
	protected("POST", "/api/surf-reports", s.httpReportSubmit)
	protected("GET", "/api/images/:key", s.httpImage)
	protected("GET", "/api/live", s.httpLive)

	s.router = router
}

// Router exposes the handler for tests (httptest.NewServer(srv.Router())).
func (s *Server) Router() http.Handler {
	return s.router
}

// port example: ":8080"
func (s *Server) ListenAndServe(port string) error {
	s.Log.Infof("Mock swellcast backend listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown() {
	s.closeLiveConns()
	if s.httpServer != nil {
		s.httpServer.Close()
	}
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendOK(w)
}
