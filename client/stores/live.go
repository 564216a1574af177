package stores

import (
	"net/http"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/swellcast/swellcast/client/api"
	"github.com/swellcast/swellcast/client/model"
)

// LiveUpdater subscribes to the backend's conditions feed over a websocket
// and pushes updates straight into the conditions cache, so spots the user
// is watching stay current without polling. Purely an optimization: if the
// socket is down, reads fall back to the normal TTL fetch path.
type LiveUpdater struct {
	log        logs.Log
	api        *api.Client
	conditions *ConditionsStore

	stop chan bool
}

// liveMessage is one frame on the feed.
type liveMessage struct {
	Conditions *model.Conditions `json:"conditions"`
}

func NewLiveUpdater(log logs.Log, apiClient *api.Client, conditions *ConditionsStore) *LiveUpdater {
	return &LiveUpdater{
		log:        log,
		api:        apiClient,
		conditions: conditions,
	}
}

func (u *LiveUpdater) Start() {
	u.stop = make(chan bool)
	go u.runLoop()
}

func (u *LiveUpdater) Stop() {
	if u.stop != nil {
		close(u.stop)
		u.stop = nil
	}
}

// runLoop keeps one connection alive, reconnecting with a fixed backoff.
func (u *LiveUpdater) runLoop() {
	stop := u.stop
	for {
		if err := u.readConnection(stop); err != nil {
			u.log.Warnf("Live feed disconnected: %v", err)
		}
		select {
		case <-stop:
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (u *LiveUpdater) readConnection(stop chan bool) error {
	wsURL := strings.Replace(u.api.BaseURL, "http", "ws", 1) + "/api/live"
	header := http.Header{}
	// The feed is authenticated with the same session cookie as everything else
	if u.api.HasSession() {
		header.Set("Cookie", u.api.CookieHeader())
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan bool)
	defer close(done)
	go func() {
		select {
		case <-stop:
			conn.Close()
		case <-done:
		}
	}()

	for {
		msg := liveMessage{}
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Conditions != nil {
			u.conditions.ApplyLiveUpdate(msg.Conditions)
		}
	}
}
