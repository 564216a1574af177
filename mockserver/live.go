package mockserver

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/swellcast/swellcast/client/model"
)

type liveMessageJSON struct {
	Conditions *model.Conditions `json:"conditions"`
}

// httpLive upgrades to a websocket and keeps the connection registered until
// it dies. Pushes come from PushConditions; the client never sends.
func (s *Server) httpLive(w http.ResponseWriter, r *http.Request, params httprouter.Params, ses *serverSession) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("Live feed websocket upgrade failed: %v", err)
		return
	}
	s.wsLock.Lock()
	s.wsConns[conn] = true
	s.wsLock.Unlock()
	s.Log.Infof("Live feed connected (%v)", ses.email)

	// Drain reads so we notice the peer closing
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.wsLock.Lock()
		delete(s.wsConns, conn)
		s.wsLock.Unlock()
		conn.Close()
	}()
}

// PushConditions updates the stored observation for a spot and broadcasts it
// to every live feed subscriber.
func (s *Server) PushConditions(c *model.Conditions) {
	s.lock.Lock()
	s.conditions[c.SpotID] = c
	s.lock.Unlock()

	msg := &liveMessageJSON{Conditions: c}
	s.wsLock.Lock()
	defer s.wsLock.Unlock()
	for conn := range s.wsConns {
		if err := conn.WriteJSON(msg); err != nil {
			s.Log.Warnf("Live feed write failed, dropping connection: %v", err)
			delete(s.wsConns, conn)
			conn.Close()
		}
	}
}

func (s *Server) closeLiveConns() {
	s.wsLock.Lock()
	defer s.wsLock.Unlock()
	for conn := range s.wsConns {
		conn.Close()
		delete(s.wsConns, conn)
	}
}
