package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsInitBackfill = 50
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The admin page is served from the same origin; the check stays
	// permissive so the endpoint also works behind reverse proxies.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsInitMessage is the first frame sent on every live-tail connection: the
// most recent event rows so the page renders without waiting for traffic.
type wsInitMessage struct {
	Type   string     `json:"type"`
	Events [][]string `json:"events"`
	Count  int        `json:"count"`
}

// handleEventsWS streams interaction events to admin clients as they are
// recorded. Requires admin access; plain HTTP 401 before the upgrade.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.adminAuth == nil || !s.adminAuth(r) {
		s.writeError(w, http.StatusUnauthorized, "unauthorized", "admin access required")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	if err := s.sendInit(conn); err != nil {
		s.logger.Debugf("websocket init write failed: %v", err)
		return
	}

	id, events := s.hub.Register()
	defer s.hub.Unregister(id)

	// Reads are discarded; the pump only detects client close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case envelope, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(envelope); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) sendInit(conn *websocket.Conn) error {
	rows, err := s.events.ReadEvents()
	if err != nil {
		s.logger.Warnf("reading events for websocket init: %v", err)
		rows = nil
	}
	// Drop the header row, keep the most recent entries.
	if len(rows) > 0 {
		rows = rows[1:]
	}
	if len(rows) > wsInitBackfill {
		rows = rows[len(rows)-wsInitBackfill:]
	}
	if rows == nil {
		rows = [][]string{}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(wsInitMessage{
		Type:   "init",
		Events: rows,
		Count:  len(rows),
	})
}
