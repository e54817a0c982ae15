package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/salvo/internal/wire"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveWS upgrades GET /ws. The token comes in ?token= since browsers
// cannot set headers on a WebSocket handshake.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		writeError(w, http.StatusUnauthorized, "missing token parameter")
		return
	}
	claims, err := s.jwt.ValidateToken(tokenStr)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &wsConn{
		conn:     conn,
		playerID: claims.PlayerID(),
		send:     make(chan []byte, sendBufSize),
	}
	s.hub.register(c)
	go s.writePump(c)
	go s.readPump(c)

	log.Info().Str("playerId", c.playerID).Int("total", s.hub.ConnectionCount()).Msg("Push client connected")
}

func (s *Server) readPump(c *wsConn) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
		log.Info().Str("playerId", c.playerID).Msg("Push client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("playerId", c.playerID).Msg("Push client unexpected close")
			}
			return
		}

		var msg wire.SubscribeMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.GameID == "" {
			continue
		}
		switch msg.Action {
		case "subscribe":
			s.hub.subscribe(c, msg.GameID)
			// Catch the subscriber up immediately.
			if g, err := s.store.Game(msg.GameID); err == nil {
				s.hub.BroadcastSnapshot(g.Snapshot())
			}
		case "unsubscribe":
			s.hub.unsubscribe(c, msg.GameID)
		}
	}
}

// writePump sends queued messages. Messages already queued are coalesced
// into one frame, newline separated.
func (s *Server) writePump(c *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			for range len(c.send) {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
