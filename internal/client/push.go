package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/salvo/internal/wire"
)

// Subscription is a push connection scoped to one match. Frames are
// delivered raw; the channel closes when the connection ends.
type Subscription struct {
	gameID string
	conn   *websocket.Conn
	frames chan []byte
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

// Subscribe opens the push channel and scopes it to gameID. Cancelling ctx
// closes the subscription.
func (c *Client) Subscribe(ctx context.Context, gameID string) (*Subscription, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws?token=" + url.QueryEscape(c.token)
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("ws dial: %w", ErrCredentialInactive)
		}
		return nil, fmt.Errorf("ws dial: %w", err)
	}
	if err := conn.WriteJSON(wire.SubscribeMessage{Action: "subscribe", GameID: gameID}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ws subscribe: %w", err)
	}

	s := &Subscription{
		gameID: gameID,
		conn:   conn,
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

// Frames returns the channel of raw inbound messages.
func (s *Subscription) Frames() <-chan []byte { return s.frames }

// Err returns the read error that ended the subscription, or nil if it was
// closed locally or is still open.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.conn.Close()
}

func (s *Subscription) readLoop() {
	defer close(s.frames)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.err = err
				log.Debug().Err(err).Str("gameId", s.gameID).Msg("WS read error")
			}
			s.mu.Unlock()
			return
		}
		select {
		case s.frames <- msg:
		case <-s.done:
			return
		}
	}
}
