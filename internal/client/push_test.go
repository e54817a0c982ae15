package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freeeve/salvo/internal/wire"
)

func TestSubscribeSendsActionAndDeliversFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan wire.SubscribeMessage, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var msg wire.SubscribeMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		subscribed <- msg
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"attack","player":2,"x":1,"y":1,"result":"miss"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		// Hold the connection until the client goes away.
		conn.ReadMessage()
	})
	c := New(newTestServer(t, mux).URL, "", "tok")

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := c.Subscribe(ctx, "g1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case msg := <-subscribed:
		if msg.Action != "subscribe" || msg.GameID != "g1" {
			t.Errorf("unexpected subscribe message %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a subscribe message")
	}

	for _, want := range []string{`{"type":"attack"`, `not json`} {
		select {
		case frame := <-sub.Frames():
			if len(frame) < len(want) || string(frame[:len(want)]) != want {
				t.Errorf("frame = %s, want prefix %s", frame, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}

	cancel()
	select {
	case _, ok := <-sub.Frames():
		for ok {
			_, ok = <-sub.Frames()
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frames channel not closed after cancel")
	}
	if err := sub.Err(); err != nil {
		t.Errorf("local close should not report an error, got %v", err)
	}
}

func TestSubscribeRejected(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		inactive bool
	}{
		{"bad credential", http.StatusUnauthorized, true},
		{"server trouble", http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, http.StatusText(tt.status), tt.status)
			})
			c := New(newTestServer(t, mux).URL, "", "bad")
			_, err := c.Subscribe(context.Background(), "g1")
			if err == nil {
				t.Fatal("expected dial error")
			}
			if got := errors.Is(err, ErrCredentialInactive); got != tt.inactive {
				t.Errorf("errors.Is(err, ErrCredentialInactive) = %v, want %v (err: %v)", got, tt.inactive, err)
			}
		})
	}
}
