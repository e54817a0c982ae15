package devserver

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/freeeve/salvo/internal/wire"
)

// ErrGameNotFound is returned for an unknown game id.
var ErrGameNotFound = errors.New("game not found")

const gameIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type ticket struct {
	player Player
	token  string
	ready  chan *wire.Handoff
}

// Store keeps dev users, games and the single matchmaking queue in memory.
type Store struct {
	mu      sync.Mutex
	users   map[string]Player // by name
	games   map[string]*Game
	waiting *ticket
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users: make(map[string]Player),
		games: make(map[string]*Game),
	}
}

// User returns the player registered under name, creating it with a fresh
// uuid the first time.
func (s *Store) User(name string) Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.users[name]; ok {
		return p
	}
	p := Player{ID: uuid.NewString(), Name: name}
	s.users[name] = p
	return p
}

// Game returns a game by id.
func (s *Store) Game(id string) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// Create starts a game between two players.
func (s *Store) Create(one, two Player) (*Game, error) {
	id, err := gonanoid.Generate(gameIDAlphabet, 10)
	if err != nil {
		return nil, err
	}
	g := newGame(id, one, two)
	s.mu.Lock()
	s.games[id] = g
	s.mu.Unlock()
	return g, nil
}

// Join queues a player for a match. The first caller waits; the second is
// paired with it and both get the same hand-off, participants in seat order.
func (s *Store) Join(ctx context.Context, p Player, token string) (*wire.Handoff, error) {
	s.mu.Lock()
	if w := s.waiting; w != nil && w.player.ID != p.ID {
		s.waiting = nil
		s.mu.Unlock()

		g, err := s.Create(w.player, p)
		if err != nil {
			close(w.ready)
			return nil, err
		}
		h := &wire.Handoff{GameID: g.ID, Participants: []string{w.token, token}}
		w.ready <- h
		return h, nil
	}
	t := &ticket{player: p, token: token, ready: make(chan *wire.Handoff, 1)}
	s.waiting = t
	s.mu.Unlock()

	select {
	case h, ok := <-t.ready:
		if !ok {
			return nil, errors.New("matchmaking failed")
		}
		return h, nil
	case <-ctx.Done():
		s.mu.Lock()
		if s.waiting == t {
			s.waiting = nil
		}
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}
