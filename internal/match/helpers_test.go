package match

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/salvo/internal/wire"
	"github.com/freeeve/salvo/pkg/fleet"
)

const (
	uuidOne = "6f1c2b4e-8a55-4d0b-9d3e-2f0c6a1b7e01"
	uuidTwo = "0b7d9e3a-1c44-4f6a-8e2d-5a9c3f7b6d02"
)

func pt(row, col int) wire.Point { return wire.PointOf(fleet.Cell{Row: row, Col: col}) }

// activeSnapshot returns a snapshot with both boards submitted and the
// given turn owner.
func activeSnapshot(turn int) *wire.Snapshot {
	return &wire.Snapshot{
		GameID:    "g1",
		Turn:      wire.TurnIndex(turn),
		PlayerOne: &wire.PlayerSnapshot{UUID: uuidOne, Username: "ann", BoardSubmitted: true},
		PlayerTwo: &wire.PlayerSnapshot{UUID: uuidTwo, Username: "bob", BoardSubmitted: true},
	}
}

// newSelfSession returns a MatchSession where the local player is slot 1.
func newSelfSession() *MatchSession {
	return NewMatchSession("g1", NewResolver("tok", uuidOne))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeGateway struct {
	mu      sync.Mutex
	fires   []fleet.Cell
	gameIDs []string
	boards  int
	started chan struct{} // signalled when Fire is entered, if non-nil
	release chan struct{} // Fire blocks until closed, if non-nil

	fireResp  *wire.FireResponse
	fireErr   error
	boardSnap *wire.Snapshot
	boardErr  error
}

func (g *fakeGateway) Fire(ctx context.Context, gameID string, cell fleet.Cell) (*wire.FireResponse, error) {
	g.mu.Lock()
	g.fires = append(g.fires, cell)
	g.gameIDs = append(g.gameIDs, gameID)
	started, release := g.started, g.release
	resp, err := g.fireResp, g.fireErr
	g.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return resp, err
}

func (g *fakeGateway) SubmitBoard(_ context.Context, gameID string, _ fleet.Board) (*wire.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.boards++
	g.gameIDs = append(g.gameIDs, gameID)
	return g.boardSnap, g.boardErr
}

func (g *fakeGateway) fireCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.fires)
}

// waitView blocks until cond holds for the session's view.
func waitView(t *testing.T, s *Session, cond func(View) bool) View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		v := s.View()
		if cond(v) {
			return v
		}
		select {
		case <-s.Updates():
		case <-deadline:
			t.Fatalf("timed out waiting for view, last: %+v", v)
		}
	}
}
