package devserver

import (
	"errors"
	"sync"

	"github.com/freeeve/salvo/internal/wire"
	"github.com/freeeve/salvo/pkg/fleet"
)

// Game status values reported in snapshots.
const (
	StatusPlacing  = "placing"
	StatusActive   = "active"
	StatusFinished = "finished"
)

var (
	ErrNotPlayer    = errors.New("not a player in this game")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrAlreadyFired = errors.New("cell already fired at")
	ErrBoardLocked  = errors.New("board already submitted")
	ErrBoardsPending = errors.New("waiting for both boards")
	ErrGameOver     = errors.New("game is over")
	ErrBadBoard     = errors.New("board does not hold exactly one of each ship")
	ErrOffGrid      = errors.New("cell is off the grid")
)

// Player is a registered dev user.
type Player struct {
	ID   string
	Name string
}

type seat struct {
	Player
	board     fleet.Board
	submitted bool
	// attacks made by this seat against the opponent
	hits   []wire.Point
	misses []wire.Point
	sunk   []wire.Point
	fired  map[fleet.Cell]bool
}

// Game is one in-memory match. It decides hits, sinks and the winner.
type Game struct {
	ID string

	mu     sync.Mutex
	seats  [2]*seat
	status string
	turn   int // 1 or 2 once active
	winner string
	loser  string
}

func newGame(id string, one, two Player) *Game {
	return &Game{
		ID:     id,
		seats:  [2]*seat{{Player: one, fired: map[fleet.Cell]bool{}}, {Player: two, fired: map[fleet.Cell]bool{}}},
		status: StatusPlacing,
	}
}

// SlotOf returns the 1-based seat of a player, or 0.
func (g *Game) SlotOf(playerID string) int {
	for i, s := range g.seats {
		if s.ID == playerID {
			return i + 1
		}
	}
	return 0
}

// Snapshot returns the public state of the game. Boards are never included.
func (g *Game) Snapshot() wire.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() wire.Snapshot {
	snap := wire.Snapshot{
		GameID:    g.ID,
		Status:    g.status,
		Ended:     g.status == StatusFinished,
		Winner:    g.winner,
		Loser:     g.loser,
		PlayerOne: g.seats[0].public(),
		PlayerTwo: g.seats[1].public(),
	}
	if g.status == StatusActive {
		// Snapshots name the turn owner by id; fire responses use the index.
		snap.Turn = wire.TurnID(g.seats[g.turn-1].ID)
	}
	return snap
}

func (s *seat) public() *wire.PlayerSnapshot {
	return &wire.PlayerSnapshot{
		UUID:           s.ID,
		Username:       s.Name,
		BoardSubmitted: s.submitted,
		Hits:           append([]wire.Point{}, s.hits...),
		Misses:         append([]wire.Point{}, s.misses...),
		Sunk:           append([]wire.Point{}, s.sunk...),
	}
}

// SubmitBoard locks in a player's board. The game starts, with player one
// to move, once both boards are in.
func (g *Game) SubmitBoard(playerID string, board fleet.Board) (wire.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot := g.SlotOf(playerID)
	if slot == 0 {
		return wire.Snapshot{}, ErrNotPlayer
	}
	if g.status == StatusFinished {
		return wire.Snapshot{}, ErrGameOver
	}
	s := g.seats[slot-1]
	if s.submitted {
		return wire.Snapshot{}, ErrBoardLocked
	}
	if !completeBoard(board) {
		return wire.Snapshot{}, ErrBadBoard
	}
	s.board = board
	s.submitted = true
	if g.seats[0].submitted && g.seats[1].submitted {
		g.status = StatusActive
		g.turn = 1
	}
	return g.snapshotLocked(), nil
}

// completeBoard checks that every catalog ship occupies exactly its size in
// cells and nothing else is on the board.
func completeBoard(b fleet.Board) bool {
	counts := make(map[fleet.ShapeName]int)
	for _, c := range fleet.AllCells() {
		if name := b.At(c); name != "" {
			counts[name]++
		}
	}
	shapes := fleet.Catalog()
	if len(counts) != len(shapes) {
		return false
	}
	for _, s := range shapes {
		if counts[s.Name] != s.Size() {
			return false
		}
	}
	return true
}

// Fire resolves an attack by playerID. The returned events describe the
// attack and, when it ends the game, the game_over that follows.
func (g *Game) Fire(playerID string, cell fleet.Cell) (wire.FireResponse, []wire.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot := g.SlotOf(playerID)
	switch {
	case slot == 0:
		return wire.FireResponse{}, nil, ErrNotPlayer
	case g.status == StatusFinished:
		return wire.FireResponse{}, nil, ErrGameOver
	case g.status != StatusActive:
		return wire.FireResponse{}, nil, ErrBoardsPending
	case g.turn != slot:
		return wire.FireResponse{}, nil, ErrNotYourTurn
	case !cell.InBounds():
		return wire.FireResponse{}, nil, ErrOffGrid
	}
	me, opp := g.seats[slot-1], g.seats[2-slot]
	if me.fired[cell] {
		return wire.FireResponse{}, nil, ErrAlreadyFired
	}
	me.fired[cell] = true

	p := wire.PointOf(cell)
	resp := wire.FireResponse{Result: wire.ResultMiss, Message: "Miss"}
	ship := opp.board.At(cell)
	if ship != "" {
		me.hits = append(me.hits, p)
		resp.Result = wire.ResultHit
		resp.Message = "Hit!"
		if shipCells := opp.shipCells(ship); me.firedAll(shipCells) {
			resp.Sunk = true
			resp.Message = "You sank their " + string(ship) + "!"
			for _, c := range shipCells {
				me.sunk = append(me.sunk, wire.PointOf(c))
			}
		}
	} else {
		me.misses = append(me.misses, p)
	}

	events := []wire.Event{{
		Type: wire.EventAttack, Player: slot, X: p.X, Y: p.Y,
		Result: resp.Result, Sunk: resp.Sunk,
	}}
	if me.firedAll(opp.allShipCells()) {
		g.status = StatusFinished
		g.turn = 0
		g.winner, g.loser = me.ID, opp.ID
		resp.GameOver = true
		resp.Winner = me.ID
		events = append(events, wire.Event{Type: wire.EventGameOver, Winner: me.ID, Loser: opp.ID})
		return resp, events, nil
	}

	g.turn = 3 - slot
	resp.NextTurn = wire.TurnIndex(g.turn)
	events[0].NextTurn = resp.NextTurn
	return resp, events, nil
}

func (s *seat) shipCells(name fleet.ShapeName) []fleet.Cell {
	var out []fleet.Cell
	for _, c := range fleet.AllCells() {
		if s.board.At(c) == name {
			out = append(out, c)
		}
	}
	return out
}

func (s *seat) allShipCells() []fleet.Cell {
	var out []fleet.Cell
	for _, c := range fleet.AllCells() {
		if s.board.At(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

func (s *seat) firedAll(cells []fleet.Cell) bool {
	for _, c := range cells {
		if !s.fired[c] {
			return false
		}
	}
	return len(cells) > 0
}
