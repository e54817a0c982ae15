// Package wire defines the JSON shapes exchanged with the game authority,
// the identity service, and the push channel.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/freeeve/salvo/pkg/fleet"
)

// Attack results.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Event and envelope types carried by the push channel.
const (
	TypeSnapshot  = "snapshot"
	TypeEvents    = "events"
	EventAttack   = "attack"
	EventGameOver = "game_over"
)

// Point is a cell as the authority encodes it: x is the column, y the row.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PointOf converts a grid cell to its wire form.
func PointOf(c fleet.Cell) Point { return Point{X: c.Col, Y: c.Row} }

// Cell converts the point back to a grid cell.
func (p Point) Cell() fleet.Cell { return fleet.Cell{Row: p.Y, Col: p.X} }

// TurnRef is a turn indicator that may arrive either as a 1/2 slot index
// or as a player uuid. The zero value means "not present".
type TurnRef struct {
	Index int
	ID    string
}

// TurnIndex builds a slot-index turn reference.
func TurnIndex(i int) TurnRef { return TurnRef{Index: i} }

// TurnID builds a player-uuid turn reference.
func TurnID(id string) TurnRef { return TurnRef{ID: id} }

// IsZero reports whether the reference is absent.
func (t TurnRef) IsZero() bool { return t.Index == 0 && t.ID == "" }

func (t TurnRef) String() string {
	if t.Index != 0 {
		return strconv.Itoa(t.Index)
	}
	return t.ID
}

func (t TurnRef) MarshalJSON() ([]byte, error) {
	switch {
	case t.Index != 0:
		return json.Marshal(t.Index)
	case t.ID != "":
		return json.Marshal(t.ID)
	default:
		return []byte("null"), nil
	}
}

func (t *TurnRef) UnmarshalJSON(data []byte) error {
	*t = TurnRef{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if n, err := strconv.Atoi(s); err == nil {
			t.Index = n
		} else {
			t.ID = s
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("turn must be an index or an id: %w", err)
	}
	t.Index = n
	return nil
}

// PlayerSnapshot is one participant's authoritative state. Hits, Misses and
// Sunk are the attacks this player has made against the opponent.
type PlayerSnapshot struct {
	UUID           string  `json:"uuid"`
	Username       string  `json:"username,omitempty"`
	BoardSubmitted bool    `json:"boardSubmitted"`
	Hits           []Point `json:"hits"`
	Misses         []Point `json:"misses"`
	Sunk           []Point `json:"sunk"`
}

// Snapshot is a full replace-style match state.
type Snapshot struct {
	GameID    string          `json:"gameId"`
	Status    string          `json:"status,omitempty"`
	Ended     bool            `json:"ended,omitempty"`
	Turn      TurnRef         `json:"turn,omitzero"`
	Winner    string          `json:"winner,omitempty"`
	Loser     string          `json:"loser,omitempty"`
	PlayerOne *PlayerSnapshot `json:"playerOne,omitempty"`
	PlayerTwo *PlayerSnapshot `json:"playerTwo,omitempty"`
}

// Player returns the snapshot for slot 1 or 2, or nil.
func (s *Snapshot) Player(slot int) *PlayerSnapshot {
	switch slot {
	case 1:
		return s.PlayerOne
	case 2:
		return s.PlayerTwo
	}
	return nil
}

// IsTerminal reports whether the snapshot marks the match as over.
func (s *Snapshot) IsTerminal() bool {
	if s.Ended || s.Winner != "" {
		return true
	}
	switch s.Status {
	case "finished", "ended", "over":
		return true
	}
	return false
}

// Event is one incremental update in an event batch. NextTurn is optional;
// when present it is the authority's turn indicator after the event.
type Event struct {
	Type     string  `json:"type"`
	Player   int     `json:"player,omitempty"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Result   string  `json:"result,omitempty"`
	Sunk     bool    `json:"sunk,omitempty"`
	NextTurn TurnRef `json:"nextTurn,omitzero"`
	Winner   string  `json:"winner,omitempty"`
	Loser    string  `json:"loser,omitempty"`
}

// Envelope is the push-channel wrapper, the same shape the authority's hub
// broadcasts.
type Envelope struct {
	Type   string          `json:"type"`
	GameID string          `json:"game_id"`
	Data   json.RawMessage `json:"data"`
}

// SubscribeMessage is sent by the client to scope a push connection to a match.
type SubscribeMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	GameID string `json:"game_id"`
}

// FireRequest is the body of POST /fire.
type FireRequest struct {
	GameID string `json:"gameId"`
	Token  string `json:"token"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// FireResponse is the authority's answer to a fire request.
type FireResponse struct {
	Result   string  `json:"result"`
	Sunk     bool    `json:"sunk,omitempty"`
	Message  string  `json:"message,omitempty"`
	NextTurn TurnRef `json:"nextTurn,omitzero"`
	GameOver bool    `json:"gameOver,omitempty"`
	Winner   string  `json:"winner,omitempty"`
}

// SubmitBoardRequest is the body of POST /submit-board. Board is row-major.
type SubmitBoardRequest struct {
	GameID string     `json:"gameId"`
	Token  string     `json:"token"`
	Board  [][]string `json:"board"`
}

// Introspection is the identity service's view of a credential.
type Introspection struct {
	Active   bool   `json:"active"`
	Subject  string `json:"subject"`
	Username string `json:"username,omitempty"`
}

// Handoff is what matchmaking gives the client when a match is formed.
// Participants are ordered: position 0 is slot 1.
type Handoff struct {
	GameID       string   `json:"gameId"`
	Participants []string `json:"participants"`
}
