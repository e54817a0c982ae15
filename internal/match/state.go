package match

import (
	"time"

	"github.com/freeeve/salvo/internal/wire"
	"github.com/freeeve/salvo/pkg/fleet"
)

// FeedbackWindow is how long transient attack feedback stays visible.
const FeedbackWindow = 2500 * time.Millisecond

// PlayerCombatState is one participant as the client currently knows it.
type PlayerCombatState struct {
	Identity       string
	DisplayName    string
	BoardSubmitted bool
	History        History
}

// Feedback is a short-lived, user-facing note about an attack outcome.
type Feedback struct {
	Text      string
	Cell      fleet.Cell
	Outcome   Outcome
	ExpiresAt time.Time
}

type pendingAttack struct {
	cell     fleet.Cell
	attacker Slot
}

// MatchSession is the client's aggregate view of one match. It is owned by
// a single goroutine (see Session) and is not safe for concurrent use.
type MatchSession struct {
	// GameID is fixed at construction; snapshots never change it.
	GameID string

	identity *Resolver
	players  [2]PlayerCombatState
	turn     TurnMachine
	winner   string
	loser    string

	pending       *pendingAttack
	boardInFlight bool
	feedback      *Feedback
	lastErr       string
}

// NewMatchSession creates an empty session for gameID.
func NewMatchSession(gameID string, identity *Resolver) *MatchSession {
	if identity == nil {
		identity = NewResolver("", "")
	}
	return &MatchSession{GameID: gameID, identity: identity}
}

// Self returns the local player's slot, or SlotUnknown.
func (m *MatchSession) Self() Slot { return m.identity.Slot() }

// Player returns the state for a slot, or nil for SlotUnknown.
func (m *MatchSession) Player(s Slot) *PlayerCombatState {
	if !s.Valid() {
		return nil
	}
	return &m.players[s.index()]
}

// Turn returns the turn state machine.
func (m *MatchSession) Turn() *TurnMachine { return &m.turn }

// Ended reports whether the match has reached its terminal state.
func (m *MatchSession) Ended() bool { return m.turn.Phase() == PhaseEnded }

// BoardsSubmitted reports whether both players have submitted boards.
func (m *MatchSession) BoardsSubmitted() bool {
	return m.players[0].BoardSubmitted && m.players[1].BoardSubmitted
}

// CanAct reports whether the given slot may fire right now.
func (m *MatchSession) CanAct(s Slot) bool {
	return s.Valid() &&
		m.turn.Phase() == PhaseActive &&
		m.turn.Owner() == s &&
		m.BoardsSubmitted() &&
		m.pending == nil
}

// slotForTurn normalises a turn indicator to a slot. Unknown uuids and
// absent references yield SlotUnknown.
func (m *MatchSession) slotForTurn(ref wire.TurnRef) Slot {
	if ref.Index != 0 {
		if s := Slot(ref.Index); s.Valid() {
			return s
		}
		return SlotUnknown
	}
	if ref.ID == "" {
		return SlotUnknown
	}
	for i := range m.players {
		if id := m.players[i].Identity; id != "" && sameIdentity(id, ref.ID) {
			return Slot(i + 1)
		}
	}
	return SlotUnknown
}

func (m *MatchSession) end(winner, loser string) bool {
	changed := m.turn.End()
	if m.winner == "" && winner != "" {
		m.winner = winner
		changed = true
	}
	if m.loser == "" && loser != "" {
		m.loser = loser
		changed = true
	}
	return changed
}
