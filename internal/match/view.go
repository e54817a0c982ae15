package match

import (
	"strconv"
	"time"

	"github.com/freeeve/salvo/pkg/fleet"
)

// PlayerView is a read-only copy of one participant's state.
type PlayerView struct {
	Slot           Slot
	Identity       string
	DisplayName    string
	BoardSubmitted bool
	Hits           []AttackRecord
	Misses         []AttackRecord
	Sunk           []fleet.Cell
}

// View is the projection handed to renderers. It is a snapshot copy and is
// never mutated after publication.
type View struct {
	GameID    string
	SelfSlot  Slot
	Self      PlayerView
	Opponent  PlayerView
	Phase     Phase
	TurnOwner Slot
	MyTurn    bool
	CanAct    bool
	Ended     bool
	Winner    string
	Loser     string
	Won       bool
	Pending   *fleet.Cell
	Feedback  *Feedback
	LastError string
}

// Attacked reports whether the local player already attacked c.
func (v *View) Attacked(c fleet.Cell) bool {
	for _, set := range [][]AttackRecord{v.Self.Hits, v.Self.Misses} {
		for _, r := range set {
			if r.Cell == c {
				return true
			}
		}
	}
	return false
}

func (v View) at(now time.Time) View {
	if v.Feedback != nil && !now.Before(v.Feedback.ExpiresAt) {
		v.Feedback = nil
	}
	return v
}

func playerView(m *MatchSession, s Slot) PlayerView {
	p := m.Player(s)
	if p == nil {
		return PlayerView{}
	}
	return PlayerView{
		Slot:           s,
		Identity:       p.Identity,
		DisplayName:    p.DisplayName,
		BoardSubmitted: p.BoardSubmitted,
		Hits:           p.History.Hits(),
		Misses:         p.History.Misses(),
		Sunk:           p.History.Sunk(),
	}
}

// Project builds a View of the session's current state.
func (m *MatchSession) Project() View {
	self := m.Self()
	v := View{
		GameID:    m.GameID,
		SelfSlot:  self,
		Self:      playerView(m, self),
		Opponent:  playerView(m, self.Other()),
		Phase:     m.turn.Phase(),
		TurnOwner: m.turn.Owner(),
		CanAct:    m.CanAct(self),
		Ended:     m.Ended(),
		Winner:    m.winner,
		Loser:     m.loser,
		LastError: m.lastErr,
	}
	v.MyTurn = self.Valid() && v.TurnOwner == self
	if self.Valid() && m.winner != "" {
		v.Won = sameIdentity(m.winner, m.Player(self).Identity) ||
			m.winner == m.identity.Subject() ||
			m.winner == strconv.Itoa(int(self))
	}
	if m.pending != nil {
		c := m.pending.cell
		v.Pending = &c
	}
	if m.feedback != nil {
		fb := *m.feedback
		v.Feedback = &fb
	}
	return v
}
