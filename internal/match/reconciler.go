package match

import (
	"github.com/freeeve/salvo/internal/wire"
)

// The reconciler merges two unordered input streams into the session:
// full snapshots and incremental event batches. Merges are unions keyed by
// cell, so re-applying known information is a no-op and a stale snapshot
// never erases history already learned from an event.

// ApplySnapshot merges a full snapshot. Identity, display name and board
// status are taken from the snapshot as authoritative; attack sets are
// unioned. It reports whether the session changed.
func (m *MatchSession) ApplySnapshot(s *wire.Snapshot) bool {
	changed := false
	for _, slot := range []Slot{SlotOne, SlotTwo} {
		ps := s.Player(int(slot))
		if ps == nil {
			continue
		}
		p := m.Player(slot)
		if ps.UUID != "" && p.Identity != ps.UUID {
			p.Identity = ps.UUID
			changed = true
		}
		if ps.Username != "" && p.DisplayName != ps.Username {
			p.DisplayName = ps.Username
			changed = true
		}
		if p.BoardSubmitted != ps.BoardSubmitted {
			p.BoardSubmitted = ps.BoardSubmitted
			changed = true
		}
		if mergeSnapshotAttacks(&p.History, ps) {
			changed = true
		}
	}

	if m.resolveIdentity() {
		changed = true
	}

	if !s.Turn.IsZero() && m.turn.Advance(m.slotForTurn(s.Turn)) {
		changed = true
	}
	if s.IsTerminal() && m.end(s.Winner, s.Loser) {
		changed = true
	}
	return changed
}

func mergeSnapshotAttacks(h *History, ps *wire.PlayerSnapshot) bool {
	changed := false
	sunk := make(map[wire.Point]bool, len(ps.Sunk))
	for _, pt := range ps.Sunk {
		sunk[pt] = true
	}
	for _, pt := range ps.Hits {
		if h.Add(AttackRecord{Cell: pt.Cell(), Outcome: Hit, Sunk: sunk[pt]}) {
			changed = true
		}
	}
	for _, pt := range ps.Sunk {
		if h.Add(AttackRecord{Cell: pt.Cell(), Outcome: Hit, Sunk: true}) {
			changed = true
		}
	}
	for _, pt := range ps.Misses {
		if h.Add(AttackRecord{Cell: pt.Cell(), Outcome: Miss}) {
			changed = true
		}
	}
	return changed
}

// ApplyEvents merges an ordered batch of events. Attack events are
// attributed to the attacker's slot; a game_over event ends the match.
func (m *MatchSession) ApplyEvents(events []wire.Event) bool {
	changed := false
	for _, ev := range events {
		switch ev.Type {
		case wire.EventAttack:
			p := m.Player(Slot(ev.Player))
			if p == nil {
				continue
			}
			rec := AttackRecord{
				Cell:    wire.Point{X: ev.X, Y: ev.Y}.Cell(),
				Outcome: Outcome(ev.Result),
				Sunk:    ev.Sunk,
			}
			if p.History.Add(rec) {
				changed = true
			}
			if !ev.NextTurn.IsZero() && m.turn.Advance(m.slotForTurn(ev.NextTurn)) {
				changed = true
			}
		case wire.EventGameOver:
			if m.end(ev.Winner, ev.Loser) {
				changed = true
			}
		}
	}
	return changed
}

// applyFireResult records the local player's resolved attack and moves the
// turn from the response's nextTurn.
func (m *MatchSession) applyFireResult(attacker Slot, rec AttackRecord, resp *wire.FireResponse) {
	if p := m.Player(attacker); p != nil {
		p.History.Add(rec)
	}
	if !resp.NextTurn.IsZero() {
		m.turn.Advance(m.slotForTurn(resp.NextTurn))
	}
	if resp.GameOver {
		m.end(resp.Winner, "")
	}
}

// resolveIdentity re-runs snapshot-based identity resolution against the
// uuids currently held for each slot.
func (m *MatchSession) resolveIdentity() bool {
	return m.identity.ResolveSnapshot(m.players[0].Identity, m.players[1].Identity)
}
