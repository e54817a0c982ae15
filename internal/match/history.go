package match

import "github.com/freeeve/salvo/pkg/fleet"

// Outcome of a single attack.
type Outcome string

const (
	Hit  Outcome = "hit"
	Miss Outcome = "miss"
)

// AttackRecord is one resolved attack by a player.
type AttackRecord struct {
	Cell    fleet.Cell `json:"cell"`
	Outcome Outcome    `json:"outcome"`
	Sunk    bool       `json:"sunk,omitempty"`
}

// History is an attacker's append-only set of attack records keyed by
// cell. Insertion order is kept for display.
type History struct {
	records []AttackRecord
	index   map[fleet.Cell]int
}

// Add merges rec into the history. A cell that is already recorded keeps
// its first outcome; only its sunk flag may be raised. Add reports whether
// anything changed.
func (h *History) Add(rec AttackRecord) bool {
	if h.index == nil {
		h.index = make(map[fleet.Cell]int)
	}
	if i, ok := h.index[rec.Cell]; ok {
		if rec.Sunk && h.records[i].Outcome == Hit && !h.records[i].Sunk {
			h.records[i].Sunk = true
			return true
		}
		return false
	}
	if rec.Outcome == Miss {
		rec.Sunk = false
	}
	h.index[rec.Cell] = len(h.records)
	h.records = append(h.records, rec)
	return true
}

// Has reports whether the cell has been attacked.
func (h *History) Has(c fleet.Cell) bool {
	_, ok := h.index[c]
	return ok
}

// Len returns the number of attacks recorded.
func (h *History) Len() int { return len(h.records) }

// Records returns a copy of all records in attack order.
func (h *History) Records() []AttackRecord {
	return append([]AttackRecord(nil), h.records...)
}

// Hits returns the records with a hit outcome.
func (h *History) Hits() []AttackRecord { return h.filter(func(r AttackRecord) bool { return r.Outcome == Hit }) }

// Misses returns the records with a miss outcome.
func (h *History) Misses() []AttackRecord {
	return h.filter(func(r AttackRecord) bool { return r.Outcome == Miss })
}

// Sunk returns the cells of hits flagged as sinking a ship.
func (h *History) Sunk() []fleet.Cell {
	var out []fleet.Cell
	for _, r := range h.records {
		if r.Sunk {
			out = append(out, r.Cell)
		}
	}
	return out
}

func (h *History) filter(keep func(AttackRecord) bool) []AttackRecord {
	var out []AttackRecord
	for _, r := range h.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
