package match

// Slot is a participant's 1-or-2 position in the match. The zero value
// means the slot is not known.
type Slot int

const (
	SlotUnknown Slot = 0
	SlotOne     Slot = 1
	SlotTwo     Slot = 2
)

// Valid reports whether s is 1 or 2.
func (s Slot) Valid() bool { return s == SlotOne || s == SlotTwo }

// Other returns the opposing slot, or SlotUnknown.
func (s Slot) Other() Slot {
	switch s {
	case SlotOne:
		return SlotTwo
	case SlotTwo:
		return SlotOne
	}
	return SlotUnknown
}

func (s Slot) index() int { return int(s) - 1 }

// Phase is the turn state machine's coarse state.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// TurnMachine tracks NotStarted -> Active(owner) -> Ended. Ended is terminal.
type TurnMachine struct {
	phase Phase
	owner Slot
}

// Phase returns the current phase.
func (t *TurnMachine) Phase() Phase { return t.phase }

// Owner returns the slot whose turn it is while Active, else SlotUnknown.
func (t *TurnMachine) Owner() Slot {
	if t.phase != PhaseActive {
		return SlotUnknown
	}
	return t.owner
}

// Advance moves the turn to owner. It reports whether the state changed.
// Invalid slots and any call after End are ignored.
func (t *TurnMachine) Advance(owner Slot) bool {
	if t.phase == PhaseEnded || !owner.Valid() {
		return false
	}
	if t.phase == PhaseActive && t.owner == owner {
		return false
	}
	t.phase = PhaseActive
	t.owner = owner
	return true
}

// End freezes the machine. It reports whether the state changed.
func (t *TurnMachine) End() bool {
	if t.phase == PhaseEnded {
		return false
	}
	t.phase = PhaseEnded
	t.owner = SlotUnknown
	return true
}
