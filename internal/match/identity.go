package match

import (
	"github.com/google/uuid"

	"github.com/freeeve/salvo/internal/auth"
)

// Resolver works out which match participant the local credential belongs
// to. Participant-token resolution is a bootstrap hint; once a snapshot has
// bound the slot by uuid, tokens are never consulted again.
type Resolver struct {
	token   string
	subject string
	slot    Slot
	bound   bool
}

// NewResolver creates a resolver for the local token and subject.
func NewResolver(token, subject string) *Resolver {
	return &Resolver{token: token, subject: subject}
}

// Slot returns the resolved slot, or SlotUnknown.
func (r *Resolver) Slot() Slot { return r.slot }

// Subject returns the local subject identifier.
func (r *Resolver) Subject() string { return r.subject }

// Bound reports whether the slot was fixed by an authoritative snapshot.
func (r *Resolver) Bound() bool { return r.bound }

// ResolveParticipants derives the slot from the ordered participant tokens
// handed over by matchmaking: an exact token match wins, otherwise the
// first token whose embedded subject equals the local subject.
func (r *Resolver) ResolveParticipants(tokens []string) Slot {
	if r.bound {
		return r.slot
	}
	if len(tokens) > 2 {
		tokens = tokens[:2]
	}
	for i, tok := range tokens {
		if tok != "" && tok == r.token {
			r.slot = Slot(i + 1)
			return r.slot
		}
	}
	if r.subject == "" {
		return r.slot
	}
	for i, tok := range tokens {
		sub, err := auth.SubjectFromToken(tok)
		if err == nil && sameIdentity(sub, r.subject) {
			r.slot = Slot(i + 1)
			return r.slot
		}
	}
	return r.slot
}

// ResolveSnapshot compares the local subject with the uuids a snapshot
// reports for each slot. A match binds (or corrects) the slot. It reports
// whether the slot changed.
func (r *Resolver) ResolveSnapshot(one, two string) bool {
	if r.subject == "" {
		return false
	}
	var found Slot
	switch {
	case one != "" && sameIdentity(one, r.subject):
		found = SlotOne
	case two != "" && sameIdentity(two, r.subject):
		found = SlotTwo
	default:
		return false
	}
	r.bound = true
	if found == r.slot {
		return false
	}
	r.slot = found
	return true
}

// sameIdentity compares two identifiers, treating uuids in any textual
// form as equal when they parse to the same value.
func sameIdentity(a, b string) bool {
	if a == b {
		return true
	}
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	if errA == nil && errB == nil {
		return ua == ub
	}
	return false
}
