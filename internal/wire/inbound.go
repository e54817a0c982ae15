package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned for any inbound payload that is not a snapshot
// or an event batch.
var ErrMalformed = errors.New("malformed inbound payload")

// Inbound is a parsed push or REST payload. The only implementations are
// *SnapshotMsg and *EventBatch.
type Inbound interface {
	inbound()
}

// SnapshotMsg carries a full match snapshot.
type SnapshotMsg struct {
	Snapshot Snapshot
}

// EventBatch carries ordered incremental events.
type EventBatch struct {
	GameID string
	Events []Event
}

func (*SnapshotMsg) inbound() {}
func (*EventBatch) inbound()  {}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// ParseInbound classifies raw bytes as a snapshot or an event batch.
// Accepted shapes:
//
//	{"type":"snapshot","game_id":..,"data":{snapshot}}
//	{"type":"events","game_id":..,"data":[events]}
//	{"type":"attack"|"game_over", ...}   single event
//	{"playerOne":..,"playerTwo":..}      bare snapshot
//	{"events":[...]}                     bare batch
//	[events]                             bare batch
func ParseInbound(data []byte) (Inbound, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, malformed("empty payload")
	}
	if data[0] == '[' {
		return parseBatch("", data)
	}
	if data[0] != '{' {
		return nil, malformed("unexpected leading byte %q", data[0])
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, malformed("%v", err)
	}

	var typ, gameID string
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &typ); err != nil {
			return nil, malformed("type: %v", err)
		}
	}
	if raw, ok := fields["game_id"]; ok {
		_ = json.Unmarshal(raw, &gameID)
	}

	switch typ {
	case TypeSnapshot:
		if raw, ok := fields["data"]; ok {
			return parseSnapshot(raw, gameID)
		}
		return parseSnapshot(data, gameID)
	case TypeEvents:
		if raw, ok := fields["data"]; ok {
			return parseBatch(gameID, raw)
		}
		if raw, ok := fields["events"]; ok {
			return parseBatch(gameID, raw)
		}
		return nil, malformed("events envelope without data")
	case EventAttack, EventGameOver:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, malformed("event: %v", err)
		}
		if err := checkEvent(ev); err != nil {
			return nil, err
		}
		return &EventBatch{GameID: gameID, Events: []Event{ev}}, nil
	case "":
		if _, ok := fields["events"]; ok {
			return parseBatch(gameID, fields["events"])
		}
		_, one := fields["playerOne"]
		_, two := fields["playerTwo"]
		if one || two {
			return parseSnapshot(data, gameID)
		}
		return nil, malformed("untagged object is neither snapshot nor batch")
	default:
		return nil, malformed("unknown type %q", typ)
	}
}

// ParseSnapshot decodes and checks a snapshot-shaped body, as returned by
// GET /state and POST /submit-board.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	msg, err := parseSnapshot(data, "")
	if err != nil {
		return nil, err
	}
	return &msg.Snapshot, nil
}

func parseSnapshot(raw json.RawMessage, gameID string) (*SnapshotMsg, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, malformed("snapshot: %v", err)
	}
	if s.PlayerOne == nil && s.PlayerTwo == nil {
		return nil, malformed("snapshot has no players")
	}
	if s.GameID == "" {
		s.GameID = gameID
	}
	if s.Turn.Index != 0 && s.Turn.Index != 1 && s.Turn.Index != 2 {
		return nil, malformed("turn index %d", s.Turn.Index)
	}
	for _, p := range []*PlayerSnapshot{s.PlayerOne, s.PlayerTwo} {
		if p == nil {
			continue
		}
		for _, set := range [][]Point{p.Hits, p.Misses, p.Sunk} {
			for _, pt := range set {
				if !pt.Cell().InBounds() {
					return nil, malformed("snapshot cell (%d,%d) off grid", pt.X, pt.Y)
				}
			}
		}
	}
	return &SnapshotMsg{Snapshot: s}, nil
}

func parseBatch(gameID string, raw json.RawMessage) (*EventBatch, error) {
	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, malformed("event batch: %v", err)
	}
	for _, ev := range events {
		if err := checkEvent(ev); err != nil {
			return nil, err
		}
	}
	return &EventBatch{GameID: gameID, Events: events}, nil
}

func checkEvent(ev Event) error {
	if i := ev.NextTurn.Index; i != 0 && i != 1 && i != 2 {
		return malformed("event nextTurn index %d", i)
	}
	switch ev.Type {
	case EventAttack:
		if ev.Player != 1 && ev.Player != 2 {
			return malformed("attack event player %d", ev.Player)
		}
		if ev.Result != ResultHit && ev.Result != ResultMiss {
			return malformed("attack event result %q", ev.Result)
		}
		if !(Point{ev.X, ev.Y}).Cell().InBounds() {
			return malformed("attack event cell (%d,%d) off grid", ev.X, ev.Y)
		}
	case EventGameOver:
	default:
		return malformed("unknown event type %q", ev.Type)
	}
	return nil
}
