package wire

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseInboundSnapshotEnvelope(t *testing.T) {
	raw := `{"type":"snapshot","game_id":"g1","data":{
		"turn":2,
		"playerOne":{"uuid":"u1","username":"ann","boardSubmitted":true,"hits":[{"x":1,"y":1}],"misses":[],"sunk":[]},
		"playerTwo":{"uuid":"u2","boardSubmitted":false,"hits":[],"misses":[{"x":0,"y":9}]}}}`
	msg, err := ParseInbound([]byte(raw))
	if err != nil {
		t.Fatalf("ParseInbound: %v", err)
	}
	snap, ok := msg.(*SnapshotMsg)
	if !ok {
		t.Fatalf("expected *SnapshotMsg, got %T", msg)
	}
	if snap.Snapshot.GameID != "g1" {
		t.Errorf("expected game id from envelope, got %q", snap.Snapshot.GameID)
	}
	if snap.Snapshot.Turn.Index != 2 {
		t.Errorf("expected turn index 2, got %+v", snap.Snapshot.Turn)
	}
	if got := snap.Snapshot.PlayerTwo.Misses[0].Cell(); got.Row != 9 || got.Col != 0 {
		t.Errorf("expected y to map to row, got %+v", got)
	}
}

func TestParseInboundBareShapes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		snapshot bool
		events   int
	}{
		{"bare snapshot", `{"gameId":"g","turn":"u2","playerOne":{"uuid":"u1"},"playerTwo":{"uuid":"u2"}}`, true, 0},
		{"bare array", `[{"type":"attack","player":2,"x":3,"y":4,"result":"miss"}]`, false, 1},
		{"events field", `{"events":[{"type":"attack","player":1,"x":0,"y":0,"result":"hit","sunk":true},{"type":"game_over","winner":"u1"}]}`, false, 2},
		{"events envelope", `{"type":"events","game_id":"g","data":[]}`, false, 0},
		{"single attack", `{"type":"attack","player":1,"x":5,"y":5,"result":"hit"}`, false, 1},
		{"single game over", `{"type":"game_over","winner":"u2"}`, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseInbound([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseInbound: %v", err)
			}
			switch m := msg.(type) {
			case *SnapshotMsg:
				if !tt.snapshot {
					t.Fatal("unexpected snapshot")
				}
			case *EventBatch:
				if tt.snapshot {
					t.Fatal("expected snapshot, got batch")
				}
				if len(m.Events) != tt.events {
					t.Errorf("expected %d events, got %d", tt.events, len(m.Events))
				}
			}
		})
	}
}

func TestParseInboundRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `hello`},
		{"scalar", `42`},
		{"unknown type", `{"type":"chat","data":{}}`},
		{"untagged other", `{"foo":1}`},
		{"snapshot without players", `{"type":"snapshot","data":{"gameId":"g"}}`},
		{"bad turn index", `{"playerOne":{"uuid":"a"},"turn":3}`},
		{"off-grid snapshot cell", `{"playerOne":{"uuid":"a","hits":[{"x":10,"y":0}]}}`},
		{"attack without player", `[{"type":"attack","x":1,"y":1,"result":"hit"}]`},
		{"attack bad result", `[{"type":"attack","player":1,"x":1,"y":1,"result":"maybe"}]`},
		{"attack off grid", `[{"type":"attack","player":1,"x":-1,"y":1,"result":"hit"}]`},
		{"unknown event in batch", `[{"type":"attack","player":1,"x":1,"y":1,"result":"hit"},{"type":"chat"}]`},
		{"truncated", `{"type":"snapshot","data":{"playerOne":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseInbound([]byte(tt.raw))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got msg=%v err=%v", msg, err)
			}
		})
	}
}

func TestTurnRefJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want TurnRef
	}{
		{`1`, TurnIndex(1)},
		{`"2"`, TurnIndex(2)},
		{`"3f1c9a70-0000-4000-8000-000000000000"`, TurnID("3f1c9a70-0000-4000-8000-000000000000")},
		{`null`, TurnRef{}},
	}
	for _, tt := range tests {
		var got TurnRef
		if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("unmarshal %s = %+v, want %+v", tt.raw, got, tt.want)
		}
	}

	var bad TurnRef
	if err := json.Unmarshal([]byte(`{}`), &bad); err == nil {
		t.Error("expected error for object turn")
	}

	out, err := json.Marshal(FireResponse{Result: ResultHit})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"result":"hit"}` {
		t.Errorf("absent nextTurn should be omitted, got %s", out)
	}
}
