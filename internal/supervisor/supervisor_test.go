package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/salvo/internal/client"
	"github.com/freeeve/salvo/internal/wire"
)

var fastBackoff = Backoff{Base: time.Millisecond, Cap: 2 * time.Millisecond, Factor: 1.5, MaxAttempts: 8}

func snapshot(turn int) *wire.Snapshot {
	return &wire.Snapshot{
		GameID:    "g1",
		Turn:      wire.TurnIndex(turn),
		PlayerOne: &wire.PlayerSnapshot{UUID: "a"},
		PlayerTwo: &wire.PlayerSnapshot{UUID: "b"},
	}
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fail  int // fail the first n calls
	err   error
}

func (f *fakeFetcher) State(_ context.Context, gameID string) (*wire.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fail {
		if f.err != nil {
			return nil, f.err
		}
		return nil, fmt.Errorf("attempt %d: connection refused", f.calls)
	}
	return snapshot(1), nil
}

type fakeSink struct {
	mu     sync.Mutex
	got    []wire.Inbound
	closed bool
}

func (s *fakeSink) Deliver(in wire.Inbound) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.got = append(s.got, in)
	return true
}

func (s *fakeSink) delivered() []wire.Inbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wire.Inbound(nil), s.got...)
}

type fakeStream struct {
	frames chan []byte
	once   sync.Once
	closed chan struct{}
}

func newFakeStream(frames ...string) *fakeStream {
	s := &fakeStream{frames: make(chan []byte, len(frames)), closed: make(chan struct{})}
	for _, f := range frames {
		s.frames <- []byte(f)
	}
	return s
}

func (s *fakeStream) Frames() <-chan []byte { return s.frames }
func (s *fakeStream) Err() error            { return nil }
func (s *fakeStream) Close()                { s.once.Do(func() { close(s.closed) }) }

type fakeCache struct {
	mu   sync.Mutex
	snap *wire.Snapshot
	puts int
}

func (c *fakeCache) Get(context.Context, string) (*wire.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap, nil
}

func (c *fakeCache) Put(_ context.Context, snap *wire.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	c.puts++
	return nil
}

func newSupervisor(f Fetcher, sink Sink, dial DialFunc, cache SnapshotCache) *Supervisor {
	nop := zerolog.Nop()
	return New(Config{
		GameID:  "g1",
		Fetch:   f,
		Dial:    dial,
		Sink:    sink,
		Cache:   cache,
		Backoff: fastBackoff,
		Logger:  &nop,
	})
}

func TestInitialFetchRetriesUntilSuccess(t *testing.T) {
	f := &fakeFetcher{fail: 2}
	sink := &fakeSink{}
	s := newSupervisor(f, sink, nil, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Attempts() != 3 {
		t.Errorf("expected 3 attempts, got %d", s.Attempts())
	}
	got := sink.delivered()
	if len(got) != 1 {
		t.Fatalf("expected one delivered snapshot, got %d", len(got))
	}
	if _, ok := got[0].(*wire.SnapshotMsg); !ok {
		t.Errorf("expected snapshot, got %T", got[0])
	}
}

func TestInitialFetchGivesUpAfterEightAttempts(t *testing.T) {
	f := &fakeFetcher{fail: 100}
	sink := &fakeSink{}
	s := newSupervisor(f, sink, nil, nil)

	err := s.Run(context.Background())
	if !errors.Is(err, ErrInitialFetchExhausted) {
		t.Fatalf("expected ErrInitialFetchExhausted, got %v", err)
	}
	if f.calls != 8 {
		t.Errorf("expected 8 fetches, got %d", f.calls)
	}
	if len(sink.delivered()) != 0 {
		t.Error("nothing should be delivered when every fetch fails")
	}
}

func TestInitialFetchStopsOnRejectedCredential(t *testing.T) {
	f := &fakeFetcher{fail: 100, err: fmt.Errorf("GET /state: %w", client.ErrCredentialInactive)}
	s := newSupervisor(f, &fakeSink{}, nil, nil)

	if err := s.Run(context.Background()); !errors.Is(err, client.ErrCredentialInactive) {
		t.Fatalf("expected ErrCredentialInactive, got %v", err)
	}
	if f.calls != 1 {
		t.Errorf("rejected credential should not be retried, got %d calls", f.calls)
	}
}

func TestCancelAbandonsRetryLoop(t *testing.T) {
	f := &fakeFetcher{fail: 100}
	nop := zerolog.Nop()
	s := New(Config{
		GameID:  "g1",
		Fetch:   f,
		Sink:    &fakeSink{},
		Backoff: Backoff{Base: time.Hour, Cap: time.Hour, Factor: 1, MaxAttempts: 8},
		Logger:  &nop,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("leaving the match should not be an error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if s.Attempts() != 1 {
		t.Errorf("expected a single attempt before cancel, got %d", s.Attempts())
	}
}

func TestLiveDropsMalformedFrames(t *testing.T) {
	stream := newFakeStream(
		`{"type":"attack","player":2,"x":1,"y":1,"result":"miss"}`,
		`{"type":"chat","data":"hi"}`,
		`garbage`,
		`{"type":"snapshot","game_id":"g1","data":{"turn":2,"playerOne":{"uuid":"a"},"playerTwo":{"uuid":"b"}}}`,
	)
	close(stream.frames)
	sink := &fakeSink{}
	cache := &fakeCache{}
	dial := func(context.Context, string) (Stream, error) { return stream, nil }
	s := newSupervisor(&fakeFetcher{}, sink, dial, cache)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var batches, snaps int
	for _, in := range sink.delivered() {
		switch in.(type) {
		case *wire.EventBatch:
			batches++
		case *wire.SnapshotMsg:
			snaps++
		}
	}
	if batches != 1 || snaps != 2 {
		t.Errorf("expected 1 batch and 2 snapshots (fetch + push), got %d and %d", batches, snaps)
	}
	if cache.puts != 2 {
		t.Errorf("expected both snapshots cached, got %d puts", cache.puts)
	}
	select {
	case <-stream.closed:
	default:
		t.Error("subscription should be closed when live loop ends")
	}
}

func TestLiveDialFailureIsNotFatal(t *testing.T) {
	sink := &fakeSink{}
	dial := func(context.Context, string) (Stream, error) { return nil, errors.New("ws dial: refused") }
	s := newSupervisor(&fakeFetcher{}, sink, dial, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.delivered()) != 1 {
		t.Error("initial snapshot should still be delivered")
	}
}

func TestWarmStartFromCache(t *testing.T) {
	cache := &fakeCache{snap: snapshot(2)}
	sink := &fakeSink{}
	s := newSupervisor(&fakeFetcher{}, sink, nil, cache)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := sink.delivered()
	if len(got) != 2 {
		t.Fatalf("expected cached then fetched snapshot, got %d", len(got))
	}
	if first := got[0].(*wire.SnapshotMsg); first.Snapshot.Turn.Index != 2 {
		t.Errorf("first delivery should be the cached snapshot, got %+v", first.Snapshot)
	}
	if cache.snap.Turn.Index != 1 {
		t.Error("fetched snapshot should be written back")
	}
}

func TestLiveStopsWhenSessionCloses(t *testing.T) {
	stream := newFakeStream(`[{"type":"attack","player":1,"x":0,"y":0,"result":"hit"}]`)
	sink := &fakeSink{closed: true}
	dial := func(context.Context, string) (Stream, error) { return stream, nil }
	s := newSupervisor(&fakeFetcher{}, sink, dial, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("live loop should stop once the session refuses deliveries")
	}
}

func TestLiveSplitsCoalescedFrames(t *testing.T) {
	stream := newFakeStream(
		`{"type":"attack","player":1,"x":0,"y":0,"result":"hit"}` + "\n" +
			`{"type":"attack","player":2,"x":5,"y":5,"result":"miss"}` + "\n",
	)
	close(stream.frames)
	sink := &fakeSink{}
	dial := func(context.Context, string) (Stream, error) { return stream, nil }
	s := newSupervisor(&fakeFetcher{}, sink, dial, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	batches := 0
	for _, in := range sink.delivered() {
		if _, ok := in.(*wire.EventBatch); ok {
			batches++
		}
	}
	if batches != 2 {
		t.Errorf("expected 2 event batches from one frame, got %d", batches)
	}
}

func TestLiveKeepsMultiLineFramesWhole(t *testing.T) {
	stream := newFakeStream(
		"{\n  \"type\": \"snapshot\",\n  \"game_id\": \"g1\",\n  \"data\": {\n    \"turn\": 2,\n" +
			"    \"playerOne\": {\"uuid\": \"a\"},\n    \"playerTwo\": {\"uuid\": \"b\"}\n  }\n}\n",
		"[\n  {\"type\": \"attack\", \"player\": 1, \"x\": 3, \"y\": 4, \"result\": \"hit\"}\n]",
	)
	close(stream.frames)
	sink := &fakeSink{}
	dial := func(context.Context, string) (Stream, error) { return stream, nil }
	s := newSupervisor(&fakeFetcher{}, sink, dial, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var batches, snaps int
	for _, in := range sink.delivered() {
		switch m := in.(type) {
		case *wire.EventBatch:
			batches++
		case *wire.SnapshotMsg:
			if m.Snapshot.Turn.Index == 2 {
				snaps++
			}
		}
	}
	if snaps != 1 || batches != 1 {
		t.Errorf("expected the pushed snapshot and batch delivered whole, got %d snapshots and %d batches", snaps, batches)
	}
}

func TestSplitFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		parts int
	}{
		{"single compact", `{"type":"game_over","winner":"a"}`, 1},
		{"single with trailing newline", "{\"type\":\"game_over\"}\n", 1},
		{"pretty printed", "{\n  \"type\": \"game_over\"\n}", 1},
		{"escaped newline in a string", `{"type":"game_over","winner":"a` + `\n` + `b"}`, 1},
		{"coalesced", "{\"a\":1}\n{\"b\":2}\n", 2},
		{"garbage", "garbage", 1},
		{"blank lines only", "\n\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(splitFrame([]byte(tt.frame))); got != tt.parts {
				t.Errorf("splitFrame(%q) gave %d parts, want %d", tt.frame, got, tt.parts)
			}
		})
	}
}
