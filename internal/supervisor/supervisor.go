// Package supervisor feeds a match session from the game authority: one
// bounded-retry snapshot fetch and one live push subscription.
package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/salvo/internal/client"
	"github.com/freeeve/salvo/internal/wire"
)

// ErrInitialFetchExhausted means every initial fetch attempt failed. The
// session stays open without data; nothing retries it automatically.
var ErrInitialFetchExhausted = errors.New("initial snapshot fetch exhausted")

// Fetcher returns the authoritative snapshot for a match.
type Fetcher interface {
	State(ctx context.Context, gameID string) (*wire.Snapshot, error)
}

// Stream is an open push subscription.
type Stream interface {
	Frames() <-chan []byte
	Err() error
	Close()
}

// DialFunc opens a push subscription for a match.
type DialFunc func(ctx context.Context, gameID string) (Stream, error)

// Sink receives parsed updates. *match.Session implements it.
type Sink interface {
	Deliver(in wire.Inbound) bool
}

// SnapshotCache holds the last authoritative snapshot per match.
type SnapshotCache interface {
	Get(ctx context.Context, gameID string) (*wire.Snapshot, error)
	Put(ctx context.Context, snap *wire.Snapshot) error
}

// Config wires a Supervisor.
type Config struct {
	GameID  string
	Fetch   Fetcher
	Dial    DialFunc
	Sink    Sink
	Cache   SnapshotCache // optional
	Backoff Backoff       // zero value means DefaultBackoff
	Logger  *zerolog.Logger
}

// Supervisor runs the initial fetch and the live subscription for one match.
type Supervisor struct {
	cfg      Config
	log      zerolog.Logger
	attempts atomic.Int64
}

// New creates a Supervisor.
func New(cfg Config) *Supervisor {
	if cfg.Backoff.MaxAttempts == 0 {
		cfg.Backoff = DefaultBackoff()
	}
	l := log.Logger
	if cfg.Logger != nil {
		l = *cfg.Logger
	}
	return &Supervisor{
		cfg: cfg,
		log: l.With().Str("gameId", cfg.GameID).Logger(),
	}
}

// Attempts returns how many initial fetches have been made.
func (s *Supervisor) Attempts() int { return int(s.attempts.Load()) }

// Run blocks until ctx is cancelled, or until the fetch has finished and the
// subscription has closed. A rejected credential is returned as an error
// wrapping client.ErrCredentialInactive; an exhausted fetch is returned as
// ErrInitialFetchExhausted once the subscription ends. Leaving the match by
// cancelling ctx returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	s.warmStart(ctx)

	var fetchErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.initialFetch(gctx)
		if errors.Is(err, client.ErrCredentialInactive) {
			return err
		}
		fetchErr = err
		return nil
	})
	if s.cfg.Dial != nil {
		g.Go(func() error { return s.live(gctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	return fetchErr
}

func (s *Supervisor) warmStart(ctx context.Context) {
	if s.cfg.Cache == nil {
		return
	}
	snap, err := s.cfg.Cache.Get(ctx, s.cfg.GameID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Snapshot cache read failed")
		return
	}
	if snap == nil {
		return
	}
	s.log.Debug().Msg("Delivering cached snapshot")
	s.cfg.Sink.Deliver(&wire.SnapshotMsg{Snapshot: *snap})
}

func (s *Supervisor) initialFetch(ctx context.Context) error {
	var snap *wire.Snapshot
	err := retry.Do(ctx, s.cfg.Backoff.policy(), func(ctx context.Context) error {
		n := s.attempts.Add(1)
		got, err := s.cfg.Fetch.State(ctx, s.cfg.GameID)
		if err != nil {
			if errors.Is(err, client.ErrCredentialInactive) || ctx.Err() != nil {
				return err
			}
			s.log.Debug().Err(err).Int64("attempt", n).Msg("Snapshot fetch failed")
			return retry.RetryableError(err)
		}
		snap = got
		return nil
	})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil
	case errors.Is(err, client.ErrCredentialInactive):
		s.log.Error().Err(err).Msg("Credential rejected during snapshot fetch")
		return err
	default:
		s.log.Error().Err(err).Int("attempts", s.Attempts()).Msg("Giving up on initial snapshot")
		return fmt.Errorf("%w: %v", ErrInitialFetchExhausted, err)
	}

	s.log.Info().Int("attempts", s.Attempts()).Msg("Initial snapshot received")
	s.store(ctx, snap)
	s.cfg.Sink.Deliver(&wire.SnapshotMsg{Snapshot: *snap})
	return nil
}

// live reads the push subscription until it closes. A closed subscription
// is not reopened.
func (s *Supervisor) live(ctx context.Context) error {
	sub, err := s.cfg.Dial(ctx, s.cfg.GameID)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, client.ErrCredentialInactive) {
			return err
		}
		s.log.Warn().Err(err).Msg("Push subscription failed, continuing without live updates")
		return nil
	}
	defer sub.Close()
	s.log.Info().Msg("Push subscription open")

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-sub.Frames():
			if !ok {
				s.log.Warn().Err(sub.Err()).Msg("Push subscription closed")
				return nil
			}
			for _, part := range splitFrame(frame) {
				if !s.handle(ctx, part) {
					s.log.Debug().Msg("Session closed, leaving subscription")
					return nil
				}
			}
		}
	}
}

// splitFrame returns the payloads carried by one push frame. A frame that
// is a single JSON value is kept whole, even when it spans several lines.
// Otherwise it is treated as compact values the hub coalesced with "\n".
func splitFrame(frame []byte) [][]byte {
	if json.Valid(frame) {
		return [][]byte{frame}
	}
	var parts [][]byte
	for _, part := range bytes.Split(frame, []byte("\n")) {
		if len(bytes.TrimSpace(part)) > 0 {
			parts = append(parts, part)
		}
	}
	return parts
}

// handle parses and delivers one payload. It returns false once the sink
// stops accepting deliveries.
func (s *Supervisor) handle(ctx context.Context, payload []byte) bool {
	in, err := wire.ParseInbound(payload)
	if err != nil {
		s.log.Warn().Err(err).Int("bytes", len(payload)).Msg("Dropping malformed push payload")
		return true
	}
	if snap, ok := in.(*wire.SnapshotMsg); ok {
		s.store(ctx, &snap.Snapshot)
	}
	return s.cfg.Sink.Deliver(in)
}

func (s *Supervisor) store(ctx context.Context, snap *wire.Snapshot) {
	if s.cfg.Cache == nil || snap == nil {
		return
	}
	if snap.GameID == "" {
		cp := *snap
		cp.GameID = s.cfg.GameID
		snap = &cp
	}
	if err := s.cfg.Cache.Put(ctx, snap); err != nil {
		s.log.Warn().Err(err).Msg("Snapshot cache write failed")
	}
}
