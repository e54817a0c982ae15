package match

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/salvo/internal/wire"
	"github.com/freeeve/salvo/pkg/fleet"
)

// Gateway is the part of the game authority a session calls directly.
type Gateway interface {
	Fire(ctx context.Context, gameID string, cell fleet.Cell) (*wire.FireResponse, error)
	SubmitBoard(ctx context.Context, gameID string, board fleet.Board) (*wire.Snapshot, error)
}

// AttackResult is the confirmed outcome of SubmitAttack.
type AttackResult struct {
	Cell     fleet.Cell
	Outcome  Outcome
	Sunk     bool
	Message  string
	NextTurn Slot
}

// Session runs a MatchSession on a single goroutine. Snapshots, event
// batches and action results all enter through one inbox and are applied
// in arrival order; network calls happen outside that goroutine.
type Session struct {
	gameID  string
	m       *MatchSession
	gw      Gateway
	log     zerolog.Logger
	now     func() time.Time
	inbox   chan message
	done    chan struct{}
	stopped chan struct{}
	updates chan struct{}
	view    atomic.Pointer[View]
	once    sync.Once

	watchMu  sync.Mutex
	watchers []chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock overrides time.Now, used for feedback expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession starts the session goroutine. Call Close to stop it.
func NewSession(m *MatchSession, gw Gateway, opts ...Option) *Session {
	s := &Session{
		gameID:  m.GameID,
		m:       m,
		gw:      gw,
		log:     log.Logger,
		now:     time.Now,
		inbox:   make(chan message, 64),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("gameId", m.GameID).Logger()
	s.publish()
	go s.run()
	return s
}

// GameID returns the match this session tracks.
func (s *Session) GameID() string { return s.gameID }

// View returns the latest published projection. Feedback past its expiry
// is dropped at read time.
func (s *Session) View() View {
	return s.view.Load().at(s.now())
}

// Updates signals (coalesced) after every change to the projection.
func (s *Session) Updates() <-chan struct{} { return s.updates }

// Watch returns an extra coalesced update channel, for a second reader
// such as a renderer running next to an autoplay loop.
func (s *Session) Watch() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.watchMu.Lock()
	s.watchers = append(s.watchers, ch)
	s.watchMu.Unlock()
	return ch
}

// Done is closed once the session has stopped applying messages.
func (s *Session) Done() <-chan struct{} { return s.stopped }

// Close stops the session. Deliveries after Close are dropped.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}

// Deliver queues a parsed snapshot or event batch. It returns false if the
// session is closed.
func (s *Session) Deliver(in wire.Inbound) bool {
	return s.send(inboundMsg{in})
}

// DeliverSnapshot is Deliver for an already-decoded snapshot.
func (s *Session) DeliverSnapshot(snap *wire.Snapshot) bool {
	return s.Deliver(&wire.SnapshotMsg{Snapshot: *snap})
}

// SubmitAttack fires at cell. At most one attack is in flight per session;
// a call made while another is pending is rejected without a network call.
// On failure combat history is untouched and the cell may be retried.
func (s *Session) SubmitAttack(ctx context.Context, cell fleet.Cell) (AttackResult, error) {
	begin := make(chan attackTicket, 1)
	ticket, err := roundTrip(s, beginAttackMsg{cell: cell, reply: begin}, begin)
	if err != nil {
		return AttackResult{}, err
	}
	if ticket.err != nil {
		return AttackResult{}, ticket.err
	}

	resp, ferr := s.gw.Fire(ctx, s.gameID, cell)

	done := make(chan fireReply, 1)
	reply, err := roundTrip(s, fireResultMsg{pending: ticket.pending, resp: resp, err: ferr, reply: done}, done)
	if err != nil {
		return AttackResult{}, err
	}
	return reply.result, reply.err
}

// SubmitBoard validates a complete fleet and submits it. The authority's
// snapshot-shaped reply is merged like any other snapshot.
func (s *Session) SubmitBoard(ctx context.Context, placements []fleet.Placement) error {
	board, err := fleet.BuildBoard(placements)
	if err != nil {
		return err
	}

	begin := make(chan error, 1)
	rejected, err := roundTrip(s, beginBoardMsg{reply: begin}, begin)
	if err != nil {
		return err
	}
	if rejected != nil {
		return rejected
	}

	snap, serr := s.gw.SubmitBoard(ctx, s.gameID, board)

	done := make(chan error, 1)
	result, err := roundTrip(s, boardResultMsg{snap: snap, err: serr, reply: done}, done)
	if err != nil {
		return err
	}
	return result
}

func (s *Session) send(msg message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- msg:
		return true
	case <-s.done:
		return false
	}
}

func roundTrip[T any](s *Session, msg message, reply <-chan T) (T, error) {
	var zero T
	if !s.send(msg) {
		return zero, ErrSessionClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.stopped:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrSessionClosed
		}
	}
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.inbox:
			select {
			case <-s.done:
				return
			default:
			}
			reply := msg.apply(s)
			s.publish()
			if reply != nil {
				reply()
			}
		}
	}
}

func (s *Session) publish() {
	v := s.m.Project()
	s.view.Store(&v)
	notify(s.updates)
	s.watchMu.Lock()
	for _, ch := range s.watchers {
		notify(ch)
	}
	s.watchMu.Unlock()
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// message is anything applied on the session goroutine. apply may return a
// reply func, which runs after the new view is published.
type message interface {
	apply(s *Session) func()
}

type inboundMsg struct {
	in wire.Inbound
}

func (msg inboundMsg) apply(s *Session) func() {
	m := s.m
	switch in := msg.in.(type) {
	case *wire.SnapshotMsg:
		if id := in.Snapshot.GameID; id != "" && id != m.GameID {
			s.log.Warn().Str("snapshotGameId", id).Msg("Dropping snapshot for another match")
			return nil
		}
		if m.ApplySnapshot(&in.Snapshot) {
			s.log.Debug().
				Str("phase", m.turn.Phase().String()).
				Int("owner", int(m.turn.Owner())).
				Int("self", int(m.Self())).
				Msg("Snapshot merged")
		}
	case *wire.EventBatch:
		if in.GameID != "" && in.GameID != m.GameID {
			s.log.Warn().Str("batchGameId", in.GameID).Msg("Dropping events for another match")
			return nil
		}
		if m.ApplyEvents(in.Events) {
			s.log.Debug().Int("events", len(in.Events)).Msg("Event batch merged")
		}
	default:
		s.log.Warn().Str("type", fmt.Sprintf("%T", msg.in)).Msg("Dropping unknown inbound message")
	}
	return nil
}

type attackTicket struct {
	pending pendingAttack
	err     error
}

type beginAttackMsg struct {
	cell  fleet.Cell
	reply chan<- attackTicket
}

func (msg beginAttackMsg) apply(s *Session) func() {
	m := s.m
	self := m.Self()
	var err error
	switch {
	case m.Ended():
		err = ErrMatchEnded
	case !self.Valid():
		err = ErrIdentityUnknown
	case m.pending != nil:
		err = ErrAttackPending
	case !msg.cell.InBounds():
		err = ErrOutOfBounds
	case m.Player(self).History.Has(msg.cell):
		err = ErrAlreadyAttacked
	case !m.BoardsSubmitted():
		err = ErrBoardsPending
	case !m.CanAct(self):
		err = ErrNotYourTurn
	}
	if err != nil {
		return func() { msg.reply <- attackTicket{err: err} }
	}
	p := pendingAttack{cell: msg.cell, attacker: self}
	m.pending = &p
	s.log.Debug().Str("cell", msg.cell.String()).Msg("Attack submitted")
	return func() { msg.reply <- attackTicket{pending: p} }
}

type fireReply struct {
	result AttackResult
	err    error
}

type fireResultMsg struct {
	pending pendingAttack
	resp    *wire.FireResponse
	err     error
	reply   chan<- fireReply
}

func (msg fireResultMsg) apply(s *Session) func() {
	m := s.m
	m.pending = nil

	if msg.err == nil && msg.resp == nil {
		msg.err = ErrUnexpectedResult
	}
	if msg.err != nil {
		ae := actionError("fire", msg.err)
		m.lastErr = ae.Message
		s.log.Warn().Err(msg.err).Str("cell", msg.pending.cell.String()).Msg("Attack failed")
		return func() { msg.reply <- fireReply{err: ae} }
	}

	resp := msg.resp
	var outcome Outcome
	switch resp.Result {
	case wire.ResultHit:
		outcome = Hit
	case wire.ResultMiss:
		outcome = Miss
	default:
		ae := &ActionError{Op: "fire", Message: fmt.Sprintf("server returned result %q", resp.Result), Err: ErrUnexpectedResult}
		m.lastErr = ae.Message
		return func() { msg.reply <- fireReply{err: ae} }
	}

	rec := AttackRecord{Cell: msg.pending.cell, Outcome: outcome, Sunk: outcome == Hit && resp.Sunk}
	m.applyFireResult(msg.pending.attacker, rec, resp)
	m.lastErr = ""
	m.feedback = &Feedback{
		Text:      feedbackText(rec, resp.Message),
		Cell:      rec.Cell,
		Outcome:   outcome,
		ExpiresAt: s.now().Add(FeedbackWindow),
	}
	s.log.Info().
		Str("cell", rec.Cell.String()).
		Str("result", string(outcome)).
		Bool("sunk", rec.Sunk).
		Int("nextTurn", int(m.turn.Owner())).
		Msg("Attack resolved")

	result := AttackResult{
		Cell:     rec.Cell,
		Outcome:  outcome,
		Sunk:     rec.Sunk,
		Message:  resp.Message,
		NextTurn: m.turn.Owner(),
	}
	return func() { msg.reply <- fireReply{result: result} }
}

func feedbackText(rec AttackRecord, serverMsg string) string {
	if serverMsg != "" {
		return serverMsg
	}
	switch {
	case rec.Sunk:
		return "Hit and sunk!"
	case rec.Outcome == Hit:
		return "Hit!"
	default:
		return "Miss"
	}
}

type beginBoardMsg struct {
	reply chan<- error
}

func (msg beginBoardMsg) apply(s *Session) func() {
	m := s.m
	var err error
	switch {
	case m.Ended():
		err = ErrMatchEnded
	case m.boardInFlight:
		err = ErrBoardInFlight
	case m.Self().Valid() && m.Player(m.Self()).BoardSubmitted:
		err = ErrBoardSubmitted
	default:
		m.boardInFlight = true
	}
	return func() { msg.reply <- err }
}

type boardResultMsg struct {
	snap  *wire.Snapshot
	err   error
	reply chan<- error
}

func (msg boardResultMsg) apply(s *Session) func() {
	m := s.m
	m.boardInFlight = false
	if msg.err == nil && msg.snap == nil {
		msg.err = ErrUnexpectedResult
	}
	if msg.err != nil {
		ae := actionError("submit board", msg.err)
		m.lastErr = ae.Message
		s.log.Warn().Err(msg.err).Msg("Board submission failed")
		return func() { msg.reply <- ae }
	}
	m.lastErr = ""
	m.ApplySnapshot(msg.snap)
	s.log.Info().Msg("Board submitted")
	return func() { msg.reply <- nil }
}
