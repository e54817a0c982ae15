package bot

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/salvo/internal/match"
)

// Autoplay drives one match session: it submits a random fleet, then fires
// whenever the session says the local player may act.
type Autoplay struct {
	sess     *match.Session
	strategy Strategy
	think    time.Duration
	log      zerolog.Logger
}

// NewAutoplay creates an Autoplay. think is a pause before each shot so a
// human watching the other side can follow along.
func NewAutoplay(sess *match.Session, strategy Strategy, think time.Duration) *Autoplay {
	return &Autoplay{
		sess:     sess,
		strategy: strategy,
		think:    think,
		log:      log.With().Str("gameId", sess.GameID()).Str("strategy", strategy.Name()).Logger(),
	}
}

// Run plays until the match ends, the session closes or ctx is cancelled.
// A finished match returns nil.
func (a *Autoplay) Run(ctx context.Context) error {
	if err := a.placeFleet(ctx); err != nil {
		return err
	}

	for {
		v := a.sess.View()
		if v.Ended {
			a.log.Info().Bool("won", v.Won).Str("winner", v.Winner).Msg("Match over")
			return nil
		}
		if v.CanAct && v.Pending == nil {
			if err := a.fire(ctx, &v); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.sess.Done():
			return match.ErrSessionClosed
		case <-a.sess.Updates():
		}
	}
}

func (a *Autoplay) placeFleet(ctx context.Context) error {
	v := a.sess.View()
	if v.Self.BoardSubmitted || v.Ended {
		return nil
	}
	placements, err := RandomFleet()
	if err != nil {
		return err
	}
	err = a.sess.SubmitBoard(ctx, placements)
	if errors.Is(err, match.ErrBoardSubmitted) {
		return nil
	}
	if err != nil {
		return err
	}
	a.log.Info().Msg("Fleet placed")
	return nil
}

func (a *Autoplay) fire(ctx context.Context, v *match.View) error {
	target, ok := a.strategy.NextTarget(v)
	if !ok {
		a.log.Warn().Msg("No open cells left")
		return nil
	}
	if a.think > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.think):
		}
	}

	res, err := a.sess.SubmitAttack(ctx, target)
	var ae *match.ActionError
	switch {
	case err == nil:
		a.log.Info().
			Str("cell", target.String()).
			Str("outcome", string(res.Outcome)).
			Bool("sunk", res.Sunk).
			Msg(res.Message)
	case errors.Is(err, match.ErrSessionClosed), ctx.Err() != nil:
		return err
	case errors.As(err, &ae):
		// The turn may have moved on under us; wait for the next update.
		a.log.Warn().Err(err).Str("cell", target.String()).Msg("Attack failed")
		return a.waitUpdate(ctx)
	default:
		// Rejected locally, e.g. the turn already passed.
		a.log.Debug().Err(err).Str("cell", target.String()).Msg("Attack not sent")
		return a.waitUpdate(ctx)
	}
	return nil
}

func (a *Autoplay) waitUpdate(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.sess.Done():
		return match.ErrSessionClosed
	case <-a.sess.Updates():
		return nil
	}
}
