package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/salvo/internal/auth"
	"github.com/freeeve/salvo/internal/wire"
)

// Credentials is the identity service: it reports whether a stored token
// is still active and which subject it belongs to.
type Credentials interface {
	Introspect(ctx context.Context, token string) (*wire.Introspection, error)
}

// Config holds everything needed to enter a match.
type Config struct {
	GameID   string
	Token    string
	Handoff  *wire.Handoff // optional, from matchmaking
	Gateway  Gateway
	Identity Credentials // optional
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// Bootstrap checks the credential, resolves what it can about the local
// player's slot and starts a Session. A missing or inactive credential is
// fatal and wraps ErrSessionFatal. Failing to reach the identity service is
// not: the subject is then read from the token itself.
func Bootstrap(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.GameID == "" {
		return nil, errors.New("game id is required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: %v", ErrSessionFatal, auth.ErrMissingToken)
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("gameId", cfg.GameID).Logger()

	subject, err := lookupSubject(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	r := NewResolver(cfg.Token, subject)
	if h := cfg.Handoff; h != nil {
		if h.GameID == "" || h.GameID == cfg.GameID {
			r.ResolveParticipants(h.Participants)
		} else {
			logger.Warn().Str("handoffGameId", h.GameID).Msg("Ignoring hand-off for another match")
		}
	}
	if r.Slot().Valid() {
		logger.Info().Int("slot", int(r.Slot())).Msg("Resolved player slot from hand-off")
	} else {
		logger.Info().Msg("Player slot unknown until first snapshot")
	}

	opts := []Option{WithLogger(logger)}
	if cfg.Now != nil {
		opts = append(opts, WithClock(cfg.Now))
	}
	return NewSession(NewMatchSession(cfg.GameID, r), cfg.Gateway, opts...), nil
}

func lookupSubject(ctx context.Context, cfg Config, logger zerolog.Logger) (string, error) {
	if cfg.Identity != nil {
		info, err := cfg.Identity.Introspect(ctx, cfg.Token)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("Identity service unavailable, reading subject from token")
		case !info.Active:
			return "", fmt.Errorf("%w: credential is not active", ErrSessionFatal)
		case info.Subject != "":
			return info.Subject, nil
		}
	}
	sub, err := auth.SubjectFromToken(cfg.Token)
	if err != nil {
		logger.Warn().Err(err).Msg("Token carries no readable subject")
		return "", nil
	}
	return sub, nil
}
