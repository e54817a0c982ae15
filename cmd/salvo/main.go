package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/salvo/internal/bot"
	rediscache "github.com/freeeve/salvo/internal/cache/redis"
	"github.com/freeeve/salvo/internal/client"
	"github.com/freeeve/salvo/internal/config"
	"github.com/freeeve/salvo/internal/match"
	"github.com/freeeve/salvo/internal/supervisor"
	"github.com/freeeve/salvo/internal/wire"
	"github.com/freeeve/salvo/pkg/fleet"
)

func main() {
	cfg := config.Load()
	url := flag.String("url", cfg.AuthorityURL, "game authority base URL")
	gameID := flag.String("game", "", "match to join (empty: dev matchmaking)")
	name := flag.String("name", "", "dev login name, used when no token is configured")
	auto := flag.Bool("auto", false, "fire automatically")
	strategyName := flag.String("strategy", "hunt", "auto-fire strategy (random, hunt)")
	think := flag.Duration("think", 500*time.Millisecond, "pause before each automatic shot")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal, leaving match")
		cancel()
	}()

	if err := run(ctx, cfg, *url, *gameID, *name, *auto, *strategyName, *think); err != nil {
		if errors.Is(err, match.ErrSessionFatal) || errors.Is(err, client.ErrCredentialInactive) {
			log.Fatal().Err(err).Msg("Credential rejected, sign in again")
		}
		log.Fatal().Err(err).Msg("Client failed")
	}
}

func run(ctx context.Context, cfg *config.Config, url, gameID, name string, auto bool, strategyName string, think time.Duration) error {
	token := cfg.Token
	if token == "" {
		if name == "" {
			return errors.New("no SALVO_TOKEN configured; pass -name to use dev login")
		}
		var err error
		if token, err = client.DevLogin(ctx, url, name); err != nil {
			return fmt.Errorf("dev login: %w", err)
		}
	}
	c := client.New(url, cfg.IdentityURL, token)

	var handoff *wire.Handoff
	if gameID == "" {
		log.Info().Msg("Waiting for an opponent")
		h, err := c.JoinDevMatch(ctx)
		if err != nil {
			return fmt.Errorf("matchmaking: %w", err)
		}
		handoff, gameID = h, h.GameID
		log.Info().Str("gameId", gameID).Msg("Match found")
	}

	sess, err := match.Bootstrap(ctx, match.Config{
		GameID:   gameID,
		Token:    token,
		Handoff:  handoff,
		Gateway:  c,
		Identity: c,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	sc := supervisor.Config{
		GameID: gameID,
		Fetch:  c,
		Dial: func(ctx context.Context, gameID string) (supervisor.Stream, error) {
			sub, err := c.Subscribe(ctx, gameID)
			if err != nil {
				return nil, err
			}
			return sub, nil
		},
		Sink: sess,
	}
	var cache *rediscache.Client
	if cfg.RedisURL != "" {
		cache, err = rediscache.NewClient(ctx, cfg.RedisURL, cfg.SnapshotTTL)
		if err != nil {
			log.Warn().Err(err).Msg("Snapshot cache unavailable, continuing without it")
		} else {
			defer cache.Close()
			sc.Cache = cache
		}
	}

	supCtx, stopSup := context.WithCancel(ctx)
	defer stopSup()
	supErr := make(chan error, 1)
	go func() { supErr <- supervisor.New(sc).Run(supCtx) }()

	go render(ctx, sess)

	var playErr error
	if auto {
		playErr = bot.NewAutoplay(sess, bot.StrategyByName(strategyName), think).Run(ctx)
	} else {
		playErr = interactive(ctx, sess)
	}

	if sess.View().Ended && cache != nil {
		if err := cache.Delete(context.Background(), gameID); err != nil {
			log.Warn().Err(err).Msg("Failed to drop cached snapshot")
		}
	}
	stopSup()
	if err := <-supErr; err != nil && !errors.Is(err, supervisor.ErrInitialFetchExhausted) {
		return err
	}
	if errors.Is(playErr, context.Canceled) {
		return nil
	}
	return playErr
}

// interactive places a random fleet and then fires at cells typed on stdin.
func interactive(ctx context.Context, sess *match.Session) error {
	if !sess.View().Self.BoardSubmitted {
		placements, err := bot.RandomFleet()
		if err != nil {
			return err
		}
		if err := sess.SubmitBoard(ctx, placements); err != nil && !errors.Is(err, match.ErrBoardSubmitted) {
			return err
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()

	fmt.Println("Enter a cell to fire at (e.g. B7), or q to leave.")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sess.Done():
			return match.ErrSessionClosed
		case line, ok := <-lines:
			if !ok || line == "q" {
				return nil
			}
			if line == "" {
				continue
			}
			cell, err := fleet.ParseCell(line)
			if err != nil {
				fmt.Println(err)
				continue
			}
			res, err := sess.SubmitAttack(ctx, cell)
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("%s: %s\n", res.Cell, res.Message)
			if sess.View().Ended {
				return nil
			}
		}
	}
}
