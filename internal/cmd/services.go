package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simonsays-lab/scoreboard/internal/dbconfig"
	"github.com/simonsays-lab/scoreboard/internal/events"
	"github.com/simonsays-lab/scoreboard/internal/gateway"
	"github.com/simonsays-lab/scoreboard/internal/leaderboard"
	"github.com/simonsays-lab/scoreboard/internal/session"
)

// Services holds the wired application graph.
type Services struct {
	Store             leaderboard.Store
	Bus               events.Bus
	Coordinator       *session.Coordinator
	Sweeper           *session.Sweeper
	ConnectionManager *gateway.ConnectionManager
	EventConsumer     *gateway.EventConsumer
	WebSocket         *gateway.WebSocketHandler
	API               *gateway.Handler

	closers []func()
}

// setupServices wires the dependency chain:
// store → coordinator → bus → gateway.
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	s := &Services{}

	store, err := setupStore(ctx, cfg, s)
	if err != nil {
		return nil, err
	}
	s.Store = store

	bus, err := setupBus(cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Bus = bus

	clock := clockwork.NewRealClock()
	s.Coordinator = session.NewCoordinator(store, bus, clock, session.Config{
		ClaimVisibility: cfg.claimVisibility(),
		ClaimBackstop:   cfg.claimBackstop(),
		SweepInterval:   cfg.sweepInterval(),
	})
	s.Sweeper = session.NewSweeper(s.Coordinator, clock)

	s.ConnectionManager = gateway.NewConnectionManager(
		gateway.DefaultConnectionConfig(),
		func(ctx context.Context, player string) {
			if _, err := s.Coordinator.StartGame(ctx, player); err != nil {
				log.Warn().Err(err).Str("player", player).Msg("websocket start-game rejected")
			}
		},
	)
	s.EventConsumer = gateway.NewEventConsumer(s.ConnectionManager, bus)
	s.WebSocket = gateway.NewWebSocketHandler(s.ConnectionManager)
	s.API = gateway.NewHandler(s.Coordinator, store)

	return s, nil
}

func setupStore(ctx context.Context, cfg *Config, s *Services) (leaderboard.Store, error) {
	switch cfg.Store.Backend {
	case "", "file":
		log.Info().Str("path", cfg.Store.FilePath).Msg("using file-backed leaderboard store")
		return leaderboard.NewFileStore(cfg.Store.FilePath, cfg.Store.RetentionCap), nil

	case "postgres":
		dbCfg := dbconfig.NewConfigFromEnv()
		pool, err := pgxpool.New(ctx, dbCfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		store := leaderboard.NewPostgresStore(pool, cfg.Store.RetentionCap)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		log.Info().Str("database", dbCfg.Database).Msg("using Postgres leaderboard store")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func setupBus(cfg *Config, s *Services) (events.Bus, error) {
	if !cfg.NATS.Enabled {
		log.Info().Msg("using in-process event bus")
		return events.NewLocalBus(), nil
	}

	natsCfg := events.DefaultNATSConfig()
	natsCfg.URL = cfg.NATS.URL
	bus, err := events.NewNATSBus(natsCfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, bus.Close)

	log.Info().Str("url", cfg.NATS.URL).Msg("using NATS event bus")
	return bus, nil
}

// Close releases external resources (database pool, NATS connection).
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
