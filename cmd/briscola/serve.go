package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lapster88/briscola/cmd/briscola/shared"
	"github.com/lapster88/briscola/internal/broker"
	"github.com/lapster88/briscola/internal/randutil"
	"github.com/lapster88/briscola/internal/server"
)

// ServeCmd runs the supervisor and its actors
type ServeCmd struct {
	Config      string   `kong:"default='briscola.hcl',help='HCL config file (skipped when missing)'"`
	EnvFile     []string `kong:"default='.env',help='Dotenv files loaded before the environment is read'"`
	Memory      bool     `kong:"help='Use the in-process broker instead of Redis'"`
	RedisURL    string   `kong:"help='Redis URL, overrides config and REDIS_URL'"`
	MetricsAddr string   `kong:"help='Metrics listen address, overrides config; empty disables'"`
	Seed        *int64   `kong:"help='Deterministic RNG seed for dealing (optional)'"`
	Debug       bool     `kong:"help='Enable debug logging'"`
	JSONLogs    bool     `kong:"name='json-logs',help='Log JSON instead of console output'"`
}

func (c *ServeCmd) config() (server.Config, error) {
	if err := server.LoadEnvFile(c.EnvFile...); err != nil {
		return server.Config{}, err
	}
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return server.Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return server.Config{}, err
	}
	if c.RedisURL != "" {
		cfg.RedisURL = c.RedisURL
	}
	if c.MetricsAddr != "" {
		cfg.MetricsAddress = c.MetricsAddr
	}
	if c.Seed != nil {
		cfg.Seed = *c.Seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = randutil.TimeSeed()
	}
	return cfg, cfg.Validate()
}

func (c *ServeCmd) Run() error {
	cfg, err := c.config()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	level, err := shared.ParseLevel(cfg.LogLevel, c.Debug)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	var logger zerolog.Logger
	if c.JSONLogs {
		logger = shared.SetupStructuredLogger(level)
	} else {
		logger = shared.SetupLogger(level)
	}

	ctx := shared.SignalContext(&logger)

	clock := quartz.NewReal()
	bus, err := c.connect(ctx, cfg, clock)
	if err != nil {
		return err
	}
	defer bus.Close()

	metrics := server.NewMetrics()
	supervisor := server.NewSupervisor(bus, clock, logger, metrics, cfg)

	logger.Info().
		Bool("memory", c.Memory).
		Str("key_prefix", cfg.KeyPrefix).
		Str("protocol_version", cfg.ProtocolVersion).
		Int64("seed", cfg.Seed).
		Dur("heartbeat_ttl", cfg.HeartbeatTTL).
		Dur("snapshot_ttl", cfg.SnapshotTTL).
		Int("minimum_hand_value", cfg.MinimumHandValue).
		Msg("Starting briscola service")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return supervisor.Run(gctx) })
	if cfg.MetricsAddress != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           metricsMux(metrics),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("address", cfg.MetricsAddress).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info().Msg("Service stopped")
	return err
}

func (c *ServeCmd) connect(ctx context.Context, cfg server.Config, clock quartz.Clock) (broker.Broker, error) {
	if c.Memory {
		return broker.NewMemory(clock), nil
	}
	bus, err := broker.DialRedis(ctx, cfg.RedisURL, broker.WithPoolSize(cfg.RedisPoolSize))
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return bus, nil
}

func metricsMux(metrics *server.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
