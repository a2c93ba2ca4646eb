package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/railforge/railforge/internal/config"
	"github.com/railforge/railforge/internal/game"
	"github.com/railforge/railforge/internal/gameserver"
	"github.com/railforge/railforge/internal/mapdb"
	"github.com/railforge/railforge/internal/replay"
	"github.com/railforge/railforge/internal/world"
)

const defaultConfigPath = "config/server.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := defaultConfigPath
	if p := os.Getenv(config.EnvConfigPath); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("server starting",
		"bind", cfg.BindAddress,
		"port", cfg.Port,
		"map", cfg.MapName,
		"profile", cfg.Profile)

	rules, err := config.RulesForProfile(cfg.Profile)
	if err != nil {
		return err
	}

	store, err := mapdb.Open(ctx, cfg.MapDBPath)
	if err != nil {
		return fmt.Errorf("opening map database: %w", err)
	}
	defer store.Close()

	names, err := store.Names(ctx)
	if err != nil {
		return fmt.Errorf("listing maps: %w", err)
	}
	if len(names) == 0 {
		slog.Info("map database is empty, generating built-in maps")
		if err := store.Generate(ctx, mapdb.BuiltinMaps()...); err != nil {
			return fmt.Errorf("generating maps: %w", err)
		}
	}
	loadMap := func(ctx context.Context, name string) (*world.Map, error) {
		return store.LoadMap(ctx, name)
	}
	if _, err := loadMap(ctx, cfg.MapName); err != nil {
		return fmt.Errorf("loading map %q: %w", cfg.MapName, err)
	}

	var log replay.Log
	if cfg.ReplayDSN != "" {
		pg, err := replay.NewPostgres(ctx, cfg.ReplayDSN)
		if err != nil {
			return fmt.Errorf("connecting replay database: %w", err)
		}
		log = pg
		slog.Info("replay database connected")
	} else {
		log = replay.NewMemory()
		slog.Info("replays kept in memory")
	}
	defer log.Close()

	registry := game.NewRegistry(rules, cfg.MapName, loadMap, log, slog.Default())
	srv := gameserver.New(cfg, rules, registry, loadMap, log, slog.Default())
	return srv.ListenAndServe(ctx)
}

// parseLogLevel converts a config log level to slog.Level, defaulting to
// info.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
