// Package gameserver accepts TCP connections and speaks the binary game
// protocol, bridging sessions to the game engine and observer playback.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/railforge/railforge/internal/config"
	"github.com/railforge/railforge/internal/game"
	"github.com/railforge/railforge/internal/replay"
)

// Server owns the listener and the shared state every session needs.
type Server struct {
	cfg       config.Server
	rules     config.Rules
	registry  *game.Registry
	players   *PlayerRegistry
	loadMap   game.MapLoader
	replayLog replay.Log
	log       *slog.Logger
	limiter   *rate.Limiter
}

// New assembles a server around an existing registry and replay log.
func New(cfg config.Server, rules config.Rules, registry *game.Registry,
	loadMap game.MapLoader, replayLog replay.Log, logger *slog.Logger) *Server {

	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		rules:     rules,
		registry:  registry,
		players:   NewPlayerRegistry(),
		loadMap:   loadMap,
		replayLog: replayLog,
		log:       logger,
	}
	if cfg.FloodProtection {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptsPerSecond), cfg.AcceptBurst)
	}
	return s
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then stops every live
// game so buffered replays reach the log.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("server listening", "addr", ln.Addr().String())

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	eg.Go(func() error {
		for {
			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					return nil
				}
			}
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accepting connection: %w", err)
			}
			sess := &session{
				srv:  s,
				conn: conn,
				log:  s.log.With("remote", conn.RemoteAddr().String()),
			}
			go sess.serve(ctx)
		}
	})

	err := eg.Wait()
	s.registry.StopAll()
	s.log.Info("server stopped")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
