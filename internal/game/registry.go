package game

import (
	"context"
	"log/slog"
	"sync"

	"github.com/railforge/railforge/internal/config"
	"github.com/railforge/railforge/internal/replay"
	"github.com/railforge/railforge/internal/world"
)

// MapLoader loads a fresh map copy by name. Every game gets its own copy
// because games mutate post and train state in place.
type MapLoader func(ctx context.Context, name string) (*world.Map, error)

// Registry owns all live games, keyed by game name.
type Registry struct {
	rules   config.Rules
	mapName string
	loadMap MapLoader
	replay  replay.Log
	log     *slog.Logger

	mu    sync.Mutex
	games map[string]*Game
}

// NewRegistry builds an empty registry. All games it creates share one map
// name, rules profile and replay log.
func NewRegistry(rules config.Rules, mapName string, loadMap MapLoader, log replay.Log, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		rules:   rules,
		mapName: mapName,
		loadMap: loadMap,
		replay:  log,
		log:     logger,
		games:   make(map[string]*Game),
	}
}

// GetOrCreate returns the game registered under name, creating it when
// absent. A game removes itself from the registry when it stops.
func (r *Registry) GetOrCreate(ctx context.Context, name string, numPlayers int) (*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.games[name]; ok {
		return g, nil
	}

	m, err := r.loadMap(ctx, r.mapName)
	if err != nil {
		return nil, err
	}
	g, err := New(ctx, Config{
		Name:       name,
		NumPlayers: numPlayers,
		Map:        m,
		Rules:      r.rules,
		Replay:     r.replay,
		Logger:     r.log,
	})
	if err != nil {
		return nil, err
	}
	g.onStop = func() { r.remove(name) }
	r.games[name] = g
	return g, nil
}

func (r *Registry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, name)
}

// Len reports the number of live games.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games)
}

// StopAll stops every live game. Used on server shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	games := make([]*Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	r.mu.Unlock()

	for _, g := range games {
		g.Stop()
	}
}
