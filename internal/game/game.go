// Package game implements the tick-driven engine: one Game owns a map copy,
// its players and trains, a tick goroutine and the turn barrier. All state
// mutation happens under the game lock.
package game

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/railforge/railforge/internal/config"
	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/protocol"
	"github.com/railforge/railforge/internal/replay"
	"github.com/railforge/railforge/internal/world"
)

// State is the game lifecycle state.
type State int

const (
	StateInit State = iota + 1
	StateRun
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRun:
		return "RUN"
	case StateFinished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

type deferredMove struct {
	speed   int
	lineIdx int
}

// Config carries everything a new game needs.
type Config struct {
	Name       string
	NumPlayers int
	Map        *world.Map
	Rules      config.Rules
	Replay     replay.Log // nil for observed games
	Logger     *slog.Logger
	Observed   bool
	Seed       int64 // 0 means seed from the clock
}

// Game is one running (or observed) match.
type Game struct {
	name     string
	rules    config.Rules
	log      *slog.Logger
	observed bool

	replay   replay.Log
	replayID int64

	mu          sync.Mutex
	state       State
	world       *world.Map
	players     map[string]*model.Player
	playerOrder []string
	trains      map[int]*model.Train
	nextMoves   map[int]deferredMove
	eventCDs    map[model.EventType]int
	currentTick int
	numPlayers  int
	rnd         *rand.Rand

	stopCh    chan struct{}
	stopOnce  sync.Once
	forceTick chan struct{}
	tickDone  chan struct{}
	onStop    func()
}

// New creates a game in INIT state. For recorded games it registers the game
// in the replay log immediately so its id is allocated before any action.
func New(ctx context.Context, cfg Config) (*Game, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NumPlayers < 1 {
		return nil, errBadCommand("invalid players number: %d", cfg.NumPlayers)
	}
	if towns := len(cfg.Map.Towns()); cfg.NumPlayers > towns {
		return nil, errBadCommand(
			"unable to create game with %d players, map %q has %d towns",
			cfg.NumPlayers, cfg.Map.Name, towns)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Game{
		name:       cfg.Name,
		rules:      cfg.Rules,
		log:        cfg.Logger.With("game", cfg.Name),
		observed:   cfg.Observed,
		replay:     cfg.Replay,
		state:      StateInit,
		world:      cfg.Map,
		players:    make(map[string]*model.Player),
		trains:     make(map[int]*model.Train),
		nextMoves:  make(map[int]deferredMove),
		eventCDs:   make(map[model.EventType]int),
		numPlayers: cfg.NumPlayers,
		rnd:        rand.New(rand.NewSource(seed)),
		stopCh:     make(chan struct{}),
		forceTick:  make(chan struct{}, 1),
		tickDone:   make(chan struct{}),
	}
	for event, cd := range cfg.Rules.InitialEventCooldowns {
		g.eventCDs[event] = cd
	}

	if g.replay != nil {
		id, err := g.replay.AddGame(ctx, cfg.Name, cfg.Map.Name, cfg.NumPlayers)
		if err != nil {
			return nil, err
		}
		g.replayID = id
	}
	g.log.Info("game created", "map", cfg.Map.Name, "num_players", cfg.NumPlayers)
	return g, nil
}

// Name returns the game's registry key.
func (g *Game) Name() string { return g.name }

// NumPlayers returns the target player count the game was created with.
func (g *Game) NumPlayers() int { return g.numPlayers }

// State returns the current lifecycle state.
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// CurrentTick returns the number of completed ticks.
func (g *Game) CurrentTick() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentTick
}

// AddPlayer joins a player to the game: assigns the first free town, creates
// the player's trains and, once the game is full, starts the tick loop.
// Re-joining an already seated player only flips their in-game flag back.
func (g *Game) AddPlayer(ctx context.Context, player *model.Player) error {
	g.mu.Lock()

	if seated, ok := g.players[player.Idx]; ok {
		seated.InGame = true
		seated.TurnDone = false
		g.mu.Unlock()
		return nil
	}
	if len(g.players) == g.numPlayers {
		g.mu.Unlock()
		return errAccessDenied("the maximum number of players reached")
	}
	if player.InGame {
		g.mu.Unlock()
		return errAccessDenied("you are logged in another game, you have to log out first")
	}

	town := g.freeTown()
	if town == nil {
		g.mu.Unlock()
		return errAccessDenied("no free town left on the map")
	}
	town.PlayerID = player.Idx
	town.ApplyLevel(g.rules.TownLevels[town.Level])

	player.HomeIdx = town.PointIdx
	player.TownIdx = town.Idx
	player.InGame = true
	player.TurnDone = false
	player.TrainIdxs = nil
	g.players[player.Idx] = player
	g.playerOrder = append(g.playerOrder, player.Idx)

	for i := 0; i < g.rules.TrainsCount; i++ {
		train := model.NewTrain(len(g.trains)+1, g.rules.TrainLevels[1])
		train.PlayerID = player.Idx
		player.TrainIdxs = append(player.TrainIdxs, train.Idx)
		g.trains[train.Idx] = train
		g.world.AddTrain(train)
		g.putTrainHome(train, false, false)
	}
	g.log.Info("player joined", "player", player.Name, "town", town.Name)

	full := len(g.players) == g.numPlayers
	if full && !g.observed {
		g.state = StateRun
	}
	// Recorded while the lock is held so the log order matches the order
	// the engine applied the actions in.
	g.record(ctx, protocol.ActionLogin, loginMessage(player.Name))
	g.mu.Unlock()

	if full && !g.observed {
		go g.run()
	}
	return nil
}

func loginMessage(name string) string {
	data, _ := json.Marshal(map[string]string{"name": name})
	return string(data)
}

// freeTown picks the lowest-idx town without an owner.
func (g *Game) freeTown() *model.Post {
	for _, town := range g.world.Towns() {
		if town.PlayerID == "" {
			return town
		}
	}
	return nil
}

// putTrainHome parks a train at its owner's home point, on the lowest-idx
// line touching it.
func (g *Game) putTrainHome(train *model.Train, unload, cooldown bool) {
	owner := g.players[train.PlayerID]
	lines := g.world.LinesAtPoint(owner.HomeIdx)
	line := lines[0]

	train.LineIdx = line.Idx
	if owner.HomeIdx == line.Points[0] {
		train.Position = 0
	} else {
		train.Position = line.Length
	}
	train.Speed = 0
	if unload {
		train.Unload()
	}
	if cooldown {
		train.Cooldown = g.world.Posts[owner.TownIdx].TrainCooldown
	}
}

// Leave marks a player out of the game. It reports whether any player is
// still connected; callers stop the game when nobody remains.
func (g *Game) Leave(playerID string) (remaining bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.players[playerID]; ok {
		p.InGame = false
	}
	for _, p := range g.players {
		if p.InGame {
			return true
		}
	}
	return false
}

// Stop finishes the game: the tick loop exits, buffered replay actions are
// flushed and the registry callback fires. Safe to call more than once.
func (g *Game) Stop() {
	g.stopOnce.Do(func() {
		g.mu.Lock()
		g.state = StateFinished
		g.mu.Unlock()
		close(g.stopCh)

		if g.replay != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := g.replay.Flush(ctx); err != nil {
				g.log.Error("replay flush failed", "error", err)
			}
		}
		if g.onStop != nil {
			g.onStop()
		}
		g.log.Info("game stopped")
	})
}

// record appends a replay action for recorded games. Recording happens in
// the engine rather than the session so that action order matches the order
// the engine applied them in.
func (g *Game) record(ctx context.Context, code protocol.Action, message string) {
	if g.replay == nil {
		return
	}
	if err := g.replay.AddAction(ctx, g.replayID, code, message); err != nil {
		g.log.Error("replay write failed", "action", code.String(), "error", err)
	}
}

// orderedPlayers returns players in join order.
func (g *Game) orderedPlayers() []*model.Player {
	out := make([]*model.Player, 0, len(g.playerOrder))
	for _, idx := range g.playerOrder {
		out = append(out, g.players[idx])
	}
	return out
}

// orderedTrains returns trains sorted by idx.
func (g *Game) orderedTrains() []*model.Train {
	idxs := make([]int, 0, len(g.trains))
	for idx := range g.trains {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	out := make([]*model.Train, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.trains[idx])
	}
	return out
}

func (g *Game) town(p *model.Player) *model.Post {
	return g.world.Posts[p.TownIdx]
}
