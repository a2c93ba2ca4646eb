// Package observer replays recorded games. An Observer belongs to exactly
// one client connection: it keeps a cursor into the selected game's action
// log and rebuilds game state by re-applying actions through the engine.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/railforge/railforge/internal/config"
	"github.com/railforge/railforge/internal/game"
	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/protocol"
	"github.com/railforge/railforge/internal/replay"
)

// Observer drives playback of one recorded game at a time.
type Observer struct {
	log     replay.Log
	rules   config.Rules
	loadMap game.MapLoader
	logger  *slog.Logger

	records []replay.GameRecord
	current *playback
}

// playback is the state of the currently selected game.
type playback struct {
	record  replay.GameRecord
	actions []replay.ActionRecord
	game    *game.Game
	turn    int
	cursor  int
}

// New lists the recorded games and returns an observer over them.
func New(ctx context.Context, log replay.Log, rules config.Rules, loadMap game.MapLoader, logger *slog.Logger) (*Observer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	records, err := log.Games(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing recorded games: %w", err)
	}
	return &Observer{
		log:     log,
		rules:   rules,
		loadMap: loadMap,
		logger:  logger,
		records: records,
	}, nil
}

// GamesJSON serializes the list of observable games.
func (o *Observer) GamesJSON() ([]byte, error) {
	if o.records == nil {
		return json.Marshal([]replay.GameRecord{})
	}
	return json.Marshal(o.records)
}

// SelectGame loads a recorded game's action log and rewinds it to turn 0.
func (o *Observer) SelectGame(ctx context.Context, idx int64) error {
	var record *replay.GameRecord
	for i := range o.records {
		if o.records[i].Idx == idx {
			record = &o.records[i]
			break
		}
	}
	if record == nil {
		return &game.Error{Kind: game.KindResourceNotFound,
			Msg: fmt.Sprintf("game not found, game: %d", idx)}
	}

	actions, err := o.log.Actions(ctx, idx)
	if err != nil {
		return fmt.Errorf("loading game actions: %w", err)
	}
	o.current = &playback{record: *record, actions: actions}
	return o.reset(ctx)
}

// reset rebuilds the observed game from scratch and plays the pre-tick
// prologue (player logins and their opening moves).
func (o *Observer) reset(ctx context.Context) error {
	m, err := o.loadMap(ctx, o.current.record.Map)
	if err != nil {
		return fmt.Errorf("loading map %q: %w", o.current.record.Map, err)
	}

	// Playback must be deterministic: random events are not re-rolled, the
	// recorded ones are already baked into the action stream's outcomes.
	rules := o.rules
	rules.Hijackers.Probability = 0
	rules.Parasites.Probability = 0
	rules.Refugees.Probability = 0
	rules.InitialEventCooldowns = nil

	g, err := game.New(ctx, game.Config{
		Name:       o.current.record.Name,
		NumPlayers: o.current.record.NumPlayers,
		Map:        m,
		Rules:      rules,
		Logger:     o.logger,
		Observed:   true,
		Seed:       1,
	})
	if err != nil {
		return err
	}
	o.current.game = g
	o.current.turn = 0
	o.current.cursor = 0
	return o.forwardTo(ctx, 0)
}

// Seek moves playback to the given turn, clamped to the recorded range.
// Seeking backward rewinds to turn 0 and replays forward.
func (o *Observer) Seek(ctx context.Context, turn int) error {
	if o.current == nil {
		return &game.Error{Kind: game.KindNotReady, Msg: "no game selected"}
	}
	turn = max(min(turn, o.current.record.Length), 0)

	if turn < o.current.turn {
		if err := o.reset(ctx); err != nil {
			return err
		}
	}
	return o.forwardTo(ctx, turn)
}

// Turn reports the current playback position.
func (o *Observer) Turn() int {
	if o.current == nil {
		return 0
	}
	return o.current.turn
}

// forwardTo consumes actions until the playback position reaches the target
// turn. Non-tick actions recorded between two TURNs belong to the earlier
// position and are applied before it is reported reached.
func (o *Observer) forwardTo(ctx context.Context, turn int) error {
	pb := o.current
	for pb.cursor < len(pb.actions) {
		action := pb.actions[pb.cursor]
		if action.Code == protocol.ActionTurn && pb.turn == turn {
			return nil
		}
		if err := o.apply(ctx, action); err != nil {
			return err
		}
		pb.cursor++
	}
	return nil
}

// apply replays one recorded action through the engine. Upgrade and event
// records carry outcomes the surrounding actions already reflect; they are
// informational and skipped.
func (o *Observer) apply(ctx context.Context, action replay.ActionRecord) error {
	pb := o.current
	switch action.Code {
	case protocol.ActionLogin:
		var msg struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(action.Message), &msg); err != nil {
			return fmt.Errorf("corrupt login record: %w", err)
		}
		return pb.game.AddPlayer(ctx, model.NewPlayer(msg.Name, msg.Name))

	case protocol.ActionMove:
		var msg struct {
			TrainIdx int `json:"train_idx"`
			Speed    int `json:"speed"`
			LineIdx  int `json:"line_idx"`
		}
		if err := json.Unmarshal([]byte(action.Message), &msg); err != nil {
			return fmt.Errorf("corrupt move record: %w", err)
		}
		return pb.game.MoveTrain("", msg.TrainIdx, msg.Speed, msg.LineIdx)

	case protocol.ActionTurn:
		pb.game.TickOnce()
		pb.turn++
	}
	return nil
}

// MapLayer serializes a layer of the observed game. Playback never clears
// pending events.
func (o *Observer) MapLayer(layer int) ([]byte, error) {
	if o.current == nil {
		return nil, &game.Error{Kind: game.KindNotReady, Msg: "no game selected"}
	}
	return o.current.game.MapLayer("", layer)
}
