package game

import (
	"encoding/json"

	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/world"
)

// Rating is a player's scoreboard value: population is weighted heavily,
// stockpiles break ties.
func rating(town *model.Post) int {
	return town.Population*1000 + town.Product + town.Armor
}

// MapLayer serializes a map layer for the given player. A successful layer 1
// read acknowledges the player's pending events: they are cleared from that
// player's towns and trains. Observed games never clear events.
func (g *Game) MapLayer(playerID string, layer int) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch layer {
	case world.LayerStatic, world.LayerDynamic, world.LayerRender:
	default:
		return nil, errNotFound("map layer not found, layer: %d", layer)
	}

	var ratings map[string]world.RatingEntry
	if layer == world.LayerDynamic {
		ratings = make(map[string]world.RatingEntry, len(g.players))
		for _, player := range g.players {
			ratings[player.Idx] = world.RatingEntry{
				Idx:    player.Idx,
				Name:   player.Name,
				Rating: rating(g.town(player)),
			}
		}
	}

	data, err := g.world.Layer(layer, ratings)
	if err != nil {
		return nil, err
	}

	if layer == world.LayerDynamic && !g.observed && playerID != "" {
		g.clearPlayerEvents(playerID)
	}
	return data, nil
}

// clearPlayerEvents drops pending events owned by one player only.
func (g *Game) clearPlayerEvents(playerID string) {
	for _, train := range g.trains {
		if train.PlayerID == playerID {
			train.Events = nil
		}
	}
	for _, town := range g.world.Towns() {
		if town.PlayerID == playerID {
			town.Events = nil
		}
	}
}

type playerJSON struct {
	Idx    string         `json:"idx"`
	Name   string         `json:"name"`
	Home   *model.Point   `json:"home"`
	Town   *model.Post    `json:"town"`
	Trains []*model.Train `json:"train"`
	Rating int            `json:"rating"`
	InGame bool           `json:"in_game"`
}

// PlayerSnapshot serializes a player with their home, town and trains, as
// sent in the LOGIN response.
func (g *Game) PlayerSnapshot(playerID string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	player, ok := g.players[playerID]
	if !ok {
		return nil, errNotFound("player not found, id: %s", playerID)
	}

	town := g.town(player)
	out := playerJSON{
		Idx:    player.Idx,
		Name:   player.Name,
		Home:   g.world.Points[player.HomeIdx],
		Town:   town,
		Trains: make([]*model.Train, 0, len(player.TrainIdxs)),
		Rating: rating(town),
		InGame: player.InGame,
	}
	for _, idx := range player.TrainIdxs {
		out.Trains = append(out.Trains, g.trains[idx])
	}
	return json.Marshal(out)
}

// TrainState returns a copy of one train, for tests and diagnostics.
func (g *Game) TrainState(trainIdx int) (model.Train, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	train, ok := g.trains[trainIdx]
	if !ok {
		return model.Train{}, false
	}
	return *train, true
}

// TownState returns a copy of a player's town.
func (g *Game) TownState(playerID string) (model.Post, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	player, ok := g.players[playerID]
	if !ok {
		return model.Post{}, false
	}
	return *g.town(player), true
}
