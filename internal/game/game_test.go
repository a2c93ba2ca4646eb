package game

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railforge/railforge/internal/config"
	"github.com/railforge/railforge/internal/mapdb"
	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/protocol"
	"github.com/railforge/railforge/internal/replay"
	"github.com/railforge/railforge/internal/world"
)

// loadTestMap reads a generated map through the real store.
func loadTestMap(t *testing.T, name string) *world.Map {
	t.Helper()
	ctx := context.Background()
	store, err := mapdb.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Generate(ctx, name))
	m, err := store.LoadMap(ctx, name)
	require.NoError(t, err)
	return m
}

// duelMap is a square with two towns facing each other across a market and
// a storage. The built-in maps carry a single town, so multiplayer tests
// need their own topology.
func duelMap(t *testing.T) *world.Map {
	t.Helper()
	m := world.New(1, "duel")
	m.Size = [2]int{100, 100}
	for i := 1; i <= 4; i++ {
		m.Points[i] = &model.Point{Idx: i, PostIdx: i}
	}
	m.Lines[1] = &model.Line{Idx: 1, Length: 2, Points: [2]int{1, 2}}
	m.Lines[2] = &model.Line{Idx: 2, Length: 3, Points: [2]int{2, 3}}
	m.Lines[3] = &model.Line{Idx: 3, Length: 2, Points: [2]int{3, 4}}
	m.Lines[4] = &model.Line{Idx: 4, Length: 2, Points: [2]int{4, 1}}
	m.Posts[1] = &model.Post{Idx: 1, Name: "north-town", Type: model.PostTown, PointIdx: 1,
		Population: 5, Product: 40, Armor: 20, Level: 1}
	m.Posts[2] = &model.Post{Idx: 2, Name: "market", Type: model.PostMarket, PointIdx: 2,
		Product: 20, ProductCapacity: 20, Replenishment: 1}
	m.Posts[3] = &model.Post{Idx: 3, Name: "south-town", Type: model.PostTown, PointIdx: 3,
		Population: 5, Product: 40, Armor: 20, Level: 1}
	m.Posts[4] = &model.Post{Idx: 4, Name: "storage", Type: model.PostStorage, PointIdx: 4,
		Armor: 15, ArmorCapacity: 15, Replenishment: 1}
	return m
}

// newObservedGame builds a game without a tick goroutine so tests can drive
// ticks synchronously.
func newObservedGame(t *testing.T, m *world.Map, rules config.Rules, numPlayers int) *Game {
	t.Helper()
	g, err := New(context.Background(), Config{
		Name:       "test",
		NumPlayers: numPlayers,
		Map:        m,
		Rules:      rules,
		Observed:   true,
		Seed:       1,
	})
	require.NoError(t, err)
	return g
}

func join(t *testing.T, g *Game, idx, name string) *model.Player {
	t.Helper()
	p := model.NewPlayer(idx, name)
	require.NoError(t, g.AddPlayer(context.Background(), p))
	return p
}

func soloRules() config.Rules {
	r := config.TestingRules()
	r.TrainsCount = 1
	return r
}

// postState snapshots the post at a point.
func (g *Game) postState(pointIdx int) model.Post {
	g.mu.Lock()
	defer g.mu.Unlock()
	post, _ := g.world.PostAtPoint(pointIdx)
	return *post
}

func (g *Game) setTownArmor(playerID string, armor int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.town(g.players[playerID]).Armor = armor
}

func TestNew_TooManyPlayers(t *testing.T) {
	_, err := New(context.Background(), Config{
		Name:       "crowded",
		NumPlayers: 2,
		Map:        loadTestMap(t, "map02"),
		Rules:      config.TestingRules(),
		Observed:   true,
	})
	require.Error(t, err)
	assert.Equal(t, KindBadCommand, KindOf(err))
}

func TestAddPlayer_AssignsTownAndTrains(t *testing.T) {
	rules := config.TestingRules()
	rules.TrainsCount = 2
	g := newObservedGame(t, loadTestMap(t, "map02"), rules, 1)

	p := join(t, g, "p-1", "alice")

	assert.True(t, p.InGame)
	assert.Equal(t, 1, p.HomeIdx)
	require.Len(t, p.TrainIdxs, 2)

	town, ok := g.TownState(p.Idx)
	require.True(t, ok)
	assert.Equal(t, p.Idx, town.PlayerID)
	assert.Equal(t, 1, town.Level)
	assert.Equal(t, 10, town.PopulationCapacity)
	assert.Equal(t, 200, town.ProductCapacity)
	assert.Equal(t, 2, town.TrainCooldown)
	assert.Equal(t, 100, town.NextLevelPrice)

	for _, idx := range p.TrainIdxs {
		train, found := g.TrainState(idx)
		require.True(t, found)
		assert.Equal(t, p.Idx, train.PlayerID)
		assert.Equal(t, 1, train.LineIdx, "parked on the lowest-idx home line")
		assert.Equal(t, 0, train.Position)
		assert.Zero(t, train.Speed)
		assert.Zero(t, train.Cooldown, "initial parking has no cooldown")
		assert.Equal(t, 40, train.GoodsCapacity)
	}
}

func TestAddPlayer_GameFull(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	join(t, g, "p-1", "alice")

	err := g.AddPlayer(context.Background(), model.NewPlayer("p-2", "bob"))
	require.Error(t, err)
	assert.Equal(t, KindAccessDenied, KindOf(err))
}

func TestAddPlayer_SecondPlayerGetsSecondTown(t *testing.T) {
	rules := config.TestingRules()
	rules.TrainsCount = 1
	g := newObservedGame(t, duelMap(t), rules, 2)

	alice := join(t, g, "p-1", "alice")
	bob := join(t, g, "p-2", "bob")

	assert.Equal(t, 1, alice.TownIdx)
	assert.Equal(t, 3, bob.TownIdx)
	assert.Equal(t, 3, bob.HomeIdx)

	bobTrain, _ := g.TrainState(2)
	assert.Equal(t, 2, bobTrain.LineIdx, "lowest-idx line at point 3")
	assert.Equal(t, 3, bobTrain.Position, "point 3 is the far end of line 2")
}

func TestAddPlayer_Rejoin(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	remaining := g.Leave(p.Idx)
	assert.False(t, remaining)
	assert.False(t, p.InGame)

	require.NoError(t, g.AddPlayer(context.Background(), p))
	assert.True(t, p.InGame)
	require.Len(t, p.TrainIdxs, 1, "rejoin does not duplicate trains")
}

func TestMoveTrain_Validation(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	tests := []struct {
		name     string
		train    int
		speed    int
		line     int
		wantKind Kind
	}{
		{name: "unknown train", train: 99, speed: 1, line: 1, wantKind: KindResourceNotFound},
		{name: "unknown line", train: 1, speed: 1, line: 99, wantKind: KindResourceNotFound},
		{name: "disconnected line", train: 1, speed: 1, line: 4, wantKind: KindBadCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.MoveTrain(p.Idx, tt.train, tt.speed, tt.line)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
}

func TestMoveTrain_OwnerMismatch(t *testing.T) {
	rules := config.TestingRules()
	rules.TrainsCount = 1
	g := newObservedGame(t, duelMap(t), rules, 2)
	join(t, g, "p-1", "alice")
	bob := join(t, g, "p-2", "bob")

	// Observed games skip the owner check, so flip the flag off for this.
	g.observed = false
	err := g.MoveTrain(bob.Idx, 1, 1, 1)
	require.Error(t, err)
	assert.Equal(t, KindAccessDenied, KindOf(err))
}

func TestMoveTrain_ReanchorAtEndpoint(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	// Parked at point 1 on line 1. Line 13 also touches point 1.
	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 13))

	train, _ := g.TrainState(1)
	assert.Equal(t, 13, train.LineIdx)
	assert.Equal(t, 0, train.Position, "point 1 is the start of line 13")
	assert.Equal(t, 1, train.Speed)
}

func TestMoveTrain_StoppedMidLine(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	// Drive one segment onto line 13 (length 2) and stop mid-line.
	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 13))
	g.TickOnce()
	require.NoError(t, g.MoveTrain(p.Idx, 1, 0, 13))

	train, _ := g.TrainState(1)
	require.Equal(t, 1, train.Position)
	require.Zero(t, train.Speed)

	err := g.MoveTrain(p.Idx, 1, 1, 1)
	require.Error(t, err)
	assert.Equal(t, KindBadCommand, KindOf(err))

	// Resuming on the same line is fine.
	require.NoError(t, g.MoveTrain(p.Idx, 1, -1, 13))
}

func TestMoveTrain_DeferredSwitch(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	// Moving along line 13 (1->2); line 14 starts at point 2.
	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 13))
	g.TickOnce()
	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 14))

	train, _ := g.TrainState(1)
	assert.Equal(t, 13, train.LineIdx, "switch is deferred until arrival")

	g.TickOnce() // arrive at point 2, apply the queued switch
	train, _ = g.TrainState(1)
	assert.Equal(t, 14, train.LineIdx)
	assert.Equal(t, 0, train.Position)
	assert.Equal(t, 1, train.Speed)
}

func TestMoveTrain_IncompatibleDeferredSwitch(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 13))
	g.TickOnce()

	// Line 5 touches neither endpoint ahead of the train.
	err := g.MoveTrain(p.Idx, 1, 1, 5)
	require.Error(t, err)
	assert.Equal(t, KindBadCommand, KindOf(err))
}

func TestMoveTrain_AcceptedMoveClearsQueued(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 13))
	g.TickOnce()
	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 14))
	// Reversing on the current line cancels the queued switch.
	require.NoError(t, g.MoveTrain(p.Idx, 1, -1, 13))

	g.TickOnce() // back at point 1
	train, _ := g.TrainState(1)
	assert.Equal(t, 13, train.LineIdx)
	assert.Equal(t, 0, train.Position)
	assert.Zero(t, train.Speed, "no queued move left to apply")
}

// Simple transport run on map02: town at point 1, market at point 7, joined
// by line 1 of length 1.
func TestTick_TransportRoundTrip(t *testing.T) {
	rules := soloRules()
	lvl := rules.TrainLevels[1]
	lvl.GoodsCapacity = 2
	rules.TrainLevels[1] = lvl

	g := newObservedGame(t, loadTestMap(t, "map02"), rules, 1)
	p := join(t, g, "p-1", "alice")

	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 1))
	g.TickOnce()

	train, _ := g.TrainState(1)
	assert.Equal(t, 1, train.LineIdx)
	assert.Equal(t, 1, train.Position)
	assert.Zero(t, train.Speed, "train stops at the market")
	assert.Equal(t, 2, train.Goods)
	require.NotNil(t, train.PostType)
	assert.Equal(t, model.PostMarket, *train.PostType)

	market := g.postState(7)
	assert.Equal(t, 3, market.Product, "2 of 5 loaded; market is at capacity, no refill")

	require.NoError(t, g.MoveTrain(p.Idx, 1, -1, 1))
	g.TickOnce()

	train, _ = g.TrainState(1)
	assert.Equal(t, 0, train.Position)
	assert.Zero(t, train.Speed)
	assert.Zero(t, train.Goods)
	assert.Nil(t, train.PostType)

	market = g.postState(7)
	assert.Equal(t, 4, market.Product, "one replenishment while the train was away")

	town, _ := g.TownState(p.Idx)
	assert.Equal(t, 31, town.Product, "35 - 3 - 3 consumed, 2 delivered")
	assert.GreaterOrEqual(t, town.Product, 0)
	assert.LessOrEqual(t, town.Product, town.ProductCapacity)
}

func TestTick_HeadOnCollision(t *testing.T) {
	rules := config.TestingRules()
	rules.TrainsCount = 2
	g := newObservedGame(t, loadTestMap(t, "map02"), rules, 1)
	p := join(t, g, "p-1", "alice")

	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 13))
	require.NoError(t, g.MoveTrain(p.Idx, 2, 1, 13))
	g.TickOnce()

	town, _ := g.TownState(p.Idx)
	for _, idx := range []int{1, 2} {
		train, _ := g.TrainState(idx)
		assert.Equal(t, 1, train.LineIdx, "train %d sent home", idx)
		assert.Equal(t, 0, train.Position)
		assert.Zero(t, train.Speed)
		assert.Zero(t, train.Goods)
		assert.Equal(t, town.TrainCooldown, train.Cooldown)
		require.Len(t, train.Events, 1)
		assert.Equal(t, model.EventTrainCollision, train.Events[0].Type)
		assert.Equal(t, 1, train.Events[0].Tick)
	}
	first, _ := g.TrainState(1)
	second, _ := g.TrainState(2)
	assert.Equal(t, 2, first.Events[0].Train)
	assert.Equal(t, 1, second.Events[0].Train)

	err := g.MoveTrain(p.Idx, 1, 1, 1)
	require.Error(t, err)
	assert.Equal(t, KindBadCommand, KindOf(err))
}

func TestTick_HeadOnAdjacentCollision(t *testing.T) {
	rules := config.TestingRules()
	rules.TrainsCount = 1
	g := newObservedGame(t, duelMap(t), rules, 2)
	alice := join(t, g, "p-1", "alice")
	bob := join(t, g, "p-2", "bob")

	// Line 2 runs 2 -> 3 with length 3: alice approaches from the market
	// side, bob leaves home toward the market. After one tick they are
	// adjacent and closing, about to swap cells.
	require.NoError(t, g.MoveTrain(alice.Idx, 1, 1, 1))
	g.TickOnce()
	g.TickOnce() // alice arrives at point 2 and stops
	require.NoError(t, g.MoveTrain(alice.Idx, 1, 1, 2))
	require.NoError(t, g.MoveTrain(bob.Idx, 2, -1, 2))
	g.TickOnce()

	aliceTrain, _ := g.TrainState(1)
	bobTrain, _ := g.TrainState(2)
	assert.Equal(t, 1, aliceTrain.LineIdx)
	assert.Equal(t, 0, aliceTrain.Position, "back home at point 1")
	assert.Equal(t, 2, bobTrain.LineIdx)
	assert.Equal(t, 3, bobTrain.Position, "back home at point 3")
	require.Len(t, aliceTrain.Events, 1)
	require.Len(t, bobTrain.Events, 1)
}

func TestTick_NoCollisionInsideTown(t *testing.T) {
	rules := config.TestingRules()
	rules.TrainsCount = 3
	g := newObservedGame(t, loadTestMap(t, "map02"), rules, 1)
	p := join(t, g, "p-1", "alice")

	g.TickOnce()
	g.TickOnce()
	for _, idx := range p.TrainIdxs {
		train, _ := g.TrainState(idx)
		assert.Empty(t, train.Events)
		assert.Zero(t, train.Cooldown)
	}
}

func TestTick_RefugeesCadence(t *testing.T) {
	rules := soloRules()
	rules.Refugees = config.EventRules{Probability: 100, PowerMin: 1, PowerMax: 1, CooldownCoefficient: 5}
	g := newObservedGame(t, loadTestMap(t, "map02"), rules, 1)
	p := join(t, g, "p-1", "alice")

	popByTick := make(map[int]int)
	for tick := 1; tick <= 6; tick++ {
		g.TickOnce()
		town, _ := g.TownState(p.Idx)
		popByTick[tick] = town.Population
	}

	assert.Equal(t, 4, popByTick[1], "refugees land on tick 1")
	assert.Equal(t, 4, popByTick[2])
	assert.Equal(t, 4, popByTick[5])
	assert.Equal(t, 5, popByTick[6], "cooldown of 5 expires on tick 6")

	town, _ := g.TownState(p.Idx)
	var arrivals []int
	for _, e := range town.Events {
		if e.Type == model.EventRefugeesArrival {
			arrivals = append(arrivals, e.Tick)
		}
	}
	assert.Equal(t, []int{1, 6}, arrivals)
}

func TestTick_HijackersBurnArmorThenPopulation(t *testing.T) {
	rules := soloRules()
	rules.Hijackers = config.EventRules{Probability: 100, PowerMin: 3, PowerMax: 3, CooldownCoefficient: 5}
	g := newObservedGame(t, duelMap(t), rules, 1) // duel map town: armor 20
	p := join(t, g, "p-1", "alice")

	g.setTownArmor(p.Idx, 1)
	g.TickOnce()

	town, _ := g.TownState(p.Idx)
	assert.Zero(t, town.Armor)
	assert.Equal(t, 3, town.Population, "5 - (3 - 1) absorbed by armor")
}

func TestUpgrade_Atomicity(t *testing.T) {
	rules := config.TestingRules()
	rules.TrainsCount = 2
	g := newObservedGame(t, loadTestMap(t, "map02"), rules, 1)
	p := join(t, g, "p-1", "alice")

	// Both trains are parked at the town. Level-1 trains cost 40 each.
	g.setTownArmor(p.Idx, 79)
	err := g.Upgrade(p.Idx, nil, []int{1, 2})
	require.Error(t, err)
	assert.Equal(t, KindBadCommand, KindOf(err))
	for _, idx := range []int{1, 2} {
		train, _ := g.TrainState(idx)
		assert.Equal(t, 1, train.Level)
	}

	g.setTownArmor(p.Idx, 80)
	require.NoError(t, g.Upgrade(p.Idx, nil, []int{1, 2}))
	for _, idx := range []int{1, 2} {
		train, _ := g.TrainState(idx)
		assert.Equal(t, 2, train.Level)
		assert.Equal(t, 80, train.GoodsCapacity)
		assert.Equal(t, 80, train.NextLevelPrice)
	}
	town, _ := g.TownState(p.Idx)
	assert.Zero(t, town.Armor, "exact sum deducted")
}

func TestUpgrade_MixedPostAndTrain(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	// Town upgrade costs 100, train 40.
	g.setTownArmor(p.Idx, 140)
	require.NoError(t, g.Upgrade(p.Idx, []int{1}, []int{1}))

	town, _ := g.TownState(p.Idx)
	assert.Equal(t, 2, town.Level)
	assert.Equal(t, 20, town.PopulationCapacity)
	assert.Equal(t, 500, town.ProductCapacity)
	assert.Equal(t, 1, town.TrainCooldown)
	assert.Zero(t, town.Armor)

	train, _ := g.TrainState(1)
	assert.Equal(t, 2, train.Level)
}

func TestUpgrade_TrainNotAtTown(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 1))
	g.TickOnce() // now at the market, not the town

	g.setTownArmor(p.Idx, 200)
	err := g.Upgrade(p.Idx, nil, []int{1})
	require.Error(t, err)
	assert.Equal(t, KindBadCommand, KindOf(err))
}

func TestUpgrade_MaxLevel(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	g.setTownArmor(p.Idx, 200)
	require.NoError(t, g.Upgrade(p.Idx, nil, []int{1}))
	require.NoError(t, g.Upgrade(p.Idx, nil, []int{1}))

	err := g.Upgrade(p.Idx, nil, []int{1})
	require.Error(t, err)
	assert.Equal(t, KindBadCommand, KindOf(err))
}

func TestUpgrade_NonTownPost(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	g.setTownArmor(p.Idx, 200)
	err := g.Upgrade(p.Idx, []int{4}, nil) // market-small
	require.Error(t, err)
	assert.Equal(t, KindBadCommand, KindOf(err))
}

func TestMapLayer_ClearsOnlyCallerEvents(t *testing.T) {
	rules := config.TestingRules()
	rules.TrainsCount = 1
	rules.Hijackers = config.EventRules{Probability: 100, PowerMin: 1, PowerMax: 1, CooldownCoefficient: 5}
	g := newObservedGame(t, duelMap(t), rules, 2)
	alice := join(t, g, "p-1", "alice")
	bob := join(t, g, "p-2", "bob")

	g.TickOnce() // hijackers hit both towns

	aliceTown, _ := g.TownState(alice.Idx)
	bobTown, _ := g.TownState(bob.Idx)
	require.NotEmpty(t, aliceTown.Events)
	require.NotEmpty(t, bobTown.Events)

	// Observed games never clear; player reads do.
	g.observed = false
	_, err := g.MapLayer(alice.Idx, world.LayerDynamic)
	require.NoError(t, err)

	aliceTown, _ = g.TownState(alice.Idx)
	bobTown, _ = g.TownState(bob.Idx)
	assert.Empty(t, aliceTown.Events, "caller's events acknowledged")
	assert.NotEmpty(t, bobTown.Events, "other player's events kept")
}

func TestMapLayer_UnknownLayer(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	_, err := g.MapLayer(p.Idx, 2)
	require.Error(t, err)
	assert.Equal(t, KindResourceNotFound, KindOf(err))
}

func TestMapLayer_RatingIncluded(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	data, err := g.MapLayer(p.Idx, world.LayerDynamic)
	require.NoError(t, err)

	var got struct {
		Rating map[string]struct {
			Name   string `json:"name"`
			Rating int    `json:"rating"`
		} `json:"rating"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Contains(t, got.Rating, p.Idx)
	assert.Equal(t, "alice", got.Rating[p.Idx].Name)
	assert.Equal(t, 3*1000+35, got.Rating[p.Idx].Rating)
}

func TestPlayerSnapshot(t *testing.T) {
	g := newObservedGame(t, loadTestMap(t, "map02"), soloRules(), 1)
	p := join(t, g, "p-1", "alice")

	data, err := g.PlayerSnapshot(p.Idx)
	require.NoError(t, err)

	var got struct {
		Idx  string `json:"idx"`
		Name string `json:"name"`
		Home struct {
			Idx int `json:"idx"`
		} `json:"home"`
		Town struct {
			Idx int `json:"idx"`
		} `json:"town"`
		Trains []struct {
			Idx int `json:"idx"`
		} `json:"train"`
		Rating int `json:"rating"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "p-1", got.Idx)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, 1, got.Home.Idx)
	assert.Equal(t, 1, got.Town.Idx)
	require.Len(t, got.Trains, 1)
	assert.Equal(t, 1, got.Trains[0].Idx)
	assert.Equal(t, 3*1000+35, got.Rating)
}

func TestReplayRecording(t *testing.T) {
	ctx := context.Background()
	log := replay.NewMemory()
	g, err := New(ctx, Config{
		Name:       "recorded",
		NumPlayers: 2, // never fills, so no tick goroutine starts
		Map:        duelMap(t),
		Rules:      soloRules(),
		Replay:     log,
	})
	require.NoError(t, err)
	t.Cleanup(g.Stop)
	p := join(t, g, "p-1", "alice")

	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 1))
	require.NoError(t, log.Flush(ctx))

	games, err := log.Games(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "recorded", games[0].Name)
	assert.Equal(t, "duel", games[0].Map)
	assert.Equal(t, 2, games[0].NumPlayers)

	actions, err := log.Actions(ctx, games[0].Idx)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, protocol.ActionLogin, actions[0].Code)
	assert.JSONEq(t, `{"name":"alice"}`, actions[0].Message)
	assert.Equal(t, protocol.ActionMove, actions[1].Code)
	assert.JSONEq(t, `{"train_idx":1,"speed":1,"line_idx":1}`, actions[1].Message)
}

// A move accepted after a tick must appear after that tick's TURN record,
// or playback re-applies it one tick early.
func TestReplayRecording_MovesOrderedAgainstTurns(t *testing.T) {
	ctx := context.Background()
	log := replay.NewMemory()
	g, err := New(ctx, Config{
		Name:       "ordered",
		NumPlayers: 2, // never fills, so ticks are driven by the test
		Map:        duelMap(t),
		Rules:      soloRules(),
		Replay:     log,
	})
	require.NoError(t, err)
	t.Cleanup(g.Stop)
	p := join(t, g, "p-1", "alice")

	require.NoError(t, g.MoveTrain(p.Idx, 1, 1, 1))
	g.TickOnce()
	require.NoError(t, g.MoveTrain(p.Idx, 1, -1, 1))
	g.TickOnce()

	games, err := log.Games(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	actions, err := log.Actions(ctx, games[0].Idx)
	require.NoError(t, err)

	var codes []protocol.Action
	for _, a := range actions {
		codes = append(codes, a.Code)
	}
	assert.Equal(t, []protocol.Action{
		protocol.ActionLogin,
		protocol.ActionMove,
		protocol.ActionTurn,
		protocol.ActionMove,
		protocol.ActionTurn,
	}, codes)
}
