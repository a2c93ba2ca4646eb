package game

import (
	"context"
	"time"

	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/protocol"
)

// run is the tick loop. It wakes on the tick timer or on the turn barrier
// and advances the game by exactly one tick per wakeup.
func (g *Game) run() {
	timer := time.NewTimer(g.rules.TickTime)
	defer timer.Stop()

	for {
		select {
		case <-g.stopCh:
			return
		case <-timer.C:
		case <-g.forceTick:
		}

		g.mu.Lock()
		if g.state != StateRun {
			g.mu.Unlock()
			return
		}
		g.tickLocked()
		// A barrier signal raised during the tick is consumed by it.
		select {
		case <-g.forceTick:
		default:
		}
		for _, p := range g.players {
			p.TurnDone = false
		}
		done := g.tickDone
		g.tickDone = make(chan struct{})
		g.mu.Unlock()

		close(done)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(g.rules.TickTime)
	}
}

// Turn marks the player done for this tick and blocks until the tick
// completes. When every player is done the tick fires early.
func (g *Game) Turn(playerID string) error {
	g.mu.Lock()
	if g.state != StateRun {
		state := g.state
		g.mu.Unlock()
		return errNotReady("game state is not RUN, state: %s", state)
	}
	player, ok := g.players[playerID]
	if !ok {
		g.mu.Unlock()
		return errAccessDenied("player is not part of this game")
	}
	player.TurnDone = true

	allDone := true
	for _, p := range g.players {
		if !p.TurnDone {
			allDone = false
			break
		}
	}
	if allDone {
		select {
		case g.forceTick <- struct{}{}:
		default:
		}
	}
	done := g.tickDone
	g.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(g.rules.TurnTimeout):
		return errTimeout("game tick did not happen")
	case <-g.stopCh:
		return errNotReady("game is finished")
	}
}

// TickOnce advances an observed game synchronously by one tick.
func (g *Game) TickOnce() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tickLocked()
}

// tickLocked runs the fixed per-tick pipeline. Caller holds the lock.
func (g *Game) tickLocked() {
	tick := g.currentTick + 1

	g.decrementCooldowns()
	g.replenishPosts()
	g.moveTrains()
	g.handleCollisions(tick)
	g.processTrainsAtPoints(tick)
	g.updateTowns(tick)
	g.refugeesArrival(tick)
	g.hijackersAssault(tick)
	g.parasitesAssault(tick)

	g.currentTick = tick
	// Recorded before the lock is released: a MOVE accepted after this tick
	// must sort after its TURN record or playback applies it a tick early.
	g.record(context.Background(), protocol.ActionTurn, "{}")
	g.log.Debug("tick complete", "tick", tick)
}

func (g *Game) decrementCooldowns() {
	for event, cd := range g.eventCDs {
		if cd > 0 {
			g.eventCDs[event] = cd - 1
		}
	}
	for _, train := range g.trains {
		if train.Cooldown > 0 {
			train.Cooldown--
		}
	}
}

func (g *Game) replenishPosts() {
	for _, market := range g.world.Markets() {
		if market.Product < market.ProductCapacity {
			market.Product = min(market.Product+market.Replenishment, market.ProductCapacity)
		}
	}
	for _, storage := range g.world.Storages() {
		if storage.Armor < storage.ArmorCapacity {
			storage.Armor = min(storage.Armor+storage.Replenishment, storage.ArmorCapacity)
		}
	}
}

func (g *Game) moveTrains() {
	for _, train := range g.orderedTrains() {
		if g.rules.FuelEnabled && train.Speed != 0 {
			train.Fuel -= train.FuelConsumption
			if train.Fuel < 0 {
				g.putTrainHome(train, true, true)
			}
		}
		line := g.world.Lines[train.LineIdx]
		switch {
		case train.Speed > 0 && train.Position < line.Length:
			train.Position++
		case train.Speed < 0 && train.Position > 0:
			train.Position--
		}
	}
}

// processTrainsAtPoints runs arrival processing for every train standing at
// a line endpoint: post interaction first, then the queued deferred move.
func (g *Game) processTrainsAtPoints(tick int) {
	for _, train := range g.orderedTrains() {
		line := g.world.Lines[train.LineIdx]
		pointIdx, ok := line.EndpointAt(train.Position)
		if !ok {
			continue
		}
		if post, found := g.world.PostAtPoint(pointIdx); found {
			g.trainInPost(train, post, tick)
		}
		g.applyDeferredMove(train)
	}
}

// trainInPost loads or unloads a train depending on the post kind.
func (g *Game) trainInPost(train *model.Train, post *model.Post, tick int) {
	switch post.Type {
	case model.PostTown:
		if train.PlayerID != post.PlayerID {
			return
		}
		unloaded := 0
		if train.PostType != nil && *train.PostType == model.PostMarket {
			unloaded = max(min(train.Goods, post.ProductCapacity-post.Product), 0)
			post.Product += unloaded
			if post.Product == post.ProductCapacity {
				post.AddEvent(model.Event{
					Type: model.EventResourceOverflow, Tick: tick,
					Product: model.Quantity(post.Product),
				})
			}
		} else if train.PostType != nil && *train.PostType == model.PostStorage {
			unloaded = max(min(train.Goods, post.ArmorCapacity-post.Armor), 0)
			post.Armor += unloaded
			if post.Armor == post.ArmorCapacity {
				post.AddEvent(model.Event{
					Type: model.EventResourceOverflow, Tick: tick,
					Armor: model.Quantity(post.Armor),
				})
			}
		}
		if g.rules.TrainAlwaysDevastated {
			train.Goods = 0
		} else {
			train.Goods -= unloaded
		}
		if train.Goods == 0 {
			train.PostType = nil
		}
		train.Fuel = train.FuelCapacity

	case model.PostMarket:
		if train.PostType == nil || *train.PostType == model.PostMarket {
			loaded := max(min(post.Product, train.GoodsCapacity-train.Goods), 0)
			post.Product -= loaded
			train.Goods += loaded
			kind := model.PostMarket
			train.PostType = &kind
		}

	case model.PostStorage:
		if train.PostType == nil || *train.PostType == model.PostStorage {
			loaded := max(min(post.Armor, train.GoodsCapacity-train.Goods), 0)
			post.Armor -= loaded
			train.Goods += loaded
			kind := model.PostStorage
			train.PostType = &kind
		}
	}
}

// updateTowns consumes product, starves population and emits shortage
// events.
func (g *Game) updateTowns(tick int) {
	for _, player := range g.orderedPlayers() {
		town := g.town(player)
		if town.Product < town.Population {
			town.Population = max(town.Population-1, 0)
		}
		town.Product = max(town.Product-town.Population, 0)

		if town.Population == 0 {
			town.AddEvent(model.Event{
				Type: model.EventGameOver, Tick: tick,
				Population: model.Quantity(0),
			})
		}
		if town.Product == 0 {
			town.AddEvent(model.Event{
				Type: model.EventResourceLack, Tick: tick,
				Product: model.Quantity(0),
			})
		}
		if town.Armor == 0 {
			town.AddEvent(model.Event{
				Type: model.EventResourceLack, Tick: tick,
				Armor: model.Quantity(0),
			})
		}
	}
}
