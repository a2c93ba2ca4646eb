package game

import (
	"context"
	"encoding/json"
	"math"

	"github.com/railforge/railforge/internal/config"
	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/protocol"
)

// rollEvent decides whether an event class fires this tick and returns its
// drawn power. Caller holds the lock.
func (g *Game) rollEvent(eventType model.EventType, rules config.EventRules) (int, bool) {
	if g.eventCDs[eventType] > 0 {
		return 0, false
	}
	if g.rnd.Intn(100)+1 > rules.Probability {
		return 0, false
	}
	power := rules.PowerMin
	if rules.PowerMax > rules.PowerMin {
		power += g.rnd.Intn(rules.PowerMax - rules.PowerMin + 1)
	}
	g.eventCDs[eventType] = int(math.Round(float64(power) * rules.CooldownCoefficient))
	return power, true
}

func (g *Game) recordEvent(event model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		g.log.Error("event marshal failed", "type", event.Type.String(), "error", err)
		return
	}
	g.record(context.Background(), protocol.ActionEvent, string(data))
}

// refugeesArrival grows every town's population, capped at capacity.
func (g *Game) refugeesArrival(tick int) {
	number, ok := g.rollEvent(model.EventRefugeesArrival, g.rules.Refugees)
	if !ok {
		return
	}
	g.log.Info("refugees arrival", "number", number)
	event := model.RefugeesEvent(tick, number)
	for _, player := range g.orderedPlayers() {
		town := g.town(player)
		town.Population += max(min(town.PopulationCapacity-town.Population, number), 0)
		town.AddEvent(event)
		if town.Population == town.PopulationCapacity {
			town.AddEvent(model.Event{
				Type: model.EventResourceOverflow, Tick: tick,
				Population: model.Quantity(town.Population),
			})
		}
	}
	g.recordEvent(event)
}

// hijackersAssault burns through armor first, then population.
func (g *Game) hijackersAssault(tick int) {
	power, ok := g.rollEvent(model.EventHijackersAssault, g.rules.Hijackers)
	if !ok {
		return
	}
	g.log.Info("hijackers assault", "power", power)
	event := model.HijackersEvent(tick, power)
	for _, player := range g.orderedPlayers() {
		town := g.town(player)
		town.Population = max(town.Population-max(power-town.Armor, 0), 0)
		town.Armor = max(town.Armor-power, 0)
		town.AddEvent(event)
	}
	g.recordEvent(event)
}

// parasitesAssault eats product.
func (g *Game) parasitesAssault(tick int) {
	power, ok := g.rollEvent(model.EventParasitesAssault, g.rules.Parasites)
	if !ok {
		return
	}
	g.log.Info("parasites assault", "power", power)
	event := model.ParasitesEvent(tick, power)
	for _, player := range g.orderedPlayers() {
		town := g.town(player)
		town.Product = max(town.Product-power, 0)
		town.AddEvent(event)
	}
	g.recordEvent(event)
}
