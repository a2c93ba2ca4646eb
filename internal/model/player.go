package model

// Player is one participant. The struct stores ids, not pointers: home and
// town are resolved through the map at use-site, which keeps the entity
// graph acyclic.
//
// InGame and TurnDone are mutated only under the owning game's lock.
type Player struct {
	Idx  string
	Name string

	HomeIdx   int // point id of the home town
	TownIdx   int // post id of the owned town
	TrainIdxs []int

	InGame   bool
	TurnDone bool
}

// NewPlayer creates a player identity not yet joined to any game.
func NewPlayer(idx, name string) *Player {
	return &Player{Idx: idx, Name: name}
}

// ResetGameState drops per-game state before joining a new game.
func (p *Player) ResetGameState() {
	p.HomeIdx = 0
	p.TownIdx = 0
	p.TrainIdxs = nil
	p.TurnDone = false
}
