package model

import "encoding/json"

// PostType discriminates the post union.
type PostType int

const (
	PostTown    PostType = 1
	PostMarket  PostType = 2
	PostStorage PostType = 3
)

func (t PostType) String() string {
	switch t {
	case PostTown:
		return "TOWN"
	case PostMarket:
		return "MARKET"
	case PostStorage:
		return "STORAGE"
	}
	return "UNKNOWN"
}

// Post is a fixture placed at exactly one point: a town, a market or a
// storage. One struct serves all three kinds; serialization emits only the
// fields meaningful for the kind.
type Post struct {
	Idx      int
	Name     string
	Type     PostType
	PointIdx int

	// Town.
	Population         int
	PopulationCapacity int
	Product            int
	ProductCapacity    int
	Armor              int
	ArmorCapacity      int
	Level              int
	TrainCooldown      int
	NextLevelPrice     int
	PlayerID           string

	// Market and storage.
	Replenishment int

	Events []Event
}

// ApplyLevel copies town per-level attributes from the level table row.
func (p *Post) ApplyLevel(lvl TownLevel) {
	p.PopulationCapacity = lvl.PopulationCapacity
	p.ProductCapacity = lvl.ProductCapacity
	p.ArmorCapacity = lvl.ArmorCapacity
	p.TrainCooldown = lvl.TrainCooldown
	p.NextLevelPrice = lvl.NextLevelPrice
}

// AddEvent appends an event to the post's event list.
func (p *Post) AddEvent(e Event) {
	p.Events = append(p.Events, e)
}

type townJSON struct {
	Idx                int      `json:"idx"`
	Name               string   `json:"name"`
	Type               PostType `json:"type"`
	PointIdx           int      `json:"point_id"`
	Population         int      `json:"population"`
	PopulationCapacity int      `json:"population_capacity"`
	Product            int      `json:"product"`
	ProductCapacity    int      `json:"product_capacity"`
	Armor              int      `json:"armor"`
	ArmorCapacity      int      `json:"armor_capacity"`
	Level              int      `json:"level"`
	TrainCooldown      int      `json:"train_cooldown"`
	NextLevelPrice     *int     `json:"next_level_price"`
	PlayerID           *string  `json:"player_id"`
	Events             []Event  `json:"event"`
}

type marketJSON struct {
	Idx             int      `json:"idx"`
	Name            string   `json:"name"`
	Type            PostType `json:"type"`
	PointIdx        int      `json:"point_id"`
	Product         int      `json:"product"`
	ProductCapacity int      `json:"product_capacity"`
	Replenishment   int      `json:"replenishment"`
	Events          []Event  `json:"event"`
}

type storageJSON struct {
	Idx           int      `json:"idx"`
	Name          string   `json:"name"`
	Type          PostType `json:"type"`
	PointIdx      int      `json:"point_id"`
	Armor         int      `json:"armor"`
	ArmorCapacity int      `json:"armor_capacity"`
	Replenishment int      `json:"replenishment"`
	Events        []Event  `json:"event"`
}

// MarshalJSON emits the kind-specific view of the post.
func (p *Post) MarshalJSON() ([]byte, error) {
	events := p.Events
	if events == nil {
		events = []Event{}
	}
	switch p.Type {
	case PostMarket:
		return json.Marshal(marketJSON{
			Idx: p.Idx, Name: p.Name, Type: p.Type, PointIdx: p.PointIdx,
			Product: p.Product, ProductCapacity: p.ProductCapacity,
			Replenishment: p.Replenishment, Events: events,
		})
	case PostStorage:
		return json.Marshal(storageJSON{
			Idx: p.Idx, Name: p.Name, Type: p.Type, PointIdx: p.PointIdx,
			Armor: p.Armor, ArmorCapacity: p.ArmorCapacity,
			Replenishment: p.Replenishment, Events: events,
		})
	default:
		town := townJSON{
			Idx: p.Idx, Name: p.Name, Type: p.Type, PointIdx: p.PointIdx,
			Population: p.Population, PopulationCapacity: p.PopulationCapacity,
			Product: p.Product, ProductCapacity: p.ProductCapacity,
			Armor: p.Armor, ArmorCapacity: p.ArmorCapacity,
			Level: p.Level, TrainCooldown: p.TrainCooldown,
			Events: events,
		}
		if p.NextLevelPrice > 0 {
			town.NextLevelPrice = &p.NextLevelPrice
		}
		if p.PlayerID != "" {
			id := p.PlayerID
			town.PlayerID = &id
		}
		return json.Marshal(town)
	}
}

// UnmarshalJSON accepts any of the kind-specific views.
func (p *Post) UnmarshalJSON(data []byte) error {
	var aux struct {
		Idx                int      `json:"idx"`
		Name               string   `json:"name"`
		Type               PostType `json:"type"`
		PointIdx           int      `json:"point_id"`
		Population         int      `json:"population"`
		PopulationCapacity int      `json:"population_capacity"`
		Product            int      `json:"product"`
		ProductCapacity    int      `json:"product_capacity"`
		Armor              int      `json:"armor"`
		ArmorCapacity      int      `json:"armor_capacity"`
		Level              int      `json:"level"`
		TrainCooldown      int      `json:"train_cooldown"`
		NextLevelPrice     *int     `json:"next_level_price"`
		PlayerID           *string  `json:"player_id"`
		Replenishment      int      `json:"replenishment"`
		Events             []Event  `json:"event"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Post{
		Idx: aux.Idx, Name: aux.Name, Type: aux.Type, PointIdx: aux.PointIdx,
		Population: aux.Population, PopulationCapacity: aux.PopulationCapacity,
		Product: aux.Product, ProductCapacity: aux.ProductCapacity,
		Armor: aux.Armor, ArmorCapacity: aux.ArmorCapacity,
		Level: aux.Level, TrainCooldown: aux.TrainCooldown,
		Replenishment: aux.Replenishment, Events: aux.Events,
	}
	if aux.NextLevelPrice != nil {
		p.NextLevelPrice = *aux.NextLevelPrice
	}
	if aux.PlayerID != nil {
		p.PlayerID = *aux.PlayerID
	}
	return nil
}
