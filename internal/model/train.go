package model

import "encoding/json"

// Train transports goods along the lines of the map.
//
// Speed is -1, 0 or +1. PostType records the kind of post the current cargo
// was loaded at (nil while empty). Cooldown blocks MOVE while positive.
type Train struct {
	Idx      int    `json:"idx"`
	LineIdx  int    `json:"line_idx"`
	Position int    `json:"position"`
	Speed    int    `json:"speed"`
	PlayerID string `json:"player_id"`
	Level    int    `json:"level"`

	Goods    int       `json:"goods"`
	PostType *PostType `json:"post_type"`

	GoodsCapacity   int `json:"goods_capacity"`
	FuelCapacity    int `json:"fuel_capacity"`
	Fuel            int `json:"fuel"`
	FuelConsumption int `json:"fuel_consumption"`
	NextLevelPrice  int `json:"next_level_price,omitempty"`

	Cooldown int     `json:"cooldown"`
	Events   []Event `json:"event"`
}

// NewTrain builds a level-1 train from the given level table row.
func NewTrain(idx int, lvl TrainLevel) *Train {
	t := &Train{Idx: idx, Level: 1}
	t.ApplyLevel(lvl)
	t.Fuel = t.FuelCapacity
	return t
}

// ApplyLevel copies the per-level attributes onto the train. The caller is
// responsible for bumping Level and for any cost accounting.
func (t *Train) ApplyLevel(lvl TrainLevel) {
	t.GoodsCapacity = lvl.GoodsCapacity
	t.FuelCapacity = lvl.FuelCapacity
	t.FuelConsumption = lvl.FuelConsumption
	t.NextLevelPrice = lvl.NextLevelPrice
}

// Unload zeroes cargo and clears the cargo kind.
func (t *Train) Unload() {
	t.Goods = 0
	t.PostType = nil
}

// AddEvent appends an event to the train's event list.
func (t *Train) AddEvent(e Event) {
	t.Events = append(t.Events, e)
}

// MarshalJSON emits an empty event list instead of null, matching Post.
func (t *Train) MarshalJSON() ([]byte, error) {
	type alias Train
	a := alias(*t)
	if a.Events == nil {
		a.Events = []Event{}
	}
	return json.Marshal(a)
}
