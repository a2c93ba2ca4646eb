package model

// EventType enumerates everything the engine reports to players through
// the per-entity event lists and the replay log.
type EventType int

const (
	EventTrainCollision   EventType = 1
	EventHijackersAssault EventType = 2
	EventParasitesAssault EventType = 3
	EventRefugeesArrival  EventType = 4
	EventResourceOverflow EventType = 5
	EventResourceLack     EventType = 6
	EventGameOver         EventType = 100
)

func (t EventType) String() string {
	switch t {
	case EventTrainCollision:
		return "TRAIN_COLLISION"
	case EventHijackersAssault:
		return "HIJACKERS_ASSAULT"
	case EventParasitesAssault:
		return "PARASITES_ASSAULT"
	case EventRefugeesArrival:
		return "REFUGEES_ARRIVAL"
	case EventResourceOverflow:
		return "RESOURCE_OVERFLOW"
	case EventResourceLack:
		return "RESOURCE_LACK"
	case EventGameOver:
		return "GAME_OVER"
	}
	return "UNKNOWN"
}

// Event is one occurrence attached to a train or a post. Only the fields
// relevant to the type are serialized; resource quantities use pointers so
// that a meaningful zero (for example product exhausted) still appears on
// the wire.
type Event struct {
	Type EventType `json:"type"`
	Tick int       `json:"tick"`

	Train          int `json:"train,omitempty"`
	HijackersPower int `json:"hijackers_power,omitempty"`
	ParasitesPower int `json:"parasites_power,omitempty"`
	RefugeesNumber int `json:"refugees_number,omitempty"`

	Population *int `json:"population,omitempty"`
	Product    *int `json:"product,omitempty"`
	Armor      *int `json:"armor,omitempty"`
}

// Quantity wraps a resource amount for an event field.
func Quantity(v int) *int {
	return &v
}

func CollisionEvent(tick, otherTrain int) Event {
	return Event{Type: EventTrainCollision, Tick: tick, Train: otherTrain}
}

func HijackersEvent(tick, power int) Event {
	return Event{Type: EventHijackersAssault, Tick: tick, HijackersPower: power}
}

func ParasitesEvent(tick, power int) Event {
	return Event{Type: EventParasitesAssault, Tick: tick, ParasitesPower: power}
}

func RefugeesEvent(tick, number int) Event {
	return Event{Type: EventRefugeesArrival, Tick: tick, RefugeesNumber: number}
}
