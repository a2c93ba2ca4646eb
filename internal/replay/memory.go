package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/railforge/railforge/internal/protocol"
)

// Memory is an in-process Log. It backs servers running without a replay
// database and most tests.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	games   []memGame
	actions map[int64][]ActionRecord
}

type memGame struct {
	id         int64
	name       string
	mapName    string
	numPlayers int
	date       time.Time
}

// NewMemory returns an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{nextID: 1, actions: make(map[int64][]ActionRecord)}
}

// AddGame registers a new game and returns its id.
func (m *Memory) AddGame(_ context.Context, name, mapName string, numPlayers int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.games = append(m.games, memGame{
		id: id, name: name, mapName: mapName,
		numPlayers: numPlayers, date: time.Now(),
	})
	return id, nil
}

// AddAction appends an action to a game's log.
func (m *Memory) AddAction(_ context.Context, gameID int64, code protocol.Action, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.actions[gameID]; !ok {
		if !m.hasGame(gameID) {
			return fmt.Errorf("replay: unknown game id %d", gameID)
		}
	}
	m.actions[gameID] = append(m.actions[gameID], ActionRecord{
		Code: code, Message: message, Date: formatTime(time.Now()),
	})
	return nil
}

func (m *Memory) hasGame(id int64) bool {
	for _, g := range m.games {
		if g.id == id {
			return true
		}
	}
	return false
}

// Games lists all recorded games in creation order.
func (m *Memory) Games(_ context.Context) ([]GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]GameRecord, 0, len(m.games))
	for _, g := range m.games {
		turns := 0
		for _, a := range m.actions[g.id] {
			if a.Code == protocol.ActionTurn {
				turns++
			}
		}
		out = append(out, GameRecord{
			Idx: g.id, Name: g.name, Date: formatTime(g.date),
			Map: g.mapName, Length: turns, NumPlayers: g.numPlayers,
		})
	}
	return out, nil
}

// Actions returns a game's log in append order.
func (m *Memory) Actions(_ context.Context, gameID int64) ([]ActionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasGame(gameID) {
		return nil, fmt.Errorf("replay: unknown game id %d", gameID)
	}
	out := make([]ActionRecord, len(m.actions[gameID]))
	copy(out, m.actions[gameID])
	return out, nil
}

// Flush is a no-op; the memory log never buffers.
func (m *Memory) Flush(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() {}
