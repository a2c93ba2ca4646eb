package world

import (
	"sort"

	"github.com/railforge/railforge/internal/model"
)

// Map is the transport graph of one game: static topology (points, lines,
// coordinates, posts as loaded) plus live per-game state (post counters,
// trains). A Map is never shared between games; the owning game's lock
// guards all mutation.
type Map struct {
	Idx  int
	Name string
	Size [2]int

	Lines       map[int]*model.Line
	Points      map[int]*model.Point
	Posts       map[int]*model.Post
	Coordinates map[int]model.Coordinate
	Trains      map[int]*model.Train
}

// New returns an empty map shell ready to be populated by a loader.
func New(idx int, name string) *Map {
	return &Map{
		Idx:         idx,
		Name:        name,
		Lines:       make(map[int]*model.Line),
		Points:      make(map[int]*model.Point),
		Posts:       make(map[int]*model.Post),
		Coordinates: make(map[int]model.Coordinate),
		Trains:      make(map[int]*model.Train),
	}
}

// AddTrain registers a per-game train on the map.
func (m *Map) AddTrain(t *model.Train) {
	m.Trains[t.Idx] = t
}

// Towns returns the town posts ordered by idx.
func (m *Map) Towns() []*model.Post {
	return m.postsOfType(model.PostTown)
}

// Markets returns the market posts ordered by idx.
func (m *Map) Markets() []*model.Post {
	return m.postsOfType(model.PostMarket)
}

// Storages returns the storage posts ordered by idx.
func (m *Map) Storages() []*model.Post {
	return m.postsOfType(model.PostStorage)
}

func (m *Map) postsOfType(t model.PostType) []*model.Post {
	var out []*model.Post
	for _, idx := range sortedKeys(m.Posts) {
		if p := m.Posts[idx]; p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// PostAtPoint resolves the post hosted at a point, if any.
func (m *Map) PostAtPoint(pointIdx int) (*model.Post, bool) {
	point, ok := m.Points[pointIdx]
	if !ok || point.PostIdx == 0 {
		return nil, false
	}
	post, ok := m.Posts[point.PostIdx]
	return post, ok
}

// LinesAtPoint returns the lines touching a point, ordered by idx.
func (m *Map) LinesAtPoint(pointIdx int) []*model.Line {
	var out []*model.Line
	for _, idx := range sortedKeys(m.Lines) {
		if l := m.Lines[idx]; l.Touches(pointIdx) {
			out = append(out, l)
		}
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
