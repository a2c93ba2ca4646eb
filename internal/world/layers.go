package world

import (
	"encoding/json"
	"fmt"

	"github.com/railforge/railforge/internal/model"
)

// Map layers served to clients. Layer 0 is static topology, layer 1 is
// dynamic state, layer 10 carries render hints.
const (
	LayerStatic  = 0
	LayerDynamic = 1
	LayerRender  = 10
)

// RatingEntry is one row of the layer-1 scoreboard.
type RatingEntry struct {
	Idx    string `json:"idx"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
}

type layer0JSON struct {
	Idx    int            `json:"idx"`
	Name   string         `json:"name"`
	Points []*model.Point `json:"point"`
	Lines  []*model.Line  `json:"line"`
}

type layer1JSON struct {
	Idx    int                    `json:"idx"`
	Posts  []*model.Post          `json:"post"`
	Trains []*model.Train         `json:"train"`
	Rating map[string]RatingEntry `json:"rating"`
}

type layer10JSON struct {
	Idx         int                `json:"idx"`
	Size        [2]int             `json:"size"`
	Coordinates []model.Coordinate `json:"coordinate"`
}

// Layer serializes the requested view of the map. The rating scoreboard is
// included on layer 1 only; callers pass nil for the other layers.
func (m *Map) Layer(layer int, rating map[string]RatingEntry) ([]byte, error) {
	switch layer {
	case LayerStatic:
		out := layer0JSON{Idx: m.Idx, Name: m.Name}
		for _, idx := range sortedKeys(m.Points) {
			out.Points = append(out.Points, m.Points[idx])
		}
		for _, idx := range sortedKeys(m.Lines) {
			out.Lines = append(out.Lines, m.Lines[idx])
		}
		return json.Marshal(out)

	case LayerDynamic:
		if rating == nil {
			rating = map[string]RatingEntry{}
		}
		out := layer1JSON{Idx: m.Idx, Rating: rating}
		for _, idx := range sortedKeys(m.Posts) {
			out.Posts = append(out.Posts, m.Posts[idx])
		}
		for _, idx := range sortedKeys(m.Trains) {
			out.Trains = append(out.Trains, m.Trains[idx])
		}
		return json.Marshal(out)

	case LayerRender:
		out := layer10JSON{Idx: m.Idx, Size: m.Size}
		for _, idx := range sortedKeys(m.Coordinates) {
			out.Coordinates = append(out.Coordinates, m.Coordinates[idx])
		}
		return json.Marshal(out)
	}
	return nil, fmt.Errorf("unknown map layer %d", layer)
}

// FromJSON reconstructs a map from any layer JSON. Only the keys present in
// the document are populated, mirroring how clients assemble their view
// from several layers.
func FromJSON(data []byte) (*Map, error) {
	var aux struct {
		Idx         int                `json:"idx"`
		Name        string             `json:"name"`
		Size        *[2]int            `json:"size"`
		Points      []*model.Point     `json:"point"`
		Lines       []*model.Line      `json:"line"`
		Posts       []*model.Post      `json:"post"`
		Trains      []*model.Train     `json:"train"`
		Coordinates []model.Coordinate `json:"coordinate"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return nil, fmt.Errorf("parsing map JSON: %w", err)
	}

	m := New(aux.Idx, aux.Name)
	if aux.Size != nil {
		m.Size = *aux.Size
	}
	for _, p := range aux.Points {
		m.Points[p.Idx] = p
	}
	for _, l := range aux.Lines {
		m.Lines[l.Idx] = l
	}
	for _, p := range aux.Posts {
		m.Posts[p.Idx] = p
	}
	for _, t := range aux.Trains {
		m.Trains[t.Idx] = t
	}
	for _, c := range aux.Coordinates {
		m.Coordinates[c.Idx] = c
	}
	return m, nil
}
