package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railforge/railforge/internal/model"
)

// testMap builds a triangle with a town and a market.
func testMap(t *testing.T) *Map {
	t.Helper()
	m := New(1, "triangle")
	m.Size = [2]int{100, 100}
	m.Points[1] = &model.Point{Idx: 1, PostIdx: 1}
	m.Points[2] = &model.Point{Idx: 2, PostIdx: 2}
	m.Points[3] = &model.Point{Idx: 3}
	m.Lines[1] = &model.Line{Idx: 1, Length: 3, Points: [2]int{1, 2}}
	m.Lines[2] = &model.Line{Idx: 2, Length: 4, Points: [2]int{2, 3}}
	m.Lines[3] = &model.Line{Idx: 3, Length: 5, Points: [2]int{3, 1}}
	m.Posts[1] = &model.Post{Idx: 1, Name: "town", Type: model.PostTown, PointIdx: 1,
		Population: 3, PopulationCapacity: 10, ProductCapacity: 200, ArmorCapacity: 200, Level: 1}
	m.Posts[2] = &model.Post{Idx: 2, Name: "market", Type: model.PostMarket, PointIdx: 2,
		Product: 20, ProductCapacity: 20, Replenishment: 1}
	m.Coordinates[1] = model.Coordinate{Idx: 1, X: 10, Y: 10}
	m.Coordinates[2] = model.Coordinate{Idx: 2, X: 50, Y: 10}
	m.Coordinates[3] = model.Coordinate{Idx: 3, X: 30, Y: 40}
	return m
}

func TestLayer0_RoundTrip(t *testing.T) {
	m := testMap(t)

	first, err := m.Layer(LayerStatic, nil)
	require.NoError(t, err)

	rebuilt, err := FromJSON(first)
	require.NoError(t, err)
	second, err := rebuilt.Layer(LayerStatic, nil)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestLayer0_Content(t *testing.T) {
	data, err := testMap(t).Layer(LayerStatic, nil)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "idx")
	assert.Contains(t, m, "name")
	assert.Contains(t, m, "point")
	assert.Contains(t, m, "line")
	assert.NotContains(t, m, "post")
	assert.NotContains(t, m, "train")
	assert.NotContains(t, m, "size")
	assert.NotContains(t, m, "coordinate")
	assert.Len(t, m["line"], 3)
	assert.Len(t, m["point"], 3)
}

func TestLayer1_Content(t *testing.T) {
	m := testMap(t)
	m.AddTrain(model.NewTrain(1, model.TrainLevel{GoodsCapacity: 40}))
	rating := map[string]RatingEntry{
		"p-1": {Idx: "p-1", Name: "alice", Rating: 3000},
	}

	data, err := m.Layer(LayerDynamic, rating)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Contains(t, got, "post")
	assert.Contains(t, got, "train")
	assert.Contains(t, got, "rating")
	assert.NotContains(t, got, "line")
	assert.NotContains(t, got, "point")
	assert.Len(t, got["post"], 2)
	assert.Len(t, got["train"], 1)
}

func TestLayer10_Content(t *testing.T) {
	data, err := testMap(t).Layer(LayerRender, nil)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Contains(t, got, "size")
	assert.Contains(t, got, "coordinate")
	assert.NotContains(t, got, "post")
	assert.NotContains(t, got, "line")
	assert.Len(t, got["coordinate"], 3)
}

func TestLayer_Unknown(t *testing.T) {
	_, err := testMap(t).Layer(2, nil)
	require.Error(t, err)
}

func TestMap_Views(t *testing.T) {
	m := testMap(t)

	towns := m.Towns()
	require.Len(t, towns, 1)
	assert.Equal(t, "town", towns[0].Name)
	require.Len(t, m.Markets(), 1)
	assert.Empty(t, m.Storages())

	post, ok := m.PostAtPoint(2)
	require.True(t, ok)
	assert.Equal(t, model.PostMarket, post.Type)
	_, ok = m.PostAtPoint(3)
	assert.False(t, ok)

	lines := m.LinesAtPoint(1)
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].Idx)
	assert.Equal(t, 3, lines[1].Idx)
}
