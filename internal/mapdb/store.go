// Package mapdb stores game maps in a SQLite database and loads them into
// world.Map values. Entity ids are local to each map, so the indices a
// client sees do not depend on which other maps share the database.
package mapdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/world"
)

const schema = `
CREATE TABLE IF NOT EXISTS map (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	name   TEXT    NOT NULL UNIQUE,
	size_x INTEGER NOT NULL,
	size_y INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS point (
	map_id INTEGER NOT NULL REFERENCES map(id) ON DELETE CASCADE,
	id     INTEGER NOT NULL,
	x      INTEGER NOT NULL,
	y      INTEGER NOT NULL,
	PRIMARY KEY (map_id, id)
);

CREATE TABLE IF NOT EXISTS line (
	map_id INTEGER NOT NULL REFERENCES map(id) ON DELETE CASCADE,
	id     INTEGER NOT NULL,
	len    INTEGER NOT NULL,
	p0     INTEGER NOT NULL,
	p1     INTEGER NOT NULL,
	PRIMARY KEY (map_id, id)
);

CREATE TABLE IF NOT EXISTS post (
	map_id        INTEGER NOT NULL REFERENCES map(id) ON DELETE CASCADE,
	id            INTEGER NOT NULL,
	name          TEXT    NOT NULL,
	type          INTEGER NOT NULL,
	population    INTEGER NOT NULL DEFAULT 0,
	armor         INTEGER NOT NULL DEFAULT 0,
	product       INTEGER NOT NULL DEFAULT 0,
	replenishment INTEGER NOT NULL DEFAULT 1,
	point_id      INTEGER NOT NULL,
	PRIMARY KEY (map_id, id)
);
`

// Store is a handle to the map database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the map database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening map db %q: %w", path, err)
	}
	// The modernc driver serializes access per connection; a single
	// connection also makes :memory: databases usable from the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying map db schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens a fresh in-memory map database.
func OpenMemory(ctx context.Context) (*Store, error) {
	return Open(ctx, ":memory:")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Names lists the maps present in the database, ordered by id.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM map ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing maps: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing maps: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// LoadMap reads one map by name. Towns come back at level 1 with their
// capacity fields unset; the game applies its level table on top. Market and
// storage capacities are fixed at the stored initial amounts.
func (s *Store) LoadMap(ctx context.Context, name string) (*world.Map, error) {
	var (
		mapID        int
		sizeX, sizeY int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, size_x, size_y FROM map WHERE name = ?`, name).
		Scan(&mapID, &sizeX, &sizeY)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("map %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading map %q: %w", name, err)
	}

	m := world.New(mapID, name)
	m.Size = [2]int{sizeX, sizeY}

	if err := s.loadPoints(ctx, mapID, m); err != nil {
		return nil, fmt.Errorf("loading map %q: %w", name, err)
	}
	if err := s.loadLines(ctx, mapID, m); err != nil {
		return nil, fmt.Errorf("loading map %q: %w", name, err)
	}
	if err := s.loadPosts(ctx, mapID, m); err != nil {
		return nil, fmt.Errorf("loading map %q: %w", name, err)
	}
	return m, nil
}

func (s *Store) loadPoints(ctx context.Context, mapID int, m *world.Map) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, x, y FROM point WHERE map_id = ? ORDER BY id`, mapID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, x, y int
		if err := rows.Scan(&id, &x, &y); err != nil {
			return err
		}
		m.Points[id] = &model.Point{Idx: id}
		m.Coordinates[id] = model.Coordinate{Idx: id, X: x, Y: y}
	}
	return rows.Err()
}

func (s *Store) loadLines(ctx context.Context, mapID int, m *world.Map) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, len, p0, p1 FROM line WHERE map_id = ? ORDER BY id`, mapID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, length, p0, p1 int
		if err := rows.Scan(&id, &length, &p0, &p1); err != nil {
			return err
		}
		m.Lines[id] = &model.Line{Idx: id, Length: length, Points: [2]int{p0, p1}}
	}
	return rows.Err()
}

func (s *Store) loadPosts(ctx context.Context, mapID int, m *world.Map) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, population, armor, product, replenishment, point_id
		 FROM post WHERE map_id = ? ORDER BY id`, mapID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p        model.Post
			postType int
		)
		if err := rows.Scan(&p.Idx, &p.Name, &postType, &p.Population,
			&p.Armor, &p.Product, &p.Replenishment, &p.PointIdx); err != nil {
			return err
		}
		p.Type = model.PostType(postType)
		switch p.Type {
		case model.PostTown:
			p.Level = 1
		case model.PostMarket:
			p.ProductCapacity = p.Product
		case model.PostStorage:
			p.ArmorCapacity = p.Armor
		}
		post := p
		m.Posts[post.Idx] = &post
		if point, ok := m.Points[post.PointIdx]; ok {
			point.PostIdx = post.Idx
		}
	}
	return rows.Err()
}
