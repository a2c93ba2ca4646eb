package mapdb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/railforge/railforge/internal/model"
)

// BuiltinMaps are the map names Generate knows how to build.
func BuiltinMaps() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var generators = map[string]func(*builder){
	"map01": generateMap01,
	"map02": generateMap02,
	"map03": generateMap03,
}

// Generate writes the named built-in maps into the store, replacing any
// previous copy. With no names it generates all built-in maps.
func (s *Store) Generate(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = BuiltinMaps()
	}
	for _, name := range names {
		gen, ok := generators[name]
		if !ok {
			return fmt.Errorf("unknown map %q", name)
		}
		if err := s.generateOne(ctx, name, gen); err != nil {
			return fmt.Errorf("generating %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) generateOne(ctx context.Context, name string, gen func(*builder)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM map WHERE name = ?`, name); err != nil {
		return err
	}

	b := &builder{ctx: ctx, tx: tx, name: name}
	gen(b)
	if b.err != nil {
		return b.err
	}
	return tx.Commit()
}

// builder inserts one map's rows, allocating per-map sequential ids. The
// first error sticks and turns every later call into a no-op.
type builder struct {
	ctx  context.Context
	tx   *sql.Tx
	name string
	err  error

	mapID   int64
	pointID int
	lineID  int
	postID  int
}

func (b *builder) addMap(sizeX, sizeY int) {
	if b.err != nil {
		return
	}
	res, err := b.tx.ExecContext(b.ctx,
		`INSERT INTO map (name, size_x, size_y) VALUES (?, ?, ?)`,
		b.name, sizeX, sizeY)
	if err != nil {
		b.err = err
		return
	}
	b.mapID, b.err = res.LastInsertId()
}

func (b *builder) addPoint(x, y int) int {
	b.pointID++
	if b.err == nil {
		_, b.err = b.tx.ExecContext(b.ctx,
			`INSERT INTO point (map_id, id, x, y) VALUES (?, ?, ?, ?)`,
			b.mapID, b.pointID, x, y)
	}
	return b.pointID
}

func (b *builder) addLine(length, p0, p1 int) int {
	b.lineID++
	if b.err == nil {
		_, b.err = b.tx.ExecContext(b.ctx,
			`INSERT INTO line (map_id, id, len, p0, p1) VALUES (?, ?, ?, ?, ?)`,
			b.mapID, b.lineID, length, p0, p1)
	}
	return b.lineID
}

type postSpec struct {
	population    int
	armor         int
	product       int
	replenishment int
}

func (b *builder) addPost(pointID int, name string, t model.PostType, spec postSpec) int {
	b.postID++
	if b.err == nil {
		if spec.replenishment == 0 {
			spec.replenishment = 1
		}
		_, b.err = b.tx.ExecContext(b.ctx,
			`INSERT INTO post (map_id, id, name, type, population, armor, product, replenishment, point_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.mapID, b.postID, name, int(t), spec.population, spec.armor,
			spec.product, spec.replenishment, pointID)
	}
	return b.postID
}

// generateMap01 builds the tutorial ring: one town, one market, a dozen
// points joined by length-10 lines.
func generateMap01(b *builder) {
	b.addMap(330, 248)

	p1 := b.addPoint(75, 16)
	p2 := b.addPoint(250, 16)
	p3 := b.addPoint(312, 120)
	p4 := b.addPoint(250, 220)
	p5 := b.addPoint(100, 220)
	p6 := b.addPoint(10, 120)
	p7 := b.addPoint(134, 70)
	p8 := b.addPoint(200, 70)
	p9 := b.addPoint(235, 120)
	p10 := b.addPoint(198, 160)
	p11 := b.addPoint(134, 160)
	p12 := b.addPoint(85, 120)

	b.addPost(p1, "town-one", model.PostTown, postSpec{population: 10})
	b.addPost(p7, "market-one", model.PostMarket, postSpec{product: 20, replenishment: 1})

	b.addLine(10, p1, p7)
	b.addLine(10, p8, p2)
	b.addLine(10, p9, p3)
	b.addLine(10, p10, p4)
	b.addLine(10, p11, p5)
	b.addLine(10, p12, p6)
	b.addLine(10, p7, p8)
	b.addLine(10, p8, p9)
	b.addLine(10, p9, p10)
	b.addLine(10, p10, p11)
	b.addLine(10, p11, p12)
	b.addLine(10, p12, p7)
}

// generateMap02 reuses the map01 layout with short lines, three markets and
// an outer ring.
func generateMap02(b *builder) {
	b.addMap(330, 248)

	p1 := b.addPoint(75, 16)
	p2 := b.addPoint(250, 16)
	p3 := b.addPoint(312, 120)
	p4 := b.addPoint(250, 220)
	p5 := b.addPoint(100, 220)
	p6 := b.addPoint(10, 120)
	p7 := b.addPoint(134, 70)
	p8 := b.addPoint(200, 70)
	p9 := b.addPoint(235, 120)
	p10 := b.addPoint(198, 160)
	p11 := b.addPoint(134, 160)
	p12 := b.addPoint(85, 120)

	b.addPost(p1, "town-one", model.PostTown, postSpec{population: 3, product: 35})
	b.addPost(p4, "market-big", model.PostMarket, postSpec{product: 36, replenishment: 2})
	b.addPost(p5, "market-medium", model.PostMarket, postSpec{product: 28, replenishment: 1})
	b.addPost(p7, "market-small", model.PostMarket, postSpec{product: 5, replenishment: 1})

	b.addLine(1, p1, p7)
	b.addLine(1, p8, p2)
	b.addLine(1, p9, p3)
	b.addLine(1, p10, p4)
	b.addLine(1, p11, p5)
	b.addLine(2, p12, p6)
	b.addLine(1, p7, p8)
	b.addLine(2, p8, p9)
	b.addLine(2, p9, p10)
	b.addLine(1, p10, p11)
	b.addLine(3, p11, p12)
	b.addLine(1, p12, p7)
	b.addLine(2, p1, p2)
	b.addLine(2, p2, p3)
	b.addLine(1, p3, p4)
	b.addLine(3, p4, p5)
	b.addLine(1, p5, p6)
	b.addLine(3, p6, p1)
}

// generateMap03 builds a 10x10 lattice: rows 20 apart joined by length-5
// lines, columns 20 apart joined by length-4 lines. Point ids run row-major
// from the top-left corner.
func generateMap03(b *builder) {
	const (
		cols = 10
		rows = 10
	)
	b.addMap(200, 200)

	ids := make([][]int, rows)
	for r := 0; r < rows; r++ {
		ids[r] = make([]int, cols)
		for c := 0; c < cols; c++ {
			ids[r][c] = b.addPoint(10+20*c, 10+20*r)
		}
	}

	b.addPost(ids[0][0], "town-one", model.PostTown,
		postSpec{population: 3, product: 350, armor: 100})
	b.addPost(ids[9][8], "market-big", model.PostMarket,
		postSpec{product: 500, replenishment: 10})
	b.addPost(ids[5][8], "market-medium", model.PostMarket,
		postSpec{product: 250, replenishment: 10})
	b.addPost(ids[1][1], "market-small", model.PostMarket,
		postSpec{product: 50, replenishment: 5})
	b.addPost(ids[3][1], "storage-small", model.PostStorage,
		postSpec{armor: 20, replenishment: 1})
	b.addPost(ids[6][5], "storage-big", model.PostStorage,
		postSpec{armor: 100, replenishment: 5})

	for r := 0; r < rows; r++ {
		for c := 0; c+1 < cols; c++ {
			b.addLine(4, ids[r][c], ids[r][c+1])
		}
		if r+1 < rows {
			for c := 0; c < cols; c++ {
				b.addLine(5, ids[r][c], ids[r+1][c])
			}
		}
	}
}
