package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/railforge/railforge/internal/protocol"
)

// flushThreshold is how many actions accumulate before an automatic flush.
const flushThreshold = 64

// Postgres is a Log backed by PostgreSQL. Actions are buffered in memory and
// written in batches; games are written immediately so their ids are stable.
type Postgres struct {
	pool *pgxpool.Pool

	mu  sync.Mutex
	buf []bufferedAction
}

type bufferedAction struct {
	gameID  int64
	code    protocol.Action
	message string
	date    time.Time
}

// NewPostgres connects to the replay database and runs migrations.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if err := runMigrations(ctx, dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to replay database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging replay database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// AddGame registers a new game and returns its id.
func (p *Postgres) AddGame(ctx context.Context, name, mapName string, numPlayers int) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO games (name, map_name, num_players, date)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		name, mapName, numPlayers, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("recording game %q: %w", name, err)
	}
	return id, nil
}

// AddAction buffers an action, flushing when the buffer fills.
func (p *Postgres) AddAction(ctx context.Context, gameID int64, code protocol.Action, message string) error {
	p.mu.Lock()
	p.buf = append(p.buf, bufferedAction{
		gameID: gameID, code: code, message: message, date: time.Now(),
	})
	full := len(p.buf) >= flushThreshold
	p.mu.Unlock()

	if full {
		return p.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered actions in one batch.
func (p *Postgres) Flush(ctx context.Context) error {
	p.mu.Lock()
	pending := p.buf
	p.buf = nil
	p.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range pending {
		batch.Queue(
			`INSERT INTO actions (game_id, code, message, date) VALUES ($1, $2, $3, $4)`,
			a.gameID, int(a.code), a.message, a.date)
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		// Put the actions back so a later flush can retry in order.
		p.mu.Lock()
		p.buf = append(pending, p.buf...)
		p.mu.Unlock()
		return fmt.Errorf("flushing %d replay actions: %w", len(pending), err)
	}
	return nil
}

// Games lists all recorded games ordered by id.
func (p *Postgres) Games(ctx context.Context) ([]GameRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT g.id, g.name, g.date, g.map_name, g.num_players,
		        count(a.id) FILTER (WHERE a.code = $1)
		 FROM games g
		 LEFT JOIN actions a ON a.game_id = g.id
		 GROUP BY g.id
		 ORDER BY g.id`,
		int(protocol.ActionTurn))
	if err != nil {
		return nil, fmt.Errorf("listing replay games: %w", err)
	}
	defer rows.Close()

	var out []GameRecord
	for rows.Next() {
		var (
			rec  GameRecord
			date time.Time
		)
		if err := rows.Scan(&rec.Idx, &rec.Name, &date, &rec.Map,
			&rec.NumPlayers, &rec.Length); err != nil {
			return nil, fmt.Errorf("listing replay games: %w", err)
		}
		rec.Date = formatTime(date)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Actions returns a game's log in append order.
func (p *Postgres) Actions(ctx context.Context, gameID int64) ([]ActionRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT code, message, date FROM actions WHERE game_id = $1 ORDER BY id`,
		gameID)
	if err != nil {
		return nil, fmt.Errorf("reading replay actions for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var (
			rec  ActionRecord
			code int
			date time.Time
		)
		if err := rows.Scan(&code, &rec.Message, &date); err != nil {
			return nil, fmt.Errorf("reading replay actions for game %d: %w", gameID, err)
		}
		rec.Code = protocol.Action(code)
		rec.Date = formatTime(date)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close flushes what it can and releases the pool.
func (p *Postgres) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.Flush(ctx)
	p.pool.Close()
}
