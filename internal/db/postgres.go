package db

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dragonchu/agentpollen/internal/arena"
)

// Postgres manages the optional per-tick event-log sink. A nil-connection
// Postgres degrades every method to a no-op so callers never need to branch
// on whether persistence is configured.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new PostgreSQL connection pool. An empty connString
// returns a disconnected Postgres rather than an error.
func NewPostgres(connString string) (*Postgres, error) {
	if connString == "" {
		return &Postgres{}, nil
	}

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("Connected to PostgreSQL")
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

// Pool returns the underlying connection pool.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// IsConnected returns true if the database is connected.
func (p *Postgres) IsConnected() bool {
	return p != nil && p.pool != nil
}

// EnsureSchema creates the event-log table if it doesn't already exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if !p.IsConnected() {
		return nil
	}
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS arena_events (
			session_id TEXT NOT NULL,
			tick INT NOT NULL,
			seq INT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			PRIMARY KEY (session_id, tick, seq)
		)
	`)
	return err
}

// LogTickEvents persists one tick's events for sessionID. A no-op when
// Postgres is disconnected or events is empty.
func (p *Postgres) LogTickEvents(ctx context.Context, sessionID string, tick int, events []arena.Event) error {
	if !p.IsConnected() || len(events) == 0 {
		return nil
	}

	batch := make([][]interface{}, 0, len(events))
	for i, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		batch = append(batch, []interface{}{sessionID, tick, i, string(ev.Type), payload})
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range batch {
		if _, err := tx.Exec(ctx, `
			INSERT INTO arena_events (session_id, tick, seq, event_type, payload)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING
		`, row...); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetEvents returns the events logged for sessionID within [fromTick, toTick].
func (p *Postgres) GetEvents(ctx context.Context, sessionID string, fromTick, toTick int) ([]arena.Event, error) {
	if !p.IsConnected() {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx, `
		SELECT payload FROM arena_events
		WHERE session_id = $1 AND tick BETWEEN $2 AND $3
		ORDER BY tick, seq
	`, sessionID, fromTick, toTick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []arena.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev arena.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
