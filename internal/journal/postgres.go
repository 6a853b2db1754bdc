package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS delivery_journal (
	id             BIGSERIAL PRIMARY KEY,
	correlation_id TEXT        NOT NULL,
	file_id        TEXT        NOT NULL,
	name           TEXT        NOT NULL,
	direction      TEXT        NOT NULL,
	delivered      BOOLEAN     NOT NULL,
	status         INTEGER     NOT NULL DEFAULT 0,
	detail         TEXT        NOT NULL DEFAULT '',
	attempted_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS delivery_journal_attempted_at_idx ON delivery_journal (attempted_at DESC);
`

// Postgres persists dispatch records in the delivery_journal table
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres ensures the journal table exists
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create delivery_journal: %w", err)
	}
	log.Info().Msg("postgres delivery journal ready")
	return &Postgres{pool: pool}, nil
}

// Append inserts one record
func (p *Postgres) Append(ctx context.Context, rec Record) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO delivery_journal
			(correlation_id, file_id, name, direction, delivered, status, detail, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.CorrelationID, rec.FileID, rec.Name, rec.Direction, rec.Delivered, rec.Status, rec.Detail, rec.AttemptedAt)
	if err != nil {
		return fmt.Errorf("failed to append journal record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT correlation_id, file_id, name, direction, delivered, status, detail, attempted_at
		FROM delivery_journal
		ORDER BY attempted_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.CorrelationID, &rec.FileID, &rec.Name, &rec.Direction,
			&rec.Delivered, &rec.Status, &rec.Detail, &rec.AttemptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
