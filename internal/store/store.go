package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateCritiques = `
        CREATE TABLE IF NOT EXISTS critiques (
            id          UUID PRIMARY KEY,
            snapshot_id TEXT NOT NULL,
            source      TEXT NOT NULL,
            model       TEXT NOT NULL,
            fallback    BOOLEAN NOT NULL DEFAULT FALSE,
            title       TEXT NOT NULL,
            description TEXT NOT NULL,
            mood        TEXT NOT NULL,
            created_at  TIMESTAMPTZ NOT NULL
        );
    `
	sqlInsertCritique = `
        INSERT INTO critiques (id, snapshot_id, source, model, fallback, title, description, mood, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
    `
	sqlRecentCritiques = `
        SELECT id, snapshot_id, source, model, fallback, title, description, mood, created_at
        FROM critiques
        ORDER BY created_at DESC
        LIMIT $1;
    `
)

// Store provides a PostgreSQL implementation of schemas.CritiqueStore.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.CritiqueStore = (*Store)(nil)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Migrate creates the critiques table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateCritiques); err != nil {
		return fmt.Errorf("failed to create critiques table: %w", err)
	}
	return nil
}

// SaveCritique archives one critique. Timestamps are stored in UTC.
func (s *Store) SaveCritique(ctx context.Context, rec schemas.CritiqueRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tag, err := s.pool.Exec(ctx, sqlInsertCritique,
		rec.ID, rec.SnapshotID, rec.Source, rec.Model, rec.Fallback,
		rec.Critique.Title, rec.Critique.Description, rec.Critique.Mood,
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert critique: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("mismatch in inserted critique count: expected 1, got %d", tag.RowsAffected())
	}
	s.log.Debug("Critique archived.", zap.String("id", rec.ID), zap.Bool("fallback", rec.Fallback))
	return nil
}

// RecentCritiques returns up to limit critiques, newest first.
func (s *Store) RecentCritiques(ctx context.Context, limit int) ([]schemas.CritiqueRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, sqlRecentCritiques, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query critiques: %w", err)
	}
	defer rows.Close()

	var records []schemas.CritiqueRecord
	for rows.Next() {
		var r schemas.CritiqueRecord
		err := rows.Scan(
			&r.ID, &r.SnapshotID, &r.Source, &r.Model, &r.Fallback,
			&r.Critique.Title, &r.Critique.Description, &r.Critique.Mood,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan critique row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return records, nil
}
