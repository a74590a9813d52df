package filingstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/simplesdash/simplesdash/internal/platform/db"
)

// Schema creates the table used by the Postgres driver.
const Schema = `CREATE TABLE IF NOT EXISTS filesets (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	batch JSONB NOT NULL
)`

const (
	upsertSQL = `INSERT INTO filesets (id, created_at, updated_at, batch)
VALUES ($1, $2, $3, $4::jsonb)
ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at, batch = EXCLUDED.batch`
	selectSQL       = `SELECT id::text, created_at, updated_at, batch FROM filesets WHERE id = $1`
	selectLockedSQL = selectSQL + ` FOR UPDATE`
	deleteSQL       = `DELETE FROM filesets WHERE id = $1`
	listSQL         = `SELECT COALESCE(array_agg(id::text ORDER BY id), '{}') FROM filesets`
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGPool is the subset of *pgxpool.Pool the driver needs.
type PGPool interface {
	querier
	db.TxBeginner
}

// Postgres stores documents as jsonb rows.
type Postgres struct {
	pool PGPool
}

// NewPostgres wraps pool.
func NewPostgres(pool PGPool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the filesets table when missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("filingstore: ensure schema: %w", err)
	}
	return nil
}

// Save upserts doc.
func (s *Postgres) Save(ctx context.Context, doc Document) error {
	return save(ctx, s.pool, doc)
}

func save(ctx context.Context, q querier, doc Document) error {
	if err := validateID(doc.ID); err != nil {
		return err
	}
	batch, err := json.Marshal(doc.Batch)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, upsertSQL, doc.ID, doc.CreatedAt, doc.UpdatedAt, string(batch))
	return err
}

// Load reads one document.
func (s *Postgres) Load(ctx context.Context, id string) (Document, error) {
	if err := validateID(id); err != nil {
		return Document{}, err
	}
	return load(ctx, s.pool, selectSQL, id)
}

func load(ctx context.Context, q querier, sql, id string) (Document, error) {
	var (
		doc   Document
		batch []byte
	)
	err := q.QueryRow(ctx, sql, id).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt, &batch)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(batch, &doc.Batch); err != nil {
		return Document{}, fmt.Errorf("filingstore: decode %s: %w", id, err)
	}
	return doc, nil
}

// Update locks the row for the duration of fn.
func (s *Postgres) Update(ctx context.Context, id string, fn func(*Document) error) (Document, error) {
	if err := validateID(id); err != nil {
		return Document{}, err
	}
	var out Document
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		doc, err := load(ctx, tx, selectLockedSQL, id)
		if err != nil {
			return err
		}
		if err := fn(&doc); err != nil {
			return err
		}
		doc.UpdatedAt = Clock()
		if err := save(ctx, tx, doc); err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	return out, nil
}

// Delete removes one document.
func (s *Postgres) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, deleteSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every stored id.
func (s *Postgres) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.pool.QueryRow(ctx, listSQL).Scan(&ids); err != nil {
		return nil, err
	}
	return ids, nil
}
