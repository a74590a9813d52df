package filingstore

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type pgRecord struct {
	created time.Time
	updated time.Time
	batch   string
}

type fakePool struct {
	records map[string]pgRecord
	commits int
	locks   int
}

func newFakePool() *fakePool {
	return &fakePool{records: map[string]pgRecord{}}
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.HasPrefix(sql, "INSERT"):
		p.records[args[0].(string)] = pgRecord{
			created: args[1].(time.Time),
			updated: args[2].(time.Time),
			batch:   args[3].(string),
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "DELETE"):
		id := args[0].(string)
		if _, ok := p.records[id]; !ok {
			return pgconn.NewCommandTag("DELETE 0"), nil
		}
		delete(p.records, id)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

type fakeRow func(dest ...any) error

func (r fakeRow) Scan(dest ...any) error { return r(dest...) }

func (p *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if strings.HasPrefix(sql, "SELECT COALESCE") {
		return fakeRow(func(dest ...any) error {
			ids := make([]string, 0, len(p.records))
			for id := range p.records {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			*dest[0].(*[]string) = ids
			return nil
		})
	}
	if strings.HasSuffix(sql, "FOR UPDATE") {
		p.locks++
	}
	id := args[0].(string)
	return fakeRow(func(dest ...any) error {
		rec, ok := p.records[id]
		if !ok {
			return pgx.ErrNoRows
		}
		*dest[0].(*string) = id
		*dest[1].(*time.Time) = rec.created
		*dest[2].(*time.Time) = rec.updated
		*dest[3].(*[]byte) = []byte(rec.batch)
		return nil
	})
}

func (p *fakePool) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return &fakeTx{pool: p}, nil
}

type fakeTx struct {
	pgx.Tx
	pool *fakePool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return tx.pool.Exec(ctx, sql, args...)
}

func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return tx.pool.QueryRow(ctx, sql, args...)
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.pool.commits++
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error { return nil }

func TestPostgresStoreContract(t *testing.T) {
	fixedClock(t)
	pool := newFakePool()
	store := NewPostgres(pool)
	require.NoError(t, store.EnsureSchema(context.Background()))

	exerciseStore(t, store)

	// remove + append succeed, the missing-filing attempt rolls back.
	require.Equal(t, 2, pool.commits)
	require.Equal(t, 3, pool.locks)
}
