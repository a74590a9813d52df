package filingstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simplesdash/simplesdash/internal/filing"
)

func sampleFiling(name, cnpj, period string, revenue float64) filing.MonthlyFiling {
	return filing.MonthlyFiling{
		Filename:       name,
		Identification: filing.Identification{CNPJ: cnpj, Period: period},
		Revenue:        filing.Revenue{CurrentPeriod: revenue, CurrentPeriodReported: true},
	}
}

func fixedClock(t *testing.T) {
	t.Helper()
	prev := Clock
	Clock = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { Clock = prev })
}

// exerciseStore runs the shared contract against any driver.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	batch := filing.FromFilings([]filing.MonthlyFiling{
		sampleFiling("jan.json", "11222333000181", "01/2024", 10000),
		sampleFiling("feb.json", "11222333000181", "02/2024", 12000),
	})
	doc, err := Create(ctx, store, batch)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)

	loaded, err := store.Load(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Batch.Filings, 2)
	require.Equal(t, "feb.json", loaded.Batch.Filings[1].Filename)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{doc.ID}, ids)

	updated, err := RemoveFiling(ctx, store, doc.ID, "jan.json")
	require.NoError(t, err)
	require.Len(t, updated.Batch.Filings, 1)

	_, err = RemoveFiling(ctx, store, doc.ID, "missing.json")
	require.ErrorIs(t, err, ErrFilingNotFound)

	replaced, dups, err := AppendFilings(ctx, store, doc.ID, filing.FromFilings([]filing.MonthlyFiling{
		sampleFiling("mar.json", "11222333000181", "03/2024", 9000),
		sampleFiling("feb-v2.json", "11222333000181", "2024-02", 15000),
	}))
	require.NoError(t, err)
	require.Len(t, replaced.Batch.Filings, 2)
	require.Equal(t, "feb-v2.json", replaced.Batch.Filings[0].Filename)
	require.Equal(t, "mar.json", replaced.Batch.Filings[1].Filename)
	require.Equal(t, []filing.Duplicate{{
		CNPJ: "11222333000181", Period: "2024-02", Dropped: "feb.json", KeptInstead: "feb-v2.json",
	}}, dups)

	loaded, err = store.Load(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Batch.Filings, 2)

	require.NoError(t, store.Delete(ctx, doc.ID))
	_, err = store.Load(ctx, doc.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, store.Delete(ctx, doc.ID), ErrNotFound)
}

func TestFSStoreContract(t *testing.T) {
	fixedClock(t)
	store, err := NewFS(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFSRejectsInvalidID(t *testing.T) {
	store, err := NewFS(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "../etc/passwd")
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), Config{Driver: "mongo"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
