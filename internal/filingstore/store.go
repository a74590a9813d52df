// Package filingstore persists uploaded file sets on a best-effort basis.
// Three drivers share the Store contract: local files, PostgreSQL jsonb
// and S3 objects.
package filingstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simplesdash/simplesdash/internal/filing"
)

var (
	// ErrNotFound is returned for unknown ids.
	ErrNotFound = errors.New("filingstore: not found")
	// ErrFilingNotFound is returned when a file set has no filing with the given name.
	ErrFilingNotFound = errors.New("filingstore: filing not found")
	// ErrInvalidID is returned for ids that are not UUIDs.
	ErrInvalidID = errors.New("filingstore: invalid id")
)

// Document is one stored file set.
type Document struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Batch     filing.Batch `json:"batch"`
}

// Store is implemented by every driver.
type Store interface {
	Save(ctx context.Context, doc Document) error
	Load(ctx context.Context, id string) (Document, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	// Update loads id, applies fn and saves the result. Drivers that can
	// lock the record do so for the duration of fn.
	Update(ctx context.Context, id string, fn func(*Document) error) (Document, error)
}

// Clock is overridable in tests.
var Clock = func() time.Time { return time.Now().UTC() }

// Create stores batch under a new id.
func Create(ctx context.Context, s Store, batch filing.Batch) (Document, error) {
	now := Clock()
	doc := Document{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now, Batch: batch}
	if err := s.Save(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("filingstore: save %s: %w", doc.ID, err)
	}
	return doc, nil
}

// RemoveFiling drops one filing by filename and stores the result.
func RemoveFiling(ctx context.Context, s Store, id, filename string) (Document, error) {
	return s.Update(ctx, id, func(doc *Document) error {
		sets := filing.GroupByCompany(doc.Batch.Filings)
		removed := false
		for i := range sets {
			if sets[i].Remove(filename) {
				removed = true
				break
			}
		}
		if !removed {
			return ErrFilingNotFound
		}
		doc.Batch.Filings = filing.Flatten(sets)
		return nil
	})
}

// AppendFilings merges batch into the stored set and returns the filings it
// replaced. A filing sharing (cnpj, period) with an existing one replaces
// it; the result is ordered by CNPJ then period.
func AppendFilings(ctx context.Context, s Store, id string, batch filing.Batch) (Document, []filing.Duplicate, error) {
	var dups []filing.Duplicate
	doc, err := s.Update(ctx, id, func(doc *Document) error {
		dups = dups[:0]
		sets := filing.GroupByCompany(doc.Batch.Filings)
		index := make(map[string]int, len(sets))
		for i, set := range sets {
			index[set.CNPJ] = i
		}
		for _, f := range batch.Filings {
			i, ok := index[f.Identification.CNPJ]
			if !ok {
				i = len(sets)
				index[f.Identification.CNPJ] = i
				sets = append(sets, filing.FileSet{CNPJ: f.Identification.CNPJ})
			}
			if dup, replaced := sets[i].Add(f); replaced {
				dups = append(dups, dup)
			}
		}
		sort.Slice(sets, func(i, j int) bool { return sets[i].CNPJ < sets[j].CNPJ })
		doc.Batch.Filings = filing.Flatten(sets)
		doc.Batch.Invalid = append(doc.Batch.Invalid, batch.Invalid...)
		return nil
	})
	if err != nil {
		return Document{}, nil, err
	}
	return doc, dups, nil
}

// update is the load-modify-save sequence shared by drivers without
// record locking.
func update(ctx context.Context, s Store, id string, fn func(*Document) error) (Document, error) {
	doc, err := s.Load(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := fn(&doc); err != nil {
		return Document{}, err
	}
	doc.UpdatedAt = Clock()
	if err := s.Save(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("filingstore: save %s: %w", doc.ID, err)
	}
	return doc, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
