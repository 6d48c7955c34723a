package quote

import (
	"context"
	"path/filepath"

	"github.com/orcaflow/orcaflow/internal/platform/jsonstore"
)

// Repository persists quotes in the JSON collection store.
type Repository interface {
	Get(ctx context.Context, id string) (*Quote, error)
	// List returns quotes for the given owner; an empty owner returns all.
	List(ctx context.Context, ownerUserID string) ([]Quote, error)
	Create(ctx context.Context, q Quote) error
	Update(ctx context.Context, q Quote) error
	Delete(ctx context.Context, id string) error
}

type jsonRepository struct {
	collection *jsonstore.Collection[Quote]
}

// NewRepository opens (or creates) the quotes collection under dataDir.
func NewRepository(dataDir string) (Repository, error) {
	collection, err := jsonstore.Open[Quote](filepath.Join(dataDir, "quotes.json"))
	if err != nil {
		return nil, err
	}
	return &jsonRepository{collection: collection}, nil
}

func (r *jsonRepository) Get(ctx context.Context, id string) (*Quote, error) {
	q, ok := r.collection.Find(func(q Quote) bool { return q.ID == id })
	if !ok {
		return nil, ErrQuoteNotFound
	}
	return &q, nil
}

func (r *jsonRepository) List(ctx context.Context, ownerUserID string) ([]Quote, error) {
	all := r.collection.All()
	if ownerUserID == "" {
		return all, nil
	}
	out := make([]Quote, 0, len(all))
	for _, q := range all {
		if q.OwnerUserID == ownerUserID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *jsonRepository) Create(ctx context.Context, q Quote) error {
	return r.collection.Update(func(records []Quote) ([]Quote, error) {
		return append(records, q), nil
	})
}

func (r *jsonRepository) Update(ctx context.Context, q Quote) error {
	return r.collection.Update(func(records []Quote) ([]Quote, error) {
		for i, existing := range records {
			if existing.ID == q.ID {
				records[i] = q
				return records, nil
			}
		}
		return nil, ErrQuoteNotFound
	})
}

func (r *jsonRepository) Delete(ctx context.Context, id string) error {
	return r.collection.Update(func(records []Quote) ([]Quote, error) {
		for i, existing := range records {
			if existing.ID == id {
				return append(records[:i], records[i+1:]...), nil
			}
		}
		return nil, ErrQuoteNotFound
	})
}
