package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/orcaflow/orcaflow/internal/platform/httpx"
	"github.com/orcaflow/orcaflow/internal/platform/jsonstore"
)

// ErrProductNotFound marks a lookup against an unknown product id.
var ErrProductNotFound = fmt.Errorf("%w: product", httpx.ErrNotFound)

// Repository persists the product catalog in the JSON collection store.
type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, product Product) error
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id string) error
}

type jsonRepository struct {
	collection *jsonstore.Collection[Product]
}

// NewRepository opens (or creates) the products collection under dataDir.
func NewRepository(dataDir string) (Repository, error) {
	collection, err := jsonstore.Open[Product](filepath.Join(dataDir, "products.json"))
	if err != nil {
		return nil, err
	}
	return &jsonRepository{collection: collection}, nil
}

func (r *jsonRepository) Get(ctx context.Context, id string) (*Product, error) {
	product, ok := r.collection.Find(func(p Product) bool { return p.ID == id })
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (r *jsonRepository) List(ctx context.Context) ([]Product, error) {
	return r.collection.All(), nil
}

func (r *jsonRepository) Create(ctx context.Context, product Product) error {
	return r.collection.Update(func(records []Product) ([]Product, error) {
		return append(records, product), nil
	})
}

func (r *jsonRepository) Update(ctx context.Context, product Product) error {
	return r.collection.Update(func(records []Product) ([]Product, error) {
		for i, existing := range records {
			if existing.ID == product.ID {
				records[i] = product
				return records, nil
			}
		}
		return nil, ErrProductNotFound
	})
}

func (r *jsonRepository) Delete(ctx context.Context, id string) error {
	return r.collection.Update(func(records []Product) ([]Product, error) {
		for i, existing := range records {
			if existing.ID == id {
				return append(records[:i], records[i+1:]...), nil
			}
		}
		return nil, ErrProductNotFound
	})
}
