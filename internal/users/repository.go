package users

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/orcaflow/orcaflow/internal/platform/jsonstore"
	"github.com/orcaflow/orcaflow/internal/shared"
)

// Repository persists users in the JSON collection store.
type Repository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, user User) error
}

type jsonRepository struct {
	collection *jsonstore.Collection[User]
}

// NewRepository opens (or creates) the users collection under dataDir.
func NewRepository(dataDir string) (Repository, error) {
	collection, err := jsonstore.Open[User](filepath.Join(dataDir, "users.json"))
	if err != nil {
		return nil, err
	}
	return &jsonRepository{collection: collection}, nil
}

func (r *jsonRepository) FindByID(ctx context.Context, id string) (*User, error) {
	user, ok := r.collection.Find(func(u User) bool { return u.ID == id })
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &user, nil
}

func (r *jsonRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	needle := strings.ToLower(strings.TrimSpace(email))
	user, ok := r.collection.Find(func(u User) bool { return strings.ToLower(u.Email) == needle })
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &user, nil
}

func (r *jsonRepository) List(ctx context.Context) ([]User, error) {
	return r.collection.All(), nil
}

func (r *jsonRepository) Create(ctx context.Context, user User) error {
	return r.collection.Update(func(records []User) ([]User, error) {
		for _, existing := range records {
			if strings.EqualFold(existing.Email, user.Email) {
				return nil, shared.ErrDuplicateEmail
			}
		}
		return append(records, user), nil
	})
}

func (r *jsonRepository) Update(ctx context.Context, user User) error {
	return r.collection.Update(func(records []User) ([]User, error) {
		for i, existing := range records {
			if existing.ID == user.ID {
				records[i] = user
				return records, nil
			}
		}
		return nil, shared.ErrNotFound
	})
}
