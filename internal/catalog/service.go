package catalog

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/orcaflow/orcaflow/internal/platform/httpx"
	"github.com/orcaflow/orcaflow/internal/shared"
)

// ErrNotAnImage marks a photo upload whose content is not an image.
var ErrNotAnImage = fmt.Errorf("%w: photo must be an image", httpx.ErrValidation)

// ProductInput carries the mutable fields of a product. Nil pointers mean
// "leave unchanged" on update.
type ProductInput struct {
	Name        *string
	Description *string
	UnitPrice   *float64
	// Photo is the raw uploaded image, nil when unchanged/absent.
	Photo []byte
}

// Service owns catalog business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single product including its photo payload.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns all products.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// Create registers a product. Name and unit price are required and the price
// must not be negative; the photo, when present, is stored as an inline data URI.
func (s *Service) Create(ctx context.Context, input ProductInput) (*Product, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, fmt.Errorf("%w: product name is required", httpx.ErrValidation)
	}
	if input.UnitPrice == nil {
		return nil, fmt.Errorf("%w: unit price is required", httpx.ErrValidation)
	}
	if *input.UnitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price must not be negative", httpx.ErrValidation)
	}

	photo, err := encodePhoto(input.Photo)
	if err != nil {
		return nil, err
	}

	product := Product{
		ID:        shared.ShortID(10),
		Name:      strings.TrimSpace(*input.Name),
		UnitPrice: *input.UnitPrice,
		Photo:     photo,
		CreatedAt: time.Now().UTC(),
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Update applies the provided fields over the stored product. Nil fields keep
// their current values; quotes created earlier keep their snapshots either way.
func (s *Service) Update(ctx context.Context, id string, input ProductInput) (*Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		existing.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		existing.Description = strings.TrimSpace(*input.Description)
	}
	if input.UnitPrice != nil {
		if *input.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: unit price must not be negative", httpx.ErrValidation)
		}
		existing.UnitPrice = *input.UnitPrice
	}

	if input.Photo != nil {
		photo, err := encodePhoto(input.Photo)
		if err != nil {
			return nil, err
		}
		existing.Photo = photo
	}

	now := time.Now().UTC()
	existing.UpdatedAt = &now

	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a product from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func encodePhoto(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	mtype := mimetype.Detect(raw)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrNotAnImage
	}
	return "data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
