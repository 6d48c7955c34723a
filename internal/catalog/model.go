package catalog

import "time"

// Product is a catalog entry whose unit price is the source of truth for
// quote pricing. The photo is stored inline as a data URI so rendered
// documents stay self-contained.
type Product struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	UnitPrice   float64    `json:"unit_price"`
	Photo       string     `json:"photo,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}
