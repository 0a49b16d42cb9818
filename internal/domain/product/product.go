package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by repositories when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category is the closed set of catalog categories.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryFurniture   Category = "furniture"
	CategoryHandicrafts Category = "handicrafts"
	CategoryAccessories Category = "accessories"
	CategoryHomeGoods   Category = "home_goods"
	CategoryOther       Category = "other"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryElectronics,
	CategoryClothing,
	CategoryFurniture,
	CategoryHandicrafts,
	CategoryAccessories,
	CategoryHomeGoods,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Tag is a merchandising label attached to a product.
type Tag string

const (
	TagFastSelling  Tag = "fast_selling"
	TagLimitedStock Tag = "limited_stock"
	TagNewArrival   Tag = "new_arrival"
	TagBestSeller   Tag = "best_seller"
	TagOnSale       Tag = "on_sale"
)

// Tags lists every known tag.
var Tags = []Tag{TagFastSelling, TagLimitedStock, TagNewArrival, TagBestSeller, TagOnSale}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	for _, known := range Tags {
		if t == known {
			return true
		}
	}
	return false
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	Category    Category
	Tags        []Tag
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasTag reports whether the product carries tag t.
func (p *Product) HasTag(t Tag) bool {
	for _, have := range p.Tags {
		if have == t {
			return true
		}
	}
	return false
}

// Repository is the catalog store port. Implementations assign the id and
// both timestamps on Create, refresh UpdatedAt on Update, and return
// ErrNotFound for a missing id. List returns newest first.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
