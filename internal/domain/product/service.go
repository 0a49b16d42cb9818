package product

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/events"
)

const placeholderImage = "https://placehold.co/600x400.png?text="

var minPrice = decimal.RequireFromString("0.01")

// Input is the full set of admin-editable product fields.
type Input struct {
	Name        string          `field:"name" validate:"required,min=3"`
	Description string          `field:"description" validate:"required,min=10"`
	Price       decimal.Decimal `field:"price"`
	Stock       int             `field:"stock" validate:"min=0"`
	Category    Category        `field:"category" validate:"enum"`
	Tags        []Tag           `field:"tags" validate:"min=1,dive,enum"`
	ImageURL    string          `field:"imageUrl" validate:"omitempty,http_url"`
}

// Validate checks the input against the catalog form rules.
func (in Input) Validate() error {
	verr := &apperr.ValidationError{}
	if err := apperr.ValidateStruct(in); err != nil {
		if !errors.As(err, &verr) {
			return err
		}
	}
	if in.Price.LessThan(minPrice) {
		verr.Add("price", "price must be a positive amount")
	}
	return verr.OrNil()
}

// Patch is a partial product update; nil fields keep their current value.
type Patch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *Category
	Tags        []Tag // nil keeps, non-nil replaces
	ImageURL    *string
}

func (p Patch) apply(in Input) Input {
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Price != nil {
		in.Price = *p.Price
	}
	if p.Stock != nil {
		in.Stock = *p.Stock
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Tags != nil {
		in.Tags = p.Tags
	}
	if p.ImageURL != nil {
		in.ImageURL = *p.ImageURL
	}
	return in
}

// Filter narrows the public catalog listing. Zero values match everything.
type Filter struct {
	Query    string
	Category Category
	Tag      Tag
}

// Match reports whether p satisfies the filter.
func (f Filter) Match(p *Product) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Tag != "" && !p.HasTag(f.Tag) {
		return false
	}
	return true
}

// Service implements the catalog admin and browse operations.
type Service struct {
	repo   Repository
	events events.Publisher
}

// NewService creates a catalog Service.
func NewService(repo Repository, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{repo: repo, events: publisher}
}

// CreateProduct validates the input and stores a new product, returning its id.
func (s *Service) CreateProduct(ctx context.Context, in Input) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	p := &Product{}
	fill(p, in)
	if err := s.repo.Create(ctx, p); err != nil {
		return "", apperr.External("catalog store", errors.Wrap(err, "create product"))
	}
	s.notify(ctx, events.ActionCreated, p.ID)
	return p.ID, nil
}

// UpdateProduct applies patch to the stored product and writes it back.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch Patch) error {
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	in := patch.apply(inputOf(current))
	if err := in.Validate(); err != nil {
		return err
	}
	fill(current, in)
	if err := s.repo.Update(ctx, current); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &apperr.NotFoundError{Kind: "product", ID: id}
		}
		return apperr.External("catalog store", errors.Wrap(err, "update product"))
	}
	s.notify(ctx, events.ActionUpdated, id)
	return nil
}

// DeleteProduct removes a product. Orders keep their item snapshots.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &apperr.NotFoundError{Kind: "product", ID: id}
		}
		return apperr.External("catalog store", errors.Wrap(err, "delete product"))
	}
	s.notify(ctx, events.ActionDeleted, id)
	return nil
}

// GetProduct returns one product or a NotFoundError.
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &apperr.NotFoundError{Kind: "product", ID: id}
		}
		return nil, apperr.External("catalog store", errors.Wrap(err, "get product"))
	}
	return p, nil
}

// GetAdminProducts lists the whole catalog, newest first.
func (s *Service) GetAdminProducts(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.External("catalog store", errors.Wrap(err, "list products"))
	}
	return products, nil
}

// Browse lists the products matching f.
func (s *Service) Browse(ctx context.Context, f Filter) ([]Product, error) {
	products, err := s.GetAdminProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := products[:0]
	for i := range products {
		if f.Match(&products[i]) {
			out = append(out, products[i])
		}
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, action events.Action, id string) {
	e := events.Event{Entity: events.EntityProduct, Action: action, ID: id}
	if err := s.events.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("Publish catalog change",
			zap.String("routing_key", e.RoutingKey()),
			zap.String("product_id", id),
			zap.Error(err),
		)
	}
}

func inputOf(p *Product) Input {
	return Input{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		Tags:        p.Tags,
		ImageURL:    p.ImageURL,
	}
}

func fill(p *Product, in Input) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.Category = in.Category
	p.Tags = append([]Tag(nil), in.Tags...)
	p.ImageURL = in.ImageURL
	if p.ImageURL == "" {
		p.ImageURL = placeholderImage + url.QueryEscape(p.Name)
	}
}
