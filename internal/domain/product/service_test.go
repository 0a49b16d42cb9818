package product

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/events"
)

// --- Mocks ---

type mockRepo struct {
	byID    map[string]Product
	order   []string
	nextID  int
	failErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: make(map[string]Product)}
}

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.nextID++
	p.ID = fmt.Sprintf("p%d", m.nextID)
	m.byID[p.ID] = *p
	m.order = append([]string{p.ID}, m.order...)
	return nil
}

func (m *mockRepo) List(context.Context) ([]Product, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	out := make([]Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Product, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Product) error {
	if _, ok := m.byID[p.ID]; !ok {
		return ErrNotFound
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	for i, have := range m.order {
		if have == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// --- Helpers ---

func validInput() Input {
	return Input{
		Name:        "Kursi Rotan Bohemian",
		Description: "Kursi rotan buatan tangan dengan desain bohemian",
		Price:       decimal.NewFromInt(1200000),
		Stock:       15,
		Category:    CategoryFurniture,
		Tags:        []Tag{TagNewArrival},
		ImageURL:    "https://cdn.example.com/kursi.png",
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	names := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		names[i] = f.Field
	}
	return names
}

// --- Tests ---

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		fields []string
	}{
		{name: "valid", mutate: func(*Input) {}},
		{name: "short name", mutate: func(in *Input) { in.Name = "TV" }, fields: []string{"name"}},
		{name: "short description", mutate: func(in *Input) { in.Description = "Kursi" }, fields: []string{"description"}},
		{name: "zero price", mutate: func(in *Input) { in.Price = decimal.Zero }, fields: []string{"price"}},
		{name: "minimum price", mutate: func(in *Input) { in.Price = decimal.RequireFromString("0.01") }},
		{name: "negative stock", mutate: func(in *Input) { in.Stock = -1 }, fields: []string{"stock"}},
		{name: "unknown category", mutate: func(in *Input) { in.Category = "toys" }, fields: []string{"category"}},
		{name: "no tags", mutate: func(in *Input) { in.Tags = nil }, fields: []string{"tags"}},
		{name: "unknown tag", mutate: func(in *Input) { in.Tags = []Tag{TagOnSale, "vintage"} }, fields: []string{"tags[1]"}},
		{name: "bad image url", mutate: func(in *Input) { in.ImageURL = "not a url" }, fields: []string{"imageUrl"}},
		{name: "empty image url", mutate: func(in *Input) { in.ImageURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := in.Validate()
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tt.fields, fieldNames(t, err))
		})
	}
}

func TestCreateProduct(t *testing.T) {
	repo := newMockRepo()
	rec := &events.Recorder{}
	svc := NewService(repo, rec)
	ctx := context.Background()

	in := validInput()
	in.Name = "  Meja Kopi Kayu Jati "
	in.ImageURL = ""
	id, err := svc.CreateProduct(ctx, in)
	require.NoError(t, err)

	p, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Meja Kopi Kayu Jati", p.Name)
	assert.Equal(t, "https://placehold.co/600x400.png?text=Meja+Kopi+Kayu+Jati", p.ImageURL)

	require.Len(t, rec.Events, 1)
	assert.Equal(t, "product.created", rec.Events[0].RoutingKey())
	assert.Equal(t, id, rec.Events[0].ID)
}

func TestCreateProduct_InvalidNeverWrites(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	in := validInput()
	in.Name = ""
	_, err := svc.CreateProduct(context.Background(), in)
	require.Error(t, err)
	assert.Empty(t, repo.byID)
}

func TestCreateProduct_StoreError(t *testing.T) {
	repo := newMockRepo()
	repo.failErr = errors.New("connection refused")
	svc := NewService(repo, nil)

	_, err := svc.CreateProduct(context.Background(), validInput())
	var ext *apperr.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "catalog store", ext.Service)
}

func TestUpdateProduct(t *testing.T) {
	repo := newMockRepo()
	rec := &events.Recorder{}
	svc := NewService(repo, rec)
	ctx := context.Background()

	id, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	stock := 3
	price := decimal.RequireFromString("999000")
	require.NoError(t, svc.UpdateProduct(ctx, id, Patch{Stock: &stock, Price: &price}))

	p, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
	assert.True(t, price.Equal(p.Price))
	assert.Equal(t, "Kursi Rotan Bohemian", p.Name, "unset fields are kept")

	t.Run("invalid patch keeps stored product", func(t *testing.T) {
		short := "ab"
		err := svc.UpdateProduct(ctx, id, Patch{Name: &short})
		assert.Equal(t, []string{"name"}, fieldNames(t, err))
		p, err := svc.GetProduct(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Kursi Rotan Bohemian", p.Name)
	})

	t.Run("missing", func(t *testing.T) {
		err := svc.UpdateProduct(ctx, "nope", Patch{Stock: &stock})
		assert.True(t, apperr.IsNotFound(err))
	})

	var keys []string
	for _, e := range rec.Events {
		keys = append(keys, e.RoutingKey())
	}
	assert.Equal(t, []string{"product.created", "product.updated"}, keys)
}

func TestDeleteProduct(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	ctx := context.Background()

	id, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(ctx, id))

	_, err = svc.GetProduct(ctx, id)
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.IsNotFound(svc.DeleteProduct(ctx, id)))
}

func TestBrowse(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	ctx := context.Background()

	chair := validInput()
	shirt := validInput()
	shirt.Name = "Kemeja Batik Angin Pulau"
	shirt.Category = CategoryClothing
	shirt.Tags = []Tag{TagBestSeller, TagFastSelling}
	for _, in := range []Input{chair, shirt} {
		_, err := svc.CreateProduct(ctx, in)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all newest first", filter: Filter{}, want: []string{"Kemeja Batik Angin Pulau", "Kursi Rotan Bohemian"}},
		{name: "query", filter: Filter{Query: "BATIK"}, want: []string{"Kemeja Batik Angin Pulau"}},
		{name: "category", filter: Filter{Category: CategoryFurniture}, want: []string{"Kursi Rotan Bohemian"}},
		{name: "tag", filter: Filter{Tag: TagFastSelling}, want: []string{"Kemeja Batik Angin Pulau"}},
		{name: "no match", filter: Filter{Tag: TagOnSale}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Browse(ctx, tt.filter)
			require.NoError(t, err)
			names := []string{}
			for _, p := range got {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
