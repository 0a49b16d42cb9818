package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/events"
	"github.com/xenking/storefront/internal/storage/memory"
)

const catalog = `[
	{"name": "Kemeja Batik", "description": "Kemeja batik katun motif Bali", "price": 350000,
	 "category": "clothing", "tags": ["best_seller"], "stock": 50},
	{"name": "Meja Kopi Jati", "description": "Meja kopi kayu jati solid", "price": "2500000.00",
	 "category": "furniture", "tags": ["limited_stock"], "stock": 5, "imageUrl": "https://placehold.co/600x400.png"}
]`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestReadProducts(t *testing.T) {
	inputs, err := readProducts(writeFile(t, "products.json", []byte(catalog)))
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "Kemeja Batik", inputs[0].Name)
	assert.Equal(t, product.CategoryFurniture, inputs[1].Category)
	assert.Equal(t, "2500000", inputs[1].Price.String())
}

func TestReadProducts_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := pgzip.NewWriter(f)
	_, err = zw.Write([]byte(catalog))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	inputs, err := readProducts(path)
	require.NoError(t, err)
	assert.Len(t, inputs, 2)
}

func TestReadProducts_Invalid(t *testing.T) {
	_, err := readProducts(writeFile(t, "bad.json",
		[]byte(`[{"name": "X", "description": "short", "price": 0, "category": "toys", "tags": []}]`)))
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), `product 0 ("X")`)

	_, err = readProducts(writeFile(t, "broken.json", []byte(`[{"name": `)))
	require.Error(t, err)
}

func TestReadProducts_DefaultCatalog(t *testing.T) {
	inputs, err := readProducts(filepath.Join("..", "..", "db", "seed", "products.json"))
	require.NoError(t, err)
	assert.Len(t, inputs, 8)
}

func TestSeedProducts_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	svc := product.NewService(memory.NewProductRepository(), events.Nop{})
	inputs, err := readProducts(writeFile(t, "products.json", []byte(catalog)))
	require.NoError(t, err)

	require.NoError(t, seedProducts(ctx, svc, inputs))
	require.NoError(t, seedProducts(ctx, svc, inputs))

	all, err := svc.GetAdminProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
