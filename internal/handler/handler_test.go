package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/dashboard"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/events"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/upsell"
	"github.com/xenking/storefront/internal/wire"
)

type testServer struct {
	mux      *http.ServeMux
	products *memory.ProductRepository
	orders   *memory.OrderRepository
	events   *events.Recorder
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	ts := &testServer{
		mux:      http.NewServeMux(),
		products: memory.NewProductRepository(),
		orders:   memory.NewOrderRepository(),
		events:   &events.Recorder{},
	}
	engine := order.NewEngine(ts.products, coupon.NewTable(coupon.DefaultRules...), order.DefaultShippingFee)
	orders, err := order.NewService(engine, ts.orders, order.ServiceConfig{Publisher: ts.events})
	require.NoError(t, err)
	gen, err := upsell.New(context.Background(), upsell.Config{}, nil)
	require.NoError(t, err)

	New(cfg, Services{
		Orders:    orders,
		Products:  product.NewService(ts.products, ts.events),
		Customers: customer.NewService(ts.orders),
		Dashboard: dashboard.NewService(ts.orders, ts.products),
		Upsell:    gen,
	}).Register(ts.mux)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, r)
	return w
}

func (ts *testServer) seedProduct(t *testing.T, name, price string, stock int) string {
	t.Helper()
	p := &product.Product{
		Name:        name,
		Description: "Handwoven in Central Java",
		Price:       decimal.RequireFromString(price),
		ImageURL:    "images/" + strings.ToLower(strings.ReplaceAll(name, " ", "-")) + ".png",
		Category:    product.CategoryHandicrafts,
		Tags:        []product.Tag{product.TagBestSeller},
		Stock:       stock,
	}
	require.NoError(t, ts.products.Create(context.Background(), p))
	return p.ID
}

type envelope struct {
	Success bool
	ID      string
	Error   string
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var env envelope
	err := jx.DecodeBytes(w.Body.Bytes()).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "success":
			env.Success, err = d.Bool()
		case "id":
			env.ID, err = d.Str()
		case "error":
			env.Error, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	})
	require.NoError(t, err, w.Body.String())
	return env
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) (order.Order, decimal.Decimal) {
	t.Helper()
	var (
		o         order.Order
		remaining decimal.Decimal
	)
	raw, err := jx.DecodeBytes(w.Body.Bytes()).Raw()
	require.NoError(t, err)
	require.NoError(t, wire.DecodeOrder(jx.DecodeBytes(raw), &o))
	require.NoError(t, jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "remaining" {
			return d.Skip()
		}
		remaining, err = wire.DecodeMoney(d)
		return err
	}))
	return o, remaining
}

func decimalEq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestCheckout(t *testing.T) {
	ts := newTestServer(t, Config{ImageBaseURL: "https://cdn.example.com/"})
	scarf := ts.seedProduct(t, "Batik Scarf", "50000", 10)

	w := ts.do(t, http.MethodPost, "/api/orders", `{
		"customerInfo": {"name": "Siti Aminah", "phoneNumber": "08123456789", "address": "Jl. Merdeka 1"},
		"items": [{"id": "`+scarf+`", "quantity": 2}],
		"paymentMethod": "TRANSFER",
		"voucherCode": "sale10"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	require.True(t, env.Success)
	require.NotEmpty(t, env.ID)

	w = ts.do(t, http.MethodGet, "/api/orders/"+env.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	o, remaining := decodeOrder(t, w)
	decimalEq(t, "100000", o.Subtotal)
	decimalEq(t, "10000", o.DiscountAmount)
	decimalEq(t, "20000", o.ShippingFee)
	decimalEq(t, "110000", o.TotalAmount)
	decimalEq(t, "110000", remaining)
	assert.Equal(t, order.StatusAwaitingPayment, o.Status)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "https://cdn.example.com/images/batik-scarf.png", o.Items[0].ImageURL)
}

func TestCheckout_Errors(t *testing.T) {
	ts := newTestServer(t, Config{})
	scarf := ts.seedProduct(t, "Batik Scarf", "50000", 1)
	cust := `"customerInfo": {"name": "Siti", "phoneNumber": "0812", "address": "Bandung"}`

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{
			name:   "malformed",
			body:   `{"items": [`,
			status: http.StatusBadRequest,
			errMsg: "request body is not valid JSON",
		},
		{
			name:   "empty cart",
			body:   `{` + cust + `, "items": [], "paymentMethod": "COD"}`,
			status: http.StatusBadRequest,
			errMsg: "items must contain at least 1 item(s)",
		},
		{
			name:   "unknown payment",
			body:   `{` + cust + `, "items": [{"id": "` + scarf + `", "quantity": 1}], "paymentMethod": "BARTER"}`,
			status: http.StatusBadRequest,
			errMsg: `paymentMethod has unknown value "BARTER"`,
		},
		{
			name:   "missing product",
			body:   `{` + cust + `, "items": [{"id": "nope", "quantity": 1}], "paymentMethod": "COD"}`,
			status: http.StatusNotFound,
			errMsg: "product nope not found",
		},
		{
			name:   "insufficient stock",
			body:   `{` + cust + `, "items": [{"id": "` + scarf + `", "quantity": 2}], "paymentMethod": "COD"}`,
			status: http.StatusConflict,
			errMsg: "insufficient stock",
		},
		{
			name: "repeated lines past int range",
			body: `{` + cust + `, "items": [` +
				`{"id": "` + scarf + `", "quantity": 4611686018427387904},` +
				`{"id": "` + scarf + `", "quantity": 4611686018427387904}` +
				`], "paymentMethod": "COD"}`,
			status: http.StatusConflict,
			errMsg: "insufficient stock",
		},
		{
			name:   "price exponent",
			body:   `{` + cust + `, "items": [{"id": "` + scarf + `", "quantity": 1, "price": "1e30000000"}], "paymentMethod": "COD"}`,
			status: http.StatusBadRequest,
			errMsg: "amounts must be below 1000000000000",
		},
		{
			name:   "price too large",
			body:   `{` + cust + `, "items": [{"id": "` + scarf + `", "quantity": 1, "price": 1000000000000}], "paymentMethod": "COD"}`,
			status: http.StatusBadRequest,
			errMsg: "amounts must be below 1000000000000",
		},
		{
			name:   "blank customer",
			body:   `{"customerInfo": {"name": " ", "phoneNumber": "  ", "address": "Bandung"}, "items": [{"id": "` + scarf + `", "quantity": 1}], "paymentMethod": "COD"}`,
			status: http.StatusBadRequest,
			errMsg: "phoneNumber is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/orders", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			assert.Empty(t, env.ID)
			assert.Contains(t, env.Error, tt.errMsg)
		})
	}

	orders, err := ts.orders.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders, "failed checkouts never write")
}

func TestCheckout_Middleware(t *testing.T) {
	var wrapped bool
	ts := newTestServer(t, Config{Checkout: func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped = true
			next.ServeHTTP(w, r)
		})
	}})
	ts.do(t, http.MethodPost, "/api/orders", `{}`)
	assert.True(t, wrapped)

	wrapped = false
	ts.do(t, http.MethodGet, "/api/products", "")
	assert.False(t, wrapped)
}

func TestAdminOrderLifecycle(t *testing.T) {
	ts := newTestServer(t, Config{})
	scarf := ts.seedProduct(t, "Batik Scarf", "50000", 10)
	bowl := ts.seedProduct(t, "Teak Bowl", "12500.50", 10)

	w := ts.do(t, http.MethodPost, "/api/admin/orders", `{
		"customerInfo": {"name": "Dewi Lestari", "phoneNumber": "0819", "address": "Yogyakarta"},
		"items": [{"productId": "`+scarf+`", "quantity": 1, "price": "45000"}],
		"paymentMethod": "DP",
		"status": "dp_paid",
		"shippingFee": 15000,
		"amountPaid": 30000
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decodeEnvelope(t, w).ID

	w = ts.do(t, http.MethodPatch, "/api/admin/orders/"+id, `{
		"items": [
			{"id": "`+scarf+`", "quantity": 1, "price": 45000},
			{"id": "`+bowl+`", "quantity": 2, "price": 12500.50}
		],
		"discountAmount": 1,
		"notes": null,
		"status": "processing"
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id, decodeEnvelope(t, w).ID)

	w = ts.do(t, http.MethodGet, "/api/admin/orders/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	o, remaining := decodeOrder(t, w)
	decimalEq(t, "70001", o.Subtotal)
	decimalEq(t, "85000", o.TotalAmount)
	decimalEq(t, "55000", remaining)
	assert.Equal(t, order.StatusProcessing, o.Status)
	assert.Equal(t, "Teak Bowl", o.Items[1].Name)

	w = ts.do(t, http.MethodPatch, "/api/admin/orders/"+id, `{"status": "lost"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/admin/orders?q=dewi&status=processing", "")
	require.Equal(t, http.StatusOK, w.Code)
	var n int
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).Arr(func(d *jx.Decoder) error {
		n++
		return d.Skip()
	}))
	assert.Equal(t, 1, n)

	w = ts.do(t, http.MethodGet, "/api/admin/orders?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/admin/orders/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/admin/orders/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "order "+id+" not found", decodeEnvelope(t, w).Error)

	var keys []string
	for _, e := range ts.events.Events {
		keys = append(keys, e.RoutingKey())
	}
	assert.Equal(t, []string{"order.created", "order.updated", "order.deleted"}, keys)
}

func TestProducts(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(t, http.MethodPost, "/api/admin/products", `{
		"name": "Rattan Basket",
		"description": "Woven rattan storage basket",
		"price": "150000",
		"stock": 4,
		"category": "home_goods",
		"tags": ["new_arrival"],
		"imageUrl": ""
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decodeEnvelope(t, w).ID

	w = ts.do(t, http.MethodPost, "/api/admin/products", `{"name": "X", "price": 0, "category": "toys", "tags": []}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Contains(t, env.Error, "name must be at least 3 characters")
	assert.Contains(t, env.Error, "price must be a positive amount")

	w = ts.do(t, http.MethodPatch, "/api/admin/products/"+id, `{"stock": 9, "tags": ["on_sale", "limited_stock"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/products/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var p product.Product
	require.NoError(t, wire.DecodeProduct(jx.DecodeBytes(w.Body.Bytes()), &p))
	assert.Equal(t, 9, p.Stock)
	assert.Equal(t, []product.Tag{product.TagOnSale, product.TagLimitedStock}, p.Tags)
	assert.Equal(t, "https://placehold.co/600x400.png?text=Rattan+Basket", p.ImageURL)

	w = ts.do(t, http.MethodGet, "/api/products?category=home_goods&tag=on_sale&q=rattan", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)
	w = ts.do(t, http.MethodGet, "/api/products?category=clothing", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
	w = ts.do(t, http.MethodGet, "/api/products?tag=vintage", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/admin/products/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/admin/products/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodPatch, "/api/admin/products/"+id, `{"stock": 1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomersAndDashboard(t *testing.T) {
	ts := newTestServer(t, Config{})
	scarf := ts.seedProduct(t, "Batik Scarf", "50000", 10)
	for _, c := range []string{
		`{"name": "Budi", "phoneNumber": "0811", "address": "Jakarta"}`,
		`{"name": "Ayu", "phoneNumber": "0822", "address": "Bali"}`,
		`{"name": "Budi Santoso", "phoneNumber": "0811", "address": "Depok"}`,
	} {
		w := ts.do(t, http.MethodPost, "/api/orders",
			`{"customerInfo": `+c+`, "items": [{"id": "`+scarf+`", "quantity": 1}], "paymentMethod": "COD"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := ts.do(t, http.MethodGet, "/api/admin/customers", "")
	require.Equal(t, http.StatusOK, w.Code)
	var names []string
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).Arr(func(d *jx.Decoder) error {
		var c order.CustomerInfo
		if err := wire.DecodeCustomer(d, &c); err != nil {
			return err
		}
		names = append(names, c.Name)
		return nil
	}))
	// Newest order wins for the shared phone number.
	assert.Equal(t, []string{"Ayu", "Budi Santoso"}, names)

	w = ts.do(t, http.MethodGet, "/api/admin/customers?q=bali", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ayu")
	assert.NotContains(t, w.Body.String(), "Budi")

	w = ts.do(t, http.MethodGet, "/api/admin/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"orders": 3,
		"openOrders": 3,
		"revenue": 210000,
		"outstanding": 210000,
		"products": 1,
		"unitsInStock": 10,
		"customers": 2
	}`, w.Body.String())
}

func TestUpsell(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(t, http.MethodPost, "/api/admin/upsell", `{"orderHistory": "short", "currentCart": "x"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)

	w = ts.do(t, http.MethodPost, "/api/admin/upsell", `{
		"orderHistory": "Two batik scarves in March",
		"currentCart": "One teak bowl"
	}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upsell model is unavailable, please try again later", decodeEnvelope(t, w).Error)
}

func TestImageURL(t *testing.T) {
	h := New(Config{ImageBaseURL: "https://cdn.example.com/"}, Services{})
	assert.Equal(t, "https://cdn.example.com/a.png", h.imageURL("/a.png"))
	assert.Equal(t, "https://placehold.co/x.png", h.imageURL("https://placehold.co/x.png"))
	assert.Equal(t, "", h.imageURL(""))
	assert.Equal(t, "a.png", New(Config{}, Services{}).imageURL("a.png"))
}
