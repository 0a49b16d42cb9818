// Package handler exposes the storefront and admin operations over HTTP.
package handler

import (
	"net/http"
	"strings"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/dashboard"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/upsell"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// Checkout wraps the public checkout route, typically with a rate limiter.
	Checkout httpmiddleware.Middleware
}

// Services are the domain services behind the routes.
type Services struct {
	Orders    *order.Service
	Products  *product.Service
	Customers *customer.Service
	Dashboard *dashboard.Service
	Upsell    *upsell.Generator
}

// Handler serves the JSON API.
type Handler struct {
	orders       *order.Service
	products     *product.Service
	customers    *customer.Service
	dashboard    *dashboard.Service
	upsell       *upsell.Generator
	imageBaseURL string
	checkout     httpmiddleware.Middleware
}

// New constructs a Handler.
func New(cfg Config, svc Services) *Handler {
	checkout := cfg.Checkout
	if checkout == nil {
		checkout = func(h http.Handler) http.Handler { return h }
	}
	return &Handler{
		orders:       svc.Orders,
		products:     svc.Products,
		customers:    svc.Customers,
		dashboard:    svc.Dashboard,
		upsell:       svc.Upsell,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		checkout:     checkout,
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	// Storefront.
	mux.HandleFunc("GET /api/products", h.browseProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.Handle("POST /api/orders", h.checkout(http.HandlerFunc(h.createOrder)))
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)

	// Admin.
	mux.HandleFunc("GET /api/admin/orders", h.getAdminOrders)
	mux.HandleFunc("POST /api/admin/orders", h.createAdminOrder)
	mux.HandleFunc("GET /api/admin/orders/{id}", h.getOrder)
	mux.HandleFunc("PATCH /api/admin/orders/{id}", h.updateAdminOrder)
	mux.HandleFunc("DELETE /api/admin/orders/{id}", h.deleteAdminOrder)

	mux.HandleFunc("GET /api/admin/products", h.getAdminProducts)
	mux.HandleFunc("POST /api/admin/products", h.createProduct)
	mux.HandleFunc("GET /api/admin/products/{id}", h.getProduct)
	mux.HandleFunc("PATCH /api/admin/products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /api/admin/products/{id}", h.deleteProduct)

	mux.HandleFunc("GET /api/admin/customers", h.getAdminCustomers)
	mux.HandleFunc("GET /api/admin/dashboard", h.getDashboard)
	mux.HandleFunc("POST /api/admin/upsell", h.suggestUpsell)
}

// imageURL resolves a stored image path against the configured base.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}
