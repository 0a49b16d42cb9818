package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/upsell"
	"github.com/xenking/storefront/internal/wire"
)

// getAdminCustomers lists the customer directory, filtered by ?q=.
func (h *Handler) getAdminCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for _, c := range customers {
		wire.EncodeCustomer(&e, c)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	s, err := h.dashboard.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orders")
	e.Int(s.Orders)
	e.FieldStart("openOrders")
	e.Int(s.OpenOrders)
	e.FieldStart("revenue")
	wire.Money(&e, s.Revenue)
	e.FieldStart("outstanding")
	wire.Money(&e, s.Outstanding)
	e.FieldStart("products")
	e.Int(s.Products)
	e.FieldStart("unitsInStock")
	e.Int(s.UnitsStock)
	e.FieldStart("customers")
	e.Int(s.Customers)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// suggestUpsell answers {"success":true,"suggestedBundles":..,"discountOffer":..}.
func (h *Handler) suggestUpsell(w http.ResponseWriter, r *http.Request) {
	var req upsell.Request
	if err := decodeBody(w, r, func(d *jx.Decoder) error { return decodeUpsell(d, &req) }); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.upsell.Suggest(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("suggestedBundles")
	e.Str(s.SuggestedBundles)
	e.FieldStart("discountOffer")
	e.Str(s.DiscountOffer)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
