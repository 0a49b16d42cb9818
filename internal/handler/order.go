package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/wire"
)

// createOrder is the customer checkout.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CheckoutRequest
	if err := decodeBody(w, r, func(d *jx.Decoder) error { return decodeCheckout(d, &req) }); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, id)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getAdminOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.Filter{Query: q.Get("q"), Status: order.Status(q.Get("status"))}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, r, apperr.Invalid("status", fmt.Sprintf("unknown status %q", f.Status)))
		return
	}
	orders, err := h.orders.GetAdminOrders(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		h.encodeOrder(&e, &orders[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) createAdminOrder(w http.ResponseWriter, r *http.Request) {
	var req order.AdminOrderRequest
	if err := decodeBody(w, r, func(d *jx.Decoder) error { return decodeAdminOrder(d, &req) }); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.orders.CreateAdminOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, id)
}

func (h *Handler) updateAdminOrder(w http.ResponseWriter, r *http.Request) {
	var patch order.Patch
	if err := decodeBody(w, r, func(d *jx.Decoder) error { return decodeOrderPatch(d, &patch) }); err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if err := h.orders.UpdateAdminOrder(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, id)
}

func (h *Handler) deleteAdminOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.orders.DeleteAdminOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, id)
}

// encodeOrder writes o with the derived "remaining" balance.
func (h *Handler) encodeOrder(e *jx.Encoder, o *order.Order) {
	view := o.Clone()
	for i := range view.Items {
		view.Items[i].ImageURL = h.imageURL(view.Items[i].ImageURL)
	}
	e.ObjStart()
	wire.OrderFields(e, &view)
	e.FieldStart("remaining")
	wire.Money(e, view.Remaining())
	e.ObjEnd()
}
