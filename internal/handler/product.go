package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/wire"
)

// browseProducts is the public catalog: ?q= matches the name, ?category=
// and ?tag= filter exactly.
func (h *Handler) browseProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := product.Filter{
		Query:    q.Get("q"),
		Category: product.Category(q.Get("category")),
		Tag:      product.Tag(q.Get("tag")),
	}
	verr := &apperr.ValidationError{}
	if f.Category != "" && !f.Category.Valid() {
		verr.Add("category", fmt.Sprintf("unknown category %q", f.Category))
	}
	if f.Tag != "" && !f.Tag.Valid() {
		verr.Add("tag", fmt.Sprintf("unknown tag %q", f.Tag))
	}
	if err := verr.OrNil(); err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.products.Browse(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeProducts(w, products)
}

func (h *Handler) getAdminProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.GetAdminProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeProducts(w, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in product.Input
	if err := decodeBody(w, r, func(d *jx.Decoder) error { return decodeProductInput(d, &in) }); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.products.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, id)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch product.Patch
	if err := decodeBody(w, r, func(d *jx.Decoder) error { return decodeProductPatch(d, &patch) }); err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if err := h.products.UpdateProduct(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, id)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.products.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, id)
}

func (h *Handler) writeProducts(w http.ResponseWriter, products []product.Product) {
	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		h.encodeProduct(&e, p)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	p.ImageURL = h.imageURL(p.ImageURL)
	wire.EncodeProduct(e, &p)
}
