package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/wire"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

var (
	errMalformed   = apperr.Invalid("body", "request body is not valid JSON")
	errAmountRange = apperr.Invalid("body", "amounts must be below 1000000000000 with at most 8 decimal places")
)

// decodeBody reads the request body and passes a decoder to fn. Syntax and
// type errors become a ValidationError.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Invalid("body", "request body is too large")
		}
		return errors.Wrap(err, "read body")
	}
	if err := fn(jx.DecodeBytes(body)); err != nil {
		zctx.From(r.Context()).Debug("Malformed request body", zap.Error(err))
		if errors.Is(err, wire.ErrAmountOutOfRange) {
			return errAmountRange
		}
		return errMalformed
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeSuccess answers a write with {"success":true,"id":id}. An empty id
// is omitted.
func writeSuccess(w http.ResponseWriter, status int, id string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	if id != "" {
		e.FieldStart("id")
		e.Str(id)
	}
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// writeError maps err to a status code and writes the failure envelope.
// Only errors the caller can act on reveal their message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *apperr.ValidationError
		nf    *apperr.NotFoundError
		stock *apperr.InsufficientStockError
		ext   *apperr.ExternalServiceError
	)
	lg := zctx.From(r.Context())
	switch {
	case errors.As(err, &verr):
		httpmiddleware.WriteFailure(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &nf):
		httpmiddleware.WriteFailure(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &stock):
		httpmiddleware.WriteFailure(w, http.StatusConflict, stock.Error())
	case errors.As(err, &ext):
		lg.Error("External service failed", zap.String("service", ext.Service), zap.Error(ext.Err))
		httpmiddleware.WriteFailure(w, http.StatusBadGateway,
			fmt.Sprintf("%s is unavailable, please try again later", ext.Service))
	default:
		lg.Error("Internal error", zap.Error(err))
		httpmiddleware.WriteFailure(w, http.StatusInternalServerError, "internal server error")
	}
}
