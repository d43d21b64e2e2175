// Package handler exposes the checkout core over HTTP. Every response uses a
// uniform {success, data|error} envelope: business-level failures (stock
// conflicts, payment rejections, gateway outages) ride on HTTP 200 and are
// distinguished by the envelope, while malformed input and auth failures map
// to 4xx.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/middleware"
)

var validate = validator.New()

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

// respondData writes a success envelope.
func respondData(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// respondError writes a failure envelope. Business failures keep HTTP 200;
// input and auth failures surface the matching 4xx; everything else is 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := httpStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{"error", err.Error(), "code", code, "status", status}
	if status >= 500 {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	writeJSON(w, status, envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: domain.ErrorMessage(err)},
	})
}

func httpStatus(code string) int {
	switch code {
	case domain.ECONFLICT, domain.EPAYMENT, domain.EUNAVAILABLE:
		// Business-level outcome, not a transport error.
		return http.StatusOK
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// decode parses and validates a JSON request body into dst.
func decode(r *http.Request, dst interface{}) error {
	const op = "handler.decode"

	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid(op, "Invalid JSON request body")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.Errorf(domain.EINVALID, op, "Invalid field %s", verrs[0].Field())
		}
		return domain.Invalid(op, "Invalid request body")
	}
	return nil
}
