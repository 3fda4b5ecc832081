// Package httpjson writes JSON responses and decodes JSON request bodies for
// the API handlers.
//
// Error bodies always have the shape {"error": code, "message": msg}.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/auditlog"
	"github.com/dalemusser/campusboard/internal/app/system/inputval"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageBody is a bare {"message": ...} response.
type MessageBody struct {
	Message string `json:"message"`
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, ErrorBody{Error: code, Message: message})
}

// WriteErr maps err to a status via apperr and writes the envelope.
// Unclassified errors are logged and answered with a generic message.
func WriteErr(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if ae, ok := apperr.As(err); ok && ae.Kind != apperr.Internal {
		Error(w, ae.Kind.HTTPStatus(), ae.Code, ae.Message)
		return
	}
	if log != nil {
		log.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", auditlog.MetaFrom(r.Context()).CorrelationID),
		)
	}
	Error(w, http.StatusInternalServerError, "internal", "something went wrong")
}

// Decode reads a JSON body into dst and runs its validate rules.
// Failures come back as apperr InvalidInput errors.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, true)
}

// DecodeOptional is Decode for endpoints whose body may be left out. A
// missing or empty body, chunked or not, leaves dst at its zero value.
func DecodeOptional(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	return decode(w, r, dst, false)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, required bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			if !required {
				return nil
			}
			return apperr.Invalid("request body is required")
		case errors.As(err, &maxErr):
			return apperr.Invalid("request body is too large")
		default:
			return apperr.Invalid("request body is not valid JSON")
		}
	}
	if res := inputval.Validate(dst); res.HasErrors() {
		return apperr.Invalid(res.First())
	}
	return nil
}
