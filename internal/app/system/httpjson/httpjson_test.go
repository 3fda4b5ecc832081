package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"go.uber.org/zap"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestWriteErr(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"conflict", fmt.Errorf("submit: %w", apperr.ErrDuplicatePending), http.StatusConflict, "duplicate_pending"},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", apperr.NotFoundf("group"), http.StatusNotFound, "not_found"},
		{"unauthenticated", apperr.ErrInvalidOTP, http.StatusUnauthorized, "invalid_otp"},
		{"internal", errors.New("mongo exploded"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteErr(rec, httptest.NewRequest("GET", "/x", nil), zap.NewNop(), tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeBody(t, rec)
			if body.Error != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error, tt.wantCode)
			}
			if strings.Contains(body.Message, "mongo") {
				t.Error("internal details leaked into message")
			}
		})
	}
}

func TestDecode(t *testing.T) {
	type input struct {
		Name string `json:"name" validate:"required,max=5" label:"Name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"ok", `{"name":"abc"}`, ""},
		{"empty", ``, "request body is required"},
		{"malformed", `{"name":`, "request body is not valid JSON"},
		{"invalid", `{"name":""}`, "Name is required."},
		{"too long", `{"name":"abcdefg"}`, "Name must be at most 5 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var in input
			err := Decode(httptest.NewRecorder(), req, &in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ae, ok := apperr.As(err)
			if !ok || ae.Kind != apperr.InvalidInput {
				t.Fatalf("expected InvalidInput, got %v", err)
			}
			if ae.Message != tt.wantErr {
				t.Errorf("message = %q, want %q", ae.Message, tt.wantErr)
			}
		})
	}
}

func TestDecodeOptional(t *testing.T) {
	type input struct {
		Reason string `json:"reason" validate:"max=5" label:"Reason"`
	}

	var in input
	if err := DecodeOptional(httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), &in); err != nil {
		t.Fatalf("no body: %v", err)
	}

	// chunked: no Content-Length, body still present
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"reason":"hi"}`))
	req.ContentLength = -1
	if err := DecodeOptional(httptest.NewRecorder(), req, &in); err != nil {
		t.Fatalf("chunked body: %v", err)
	}
	if in.Reason != "hi" {
		t.Errorf("reason = %q, want %q", in.Reason, "hi")
	}

	empty := httptest.NewRequest("POST", "/", strings.NewReader(""))
	empty.ContentLength = -1
	if err := DecodeOptional(httptest.NewRecorder(), empty, &input{}); err != nil {
		t.Errorf("empty chunked body: %v", err)
	}

	bad := httptest.NewRequest("POST", "/", strings.NewReader(`{"reason":"too long"}`))
	if ae, ok := apperr.As(DecodeOptional(httptest.NewRecorder(), bad, &input{})); !ok || ae.Kind != apperr.InvalidInput {
		t.Errorf("expected InvalidInput for an invalid body, got %v", ae)
	}
}

func TestDecode_TooLarge(t *testing.T) {
	big := `{"name":"` + strings.Repeat("a", MaxBodyBytes+10) + `"}`
	var in struct {
		Name string `json:"name"`
	}
	err := Decode(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader(big)), &in)
	if ae, ok := apperr.As(err); !ok || ae.Message != "request body is too large" {
		t.Errorf("expected too large error, got %v", err)
	}
}
