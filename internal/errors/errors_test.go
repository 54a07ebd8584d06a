package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewAppValidationError("bad column"),
			want: "[VALIDATION] bad column",
		},
		{
			name: "with cause",
			err:  NewStorageError("insert failed", fmt.Errorf("disk full")),
			want: "[STORAGE] insert failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsType(t *testing.T) {
	missing := NewMissingInputError("data/raw/customers_data.csv", os.ErrNotExist)
	wrapped := fmt.Errorf("prepare customers: %w", missing)
	nested := NewStorageError("load", wrapped)

	assert.True(t, IsType(missing, ErrTypeMissingInput))
	assert.True(t, IsType(wrapped, ErrTypeMissingInput))
	assert.True(t, IsType(nested, ErrTypeMissingInput))
	assert.True(t, IsType(nested, ErrTypeStorage))
	assert.False(t, IsType(wrapped, ErrTypeEmptyResult))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrTypeStorage))
	assert.False(t, IsType(nil, ErrTypeStorage))
	assert.ErrorIs(t, wrapped, os.ErrNotExist)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewEmptyResultError("dim_customer")
	assert.Equal(t, "dim_customer", err.Context["source"])

	err.WithContext("rows", 0)
	assert.Equal(t, 0, err.Context["rows"])
}

func TestFromAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
	}{
		{"missing input", NewMissingInputError("x.db", nil), http.StatusServiceUnavailable},
		{"empty result", NewEmptyResultError("fact_sales"), http.StatusServiceUnavailable},
		{"not found", NewNotFoundError("region"), http.StatusNotFound},
		{"validation", NewAppValidationError("bad"), http.StatusUnprocessableEntity},
		{"storage", NewStorageError("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromAppError(tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.err.Message, apiErr.Message)
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewErrorHandler(logger, func(context.Context) string { return "trace-123" })

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "api error",
			err:        ErrRateLimitExceeded,
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
			wantCode:   "RATE_LIMIT_EXCEEDED",
		},
		{
			name:       "wrapped app error",
			err:        fmt.Errorf("report: %w", NewEmptyResultError("fact_sales")),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeServiceDown,
			wantCode:   "WAREHOUSE_NOT_LOADED",
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/olap/pivot", nil)
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/olap/pivot", body["instance"])
			assert.Equal(t, "trace-123", body["trace_id"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
		})
	}
}

func TestErrorHandler_NilError(t *testing.T) {
	handler := NewErrorHandler(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, req, nil)

	assert.Equal(t, 0, rec.Body.Len())
}
