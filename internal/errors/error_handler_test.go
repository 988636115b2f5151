package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKindForStatus(t *testing.T) {
	tests := map[int]Kind{
		http.StatusBadRequest:          KindInvalid,
		http.StatusUnauthorized:        KindInvalid,
		http.StatusNotFound:            KindNotFound,
		http.StatusTooManyRequests:     KindRateLimited,
		http.StatusInternalServerError: KindServer,
		http.StatusBadGateway:          KindUnreachable,
		http.StatusServiceUnavailable:  KindUnreachable,
		http.StatusGatewayTimeout:      KindUnreachable,
	}
	for code, want := range tests {
		assert.Equal(t, want, KindForStatus(code), "status %d", code)
	}
}

func TestClusterError(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		err := &ClusterError{Kind: KindServer, StatusCode: 500, Message: "Job not running"}
		assert.Equal(t, "cluster server (500): Job not running", err.Error())
	})

	t.Run("unwraps cause through wrapping", func(t *testing.T) {
		cause := syscall.ECONNREFUSED
		wrapped := fmt.Errorf("get overview: %w", &ClusterError{Kind: KindUnreachable, Cause: cause})

		ce, ok := AsClusterError(wrapped)
		require.True(t, ok)
		assert.Equal(t, KindUnreachable, ce.Kind)
		assert.ErrorIs(t, wrapped, syscall.ECONNREFUSED)
	})

	t.Run("not a cluster error", func(t *testing.T) {
		_, ok := AsClusterError(fmt.Errorf("plain"))
		assert.False(t, ok)
	})
}

func TestHandler_Classify(t *testing.T) {
	h := NewHandler(zap.NewNop())

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"nil", nil, http.StatusOK, ErrorCodeUnknown},
		{"unreachable", &ClusterError{Kind: KindUnreachable}, http.StatusBadGateway, ErrorCodeUnreachable},
		{"not found", &ClusterError{Kind: KindNotFound, StatusCode: 404}, http.StatusNotFound, ErrorCodeNotFound},
		{"rate limited", &ClusterError{Kind: KindRateLimited, StatusCode: 429}, http.StatusTooManyRequests, ErrorCodeRateLimited},
		{"invalid", &ClusterError{Kind: KindInvalid, StatusCode: 400}, http.StatusBadRequest, ErrorCodeInvalidRequest},
		{"unauthorized", &ClusterError{Kind: KindInvalid, StatusCode: 401}, http.StatusUnauthorized, ErrorCodeUnauthorized},
		{"server", &ClusterError{Kind: KindServer, StatusCode: 500}, http.StatusBadGateway, ErrorCodeServiceDown},
		{"malformed", fmt.Errorf("decode: %w", ErrMalformedPayload), http.StatusBadGateway, ErrorCodeInternalError},
		{"timeout", fmt.Errorf("get /overview: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, ErrorCodeTimeout},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, ErrorCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := h.Classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestHandler_HandleError(t *testing.T) {
	h := NewHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/cluster/jobs/abc", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()

	h.HandleError(w, req, &ClusterError{Kind: KindNotFound, StatusCode: 404, Message: "Job abc not found"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrorCodeNotFound, resp.ErrorCode)
	assert.Equal(t, "Job abc not found", resp.Message)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestHandler_WriteServiceUnavailable(t *testing.T) {
	h := NewHandler(zap.NewNop())
	w := httptest.NewRecorder()

	h.WriteServiceUnavailable(w, ErrorCodeInitializing, "dashboard is initializing", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "INITIALIZING")
	assert.NotContains(t, w.Body.String(), "request_id")
}
