// Package errors provides the cluster error taxonomy and HTTP error responses for the dashboard gateway.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorCode represents application-specific error codes.
type ErrorCode string

const (
	ErrorCodeUnknown        ErrorCode = "UNKNOWN"
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceDown    ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout        ErrorCode = "TIMEOUT"
	ErrorCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrorCodeUnreachable    ErrorCode = "CLUSTER_UNREACHABLE"
	ErrorCodeInitializing   ErrorCode = "INITIALIZING"
	ErrorCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
)

// Kind classifies a failed cluster request.
type Kind string

const (
	KindUnreachable Kind = "unreachable"
	KindInvalid     Kind = "invalid"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindServer      Kind = "server"
)

// ErrMalformedPayload is returned when a cluster response body cannot be decoded.
var ErrMalformedPayload = stderrors.New("malformed payload")

// ClusterError is a classified failure of a request to the cluster REST API.
type ClusterError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Cause      error
}

func (e *ClusterError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("cluster %s (%d): %s", e.Kind, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("cluster %s (%d)", e.Kind, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("cluster %s: %v", e.Kind, e.Cause)
	default:
		return fmt.Sprintf("cluster %s", e.Kind)
	}
}

func (e *ClusterError) Unwrap() error {
	return e.Cause
}

// KindForStatus classifies a non-2xx HTTP status code.
func KindForStatus(code int) Kind {
	switch {
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable, code == http.StatusGatewayTimeout:
		return KindUnreachable
	case code >= 400 && code < 500:
		return KindInvalid
	default:
		return KindServer
	}
}

// AsClusterError extracts a ClusterError from err's chain.
func AsClusterError(err error) (*ClusterError, bool) {
	var ce *ClusterError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string    `json:"status"`
	ErrorCode ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// Handler writes error responses.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

// HandleError maps err to a status code and error code and writes the response.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode, errorCode := h.Classify(err)

	message := err.Error()
	if ce, ok := AsClusterError(err); ok && ce.Message != "" {
		message = ce.Message
	}

	h.WriteErrorResponse(w, statusCode, errorCode, message, r.Header.Get("X-Request-ID"))
}

// Classify converts an error into an HTTP status code and application error code.
func (h *Handler) Classify(err error) (int, ErrorCode) {
	if err == nil {
		return http.StatusOK, ErrorCodeUnknown
	}

	ce, ok := AsClusterError(err)
	if !ok {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, ErrorCodeTimeout
		}
		if stderrors.Is(err, ErrMalformedPayload) {
			return http.StatusBadGateway, ErrorCodeInternalError
		}
		return http.StatusInternalServerError, ErrorCodeInternalError
	}

	switch ce.Kind {
	case KindUnreachable:
		return http.StatusBadGateway, ErrorCodeUnreachable
	case KindNotFound:
		return http.StatusNotFound, ErrorCodeNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests, ErrorCodeRateLimited
	case KindInvalid:
		if ce.StatusCode == http.StatusUnauthorized || ce.StatusCode == http.StatusForbidden {
			return ce.StatusCode, ErrorCodeUnauthorized
		}
		return http.StatusBadRequest, ErrorCodeInvalidRequest
	default:
		return http.StatusBadGateway, ErrorCodeServiceDown
	}
}

// WriteErrorResponse writes a formatted error response to the HTTP response writer.
func (h *Handler) WriteErrorResponse(w http.ResponseWriter, statusCode int, errorCode ErrorCode, message string, requestID string) {
	h.logger.Warn("HTTP error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", string(errorCode)),
		zap.String("message", message),
		zap.String("request_id", requestID),
	)

	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// WriteValidationError writes a validation error response.
func (h *Handler) WriteValidationError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, requestID)
}

// WriteServiceUnavailable writes a service unavailable response.
func (h *Handler) WriteServiceUnavailable(w http.ResponseWriter, errorCode ErrorCode, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusServiceUnavailable, errorCode, message, requestID)
}
