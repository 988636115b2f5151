package interceptor

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/devrev/flink-dashboard/internal/errors"
	"github.com/devrev/flink-dashboard/internal/middleware"
	"github.com/devrev/flink-dashboard/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IgnoreErrorHeader marks a request whose failure must not raise an operator notification.
const IgnoreErrorHeader = "Ignore-Error"

// maxErrorBody bounds how much of a failed response is read to extract its message.
const maxErrorBody = 64 << 10

// RequestID tags outbound requests with the ID of the inbound request being served, or a fresh one.
func RequestID() Interceptor {
	return Func(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		if req.Header.Get(middleware.RequestIDHeader) != "" {
			return next.RoundTrip(req)
		}
		id := middleware.RequestIDFromContext(req.Context())
		if id == "" {
			id = uuid.New().String()
		}
		out := req.Clone(req.Context())
		out.Header.Set(middleware.RequestIDHeader, id)
		return next.RoundTrip(out)
	})
}

// Auth attaches a static credential header. An empty token passes requests through untouched.
func Auth(header, token string) Interceptor {
	return Func(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		if token == "" || req.Header.Get(header) != "" {
			return next.RoundTrip(req)
		}
		out := req.Clone(req.Context())
		out.Header.Set(header, token)
		return next.RoundTrip(out)
	})
}

// Logging logs each outbound request and its result.
func Logging(logger *zap.Logger) Interceptor {
	return Func(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)

		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", req.Header.Get(middleware.RequestIDHeader)),
		}
		if err != nil {
			logger.Warn("cluster request failed", append(fields, zap.Error(err))...)
			return nil, err
		}
		logger.Debug("cluster request", append(fields, zap.Int("status", resp.StatusCode))...)
		return resp, nil
	})
}

// RequestRecorder receives outbound request observations.
type RequestRecorder interface {
	RecordClusterRequest(method, outcome string, duration time.Duration)
}

// Metrics records the duration and outcome of each outbound request.
func Metrics(recorder RequestRecorder) Interceptor {
	return Func(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)

		outcome := "error"
		if err == nil {
			outcome = strconv.Itoa(resp.StatusCode)
		} else if ce, ok := apierrors.AsClusterError(err); ok {
			outcome = string(ce.Kind)
		}
		recorder.RecordClusterRequest(req.Method, outcome, time.Since(start))
		return resp, err
	})
}

// RateLimit answers with a synthesized 429 when limiter has no token, without calling the cluster.
func RateLimit(limiter *rate.Limiter) Interceptor {
	return Func(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		if limiter.Allow() {
			return next.RoundTrip(req)
		}
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		header.Set("Retry-After", "1")
		return Synthesize(req, http.StatusTooManyRequests, header,
			[]byte(`{"errors":["rate limit exceeded"]}`)), nil
	})
}

// Normalize turns transport failures and non-2xx/3xx responses into *errors.ClusterError.
// Failures caused by the request's own context are returned unchanged.
func Normalize() Interceptor {
	return Func(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		if err != nil {
			if _, ok := apierrors.AsClusterError(err); ok || req.Context().Err() != nil {
				return nil, err
			}
			return nil, &apierrors.ClusterError{Kind: apierrors.KindUnreachable, Cause: err}
		}
		if resp.StatusCode < http.StatusBadRequest {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()

		return nil, &apierrors.ClusterError{
			Kind:       apierrors.KindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    firstErrorMessage(body, resp.StatusCode),
		}
	})
}

// firstErrorMessage extracts the first entry of the cluster's {"errors": [...]} body.
func firstErrorMessage(body []byte, code int) string {
	var payload struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		return payload.Errors[0]
	}
	return http.StatusText(code)
}

// ReachabilityTracker is updated with the cluster reachability observed on outbound requests.
type ReachabilityTracker interface {
	MarkReachable()
	MarkUnreachable(reason string)
}

// Reachability reports unreachable-cluster failures and successful responses to tracker.
// It must be registered outside Normalize to see classified errors. Responses answered from the
// cache never reached the cluster and are not reported.
func Reachability(tracker ReachabilityTracker) Interceptor {
	return Func(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		if err == nil {
			if resp.Header.Get(CacheHeader) == "" {
				tracker.MarkReachable()
			}
			return resp, nil
		}
		if ce, ok := apierrors.AsClusterError(err); ok && ce.Kind == apierrors.KindUnreachable {
			tracker.MarkUnreachable(ce.Error())
		}
		return nil, err
	})
}

// Notifier receives operator notifications.
type Notifier interface {
	Notify(level notify.Level, title, message string) bool
}

// Notify raises an operator notification for failed requests. Requests carrying
// "Ignore-Error: true" and 404 responses are not notified. The error is always returned.
func Notify(notifier Notifier) Interceptor {
	return Func(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		silent := req.Header.Get(IgnoreErrorHeader) == "true"
		if req.Header.Get(IgnoreErrorHeader) != "" {
			out := req.Clone(req.Context())
			out.Header.Del(IgnoreErrorHeader)
			req = out
		}

		resp, err := next.RoundTrip(req)
		if err == nil || silent || req.Context().Err() != nil {
			return resp, err
		}

		ce, ok := apierrors.AsClusterError(err)
		switch {
		case !ok:
			notifier.Notify(notify.LevelError, "Request Failed:", err.Error())
		case ce.Kind == apierrors.KindNotFound:
			// polled resources disappear routinely, e.g. finished jobs
		case ce.Kind == apierrors.KindUnreachable:
			notifier.Notify(notify.LevelError, "Cluster Unreachable:", ce.Error())
		default:
			notifier.Notify(notify.LevelInfo, "Server Response Message:", ce.Message)
		}
		return nil, err
	})
}
