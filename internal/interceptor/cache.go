package interceptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/devrev/flink-dashboard/internal/cache"
	"go.uber.org/zap"
)

// CacheHeader is set on responses answered from the cache.
const CacheHeader = "X-Dashboard-Cache"

type cachedResponse struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// Cache answers GET requests for the listed paths from store, and stores successful responses
// for ttl. A hit short-circuits the chain. Store failures are logged and never fail the request.
func Cache(store cache.Store, ttl time.Duration, paths []string, logger *zap.Logger) Interceptor {
	cacheable := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		cacheable[p] = struct{}{}
	}

	return Func(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		if req.Method != http.MethodGet {
			return next.RoundTrip(req)
		}
		if _, ok := cacheable[req.URL.Path]; !ok {
			return next.RoundTrip(req)
		}

		ctx := req.Context()
		key := req.Method + " " + req.URL.String()

		data, err := store.Get(ctx, key)
		if err == nil {
			var hit cachedResponse
			if err := json.Unmarshal(data, &hit); err == nil {
				header := hit.Header.Clone()
				if header == nil {
					header = make(http.Header)
				}
				header.Set(CacheHeader, "hit")
				return Synthesize(req, hit.StatusCode, header, hit.Body), nil
			}
			logger.Warn("dropping undecodable cache entry", zap.String("key", key))
			_ = store.Delete(ctx, key)
		} else if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}

		resp, err := next.RoundTrip(req)
		if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp, err
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))

		entry, _ := json.Marshal(cachedResponse{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		})
		if err := store.Set(ctx, key, entry, ttl); err != nil {
			logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
		}
		return resp, nil
	})
}
