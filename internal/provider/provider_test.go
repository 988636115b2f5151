package provider

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/devrev/flink-dashboard/internal/config"
	"github.com/devrev/flink-dashboard/internal/interceptor"
	"github.com/devrev/flink-dashboard/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTransport struct {
	mu     sync.Mutex
	calls  int
	status int
	last   *http.Request
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.calls++
	s.last = req
	status := s.status
	s.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	return interceptor.Synthesize(req, status, nil, []byte(`{"errors":["boom"]}`)), nil
}

type stubTracker struct {
	unreachable int
}

func (s *stubTracker) MarkReachable() {}

func (s *stubTracker) MarkUnreachable(string) { s.unreachable++ }

func testConfig() *config.Config {
	return &config.Config{
		Cluster: config.ClusterConfig{Endpoint: "http://jobmanager:8081", StatusPath: "/config"},
		Interceptor: config.InterceptorConfig{
			AuthHeader:     "Authorization",
			CachePaths:     []string{"/overview"},
			Notify:         true,
			LogRequests:    true,
			TrackReachable: true,
		},
		RateLimiter:  config.RateLimiterConfig{Enabled: true, RequestsPerSecond: 100, BurstSize: 10},
		Cache:        config.CacheConfig{Backend: "memory", TTL: time.Minute, MaxSize: 16},
		Notification: config.NotificationConfig{MaxStack: 1, DedupWindow: time.Second},
		Web:          config.WebConfig{Locale: "en-US", Theme: "default"},
	}
}

func TestAssemble_Defaults(t *testing.T) {
	p, err := Assemble(context.Background(), testConfig(), Deps{Logger: zap.NewNop(), Transport: &stubTransport{}})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "en-US", p.Locale().String())
	assert.Equal(t, "default", p.Theme())
	assert.Equal(t, NotificationLimits{MaxStack: 1, DedupWindow: time.Second}, p.Notifications())
	assert.NoError(t, p.Icons().Require(WidgetIcons...))
	assert.NotNil(t, p.Center())
	assert.NotNil(t, p.Transport())
}

func TestAssemble_InvalidLocale(t *testing.T) {
	cfg := testConfig()
	cfg.Web.Locale = "not a locale!"

	_, err := Assemble(context.Background(), cfg, Deps{})
	assert.ErrorContains(t, err, "invalid locale")
}

func TestAssemble_UnknownTheme(t *testing.T) {
	cfg := testConfig()
	cfg.Web.Theme = "neon"

	_, err := Assemble(context.Background(), cfg, Deps{})
	assert.ErrorContains(t, err, "unknown theme")
}

func TestAssemble_MissingWidgetIcon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icons.yaml")
	require.NoError(t, os.WriteFile(path, []byte("icons:\n  - name: download\n    svg: '<svg/>'\n"), 0o644))

	cfg := testConfig()
	cfg.Web.IconManifest = path

	_, err := Assemble(context.Background(), cfg, Deps{})
	assert.ErrorContains(t, err, `icon "reload" is not registered`)
}

func TestAssemble_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis = config.RedisConfig{Host: mr.Host(), Port: port, KeyPrefix: "test:"}

	transport := &stubTransport{}
	p, err := Assemble(context.Background(), cfg, Deps{Transport: transport})
	require.NoError(t, err)
	defer p.Close()

	client := &http.Client{Transport: p.Transport()}
	for i := 0; i < 3; i++ {
		resp, err := client.Get("http://jobmanager:8081/overview")
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, 1, transport.calls, "later reads are served from redis")
	assert.NotEmpty(t, mr.Keys())
}

func TestAssemble_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	_, err := Assemble(context.Background(), cfg, Deps{})
	assert.ErrorContains(t, err, "failed to create redis cache")
}

func TestAssemble_ChainWiring(t *testing.T) {
	cfg := testConfig()
	cfg.Interceptor.AuthToken = "Bearer secret"

	transport := &stubTransport{status: http.StatusServiceUnavailable}
	tracker := &stubTracker{}
	p, err := Assemble(context.Background(), cfg, Deps{Transport: transport, Tracker: tracker})
	require.NoError(t, err)
	defer p.Close()

	req, err := http.NewRequest(http.MethodGet, "http://jobmanager:8081/jobs/overview", nil)
	require.NoError(t, err)

	_, err = p.Transport().RoundTrip(req)
	require.Error(t, err)

	assert.Equal(t, "Bearer secret", transport.last.Header.Get("Authorization"))
	assert.NotEmpty(t, transport.last.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, 1, tracker.unreachable)

	notes := p.Center().List()
	require.Len(t, notes, 1)
	assert.Equal(t, "Cluster Unreachable:", notes[0].Title)
}

func TestParseIcons_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"no name", "icons:\n  - svg: '<svg/>'\n"},
		{"no svg", "icons:\n  - name: reload\n"},
		{"duplicate", "icons:\n  - name: a\n    svg: x\n  - name: a\n    svg: y\n"},
		{"not yaml", "icons: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIcons([]byte(tt.manifest))
			assert.Error(t, err)
		})
	}
}
