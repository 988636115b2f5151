// Package provider assembles the process-wide configuration every component receives at startup:
// locale, icons, theme, notification limits and the outbound interceptor chain. A ProviderSet is
// built once and never mutated.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/devrev/flink-dashboard/internal/cache"
	"github.com/devrev/flink-dashboard/internal/config"
	"github.com/devrev/flink-dashboard/internal/interceptor"
	"github.com/devrev/flink-dashboard/internal/metrics"
	"github.com/devrev/flink-dashboard/internal/notify"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

// WidgetIcons are the icons the dashboard widgets render.
var WidgetIcons = []string{"download", "reload"}

var themes = map[string]struct{}{
	"default": {},
	"dark":    {},
	"compact": {},
}

// NotificationLimits bounds the operator notification stack.
type NotificationLimits struct {
	MaxStack    int
	DedupWindow time.Duration
}

// Deps are the collaborators Assemble wires into the chain. Metrics and Tracker may be nil.
type Deps struct {
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Tracker   interceptor.ReachabilityTracker
	Transport http.RoundTripper
}

// ProviderSet is the immutable startup configuration.
type ProviderSet struct {
	locale        language.Tag
	icons         IconSet
	theme         string
	notifications NotificationLimits
	center        *notify.Center
	store         cache.Store
	chain         *interceptor.Chain
}

// Assemble validates cfg and builds the provider set. Any error is fatal to startup.
func Assemble(ctx context.Context, cfg *config.Config, deps Deps) (*ProviderSet, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	locale, err := language.Parse(cfg.Web.Locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", cfg.Web.Locale, err)
	}

	theme := cfg.Web.Theme
	if theme == "" {
		theme = "default"
	}
	if _, ok := themes[theme]; !ok {
		return nil, fmt.Errorf("unknown theme %q", theme)
	}

	icons, err := LoadIcons(cfg.Web.IconManifest)
	if err != nil {
		return nil, err
	}
	if err := icons.Require(WidgetIcons...); err != nil {
		return nil, err
	}

	limits := NotificationLimits{
		MaxStack:    cfg.Notification.MaxStack,
		DedupWindow: cfg.Notification.DedupWindow,
	}
	var notifyRecorder notify.Recorder
	if deps.Metrics != nil {
		notifyRecorder = deps.Metrics
	}
	center := notify.NewCenter(limits.MaxStack, limits.DedupWindow, notifyRecorder, logger.Named("notify"))

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	chain := interceptor.NewChain(deps.Transport, interceptors(cfg, deps, center, store, logger)...)

	logger.Info("providers assembled",
		zap.String("locale", locale.String()),
		zap.String("theme", theme),
		zap.Strings("icons", icons.Names()),
		zap.Int("interceptors", chain.Len()),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	return &ProviderSet{
		locale:        locale,
		icons:         icons,
		theme:         theme,
		notifications: limits,
		center:        center,
		store:         store,
		chain:         chain,
	}, nil
}

// interceptors returns the chain in registration order. Observers sit outside Normalize so that
// they see classified errors; Cache, RateLimit and Auth sit closest to the network.
func interceptors(cfg *config.Config, deps Deps, center *notify.Center, store cache.Store, logger *zap.Logger) []interceptor.Interceptor {
	list := []interceptor.Interceptor{interceptor.RequestID()}

	if cfg.Interceptor.LogRequests {
		list = append(list, interceptor.Logging(logger.Named("cluster")))
	}
	if deps.Metrics != nil {
		list = append(list, interceptor.Metrics(deps.Metrics))
	}
	if cfg.Interceptor.Notify {
		list = append(list, interceptor.Notify(center))
	}
	if cfg.Interceptor.TrackReachable && deps.Tracker != nil {
		list = append(list, interceptor.Reachability(deps.Tracker))
	}

	list = append(list, interceptor.Normalize())

	if store != nil && len(cfg.Interceptor.CachePaths) > 0 {
		list = append(list, interceptor.Cache(store, cfg.Cache.TTL, cfg.Interceptor.CachePaths, logger.Named("cache")))
	}
	if cfg.RateLimiter.Enabled {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimiter.RequestsPerSecond), cfg.RateLimiter.BurstSize)
		list = append(list, interceptor.RateLimit(limiter))
	}
	if cfg.Interceptor.AuthToken != "" {
		list = append(list, interceptor.Auth(cfg.Interceptor.AuthHeader, cfg.Interceptor.AuthToken))
	}
	return list
}

func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "none", "":
		return nil, nil
	case "memory":
		return cache.NewMemoryStore(cfg.Cache.MaxSize, logger.Named("cache")), nil
	case "redis":
		store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:      cfg.Redis.RedisAddr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger.Named("cache"))
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Locale returns the dashboard locale.
func (p *ProviderSet) Locale() language.Tag { return p.locale }

// Icons returns the registered icons.
func (p *ProviderSet) Icons() IconSet { return p.icons }

// Theme returns the dashboard theme name.
func (p *ProviderSet) Theme() string { return p.theme }

// Notifications returns the notification limits.
func (p *ProviderSet) Notifications() NotificationLimits { return p.notifications }

// Center returns the notification center fed by the chain.
func (p *ProviderSet) Center() *notify.Center { return p.center }

// Transport returns the interceptor chain. Every outbound cluster client must use it.
func (p *ProviderSet) Transport() http.RoundTripper { return p.chain }

// Cache returns the response cache store, or nil when caching is disabled.
func (p *ProviderSet) Cache() cache.Store { return p.store }

// Close releases the cache store.
func (p *ProviderSet) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}
