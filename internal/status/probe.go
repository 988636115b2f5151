package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apierrors "github.com/devrev/flink-dashboard/internal/errors"
	"github.com/devrev/flink-dashboard/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is the cause of outcomes returned after Close.
var ErrClosed = errors.New("status probe closed")

// ErrNotBooted is returned by Refresh before a boot outcome exists.
var ErrNotBooted = errors.New("status probe has not booted")

// ConfigFetcher fetches the cluster configuration from the status endpoint.
type ConfigFetcher interface {
	FetchConfig(ctx context.Context) (*model.ClusterConfig, error)
}

// BootRecorder observes boot outcomes.
type BootRecorder interface {
	RecordBoot(reason string, duration time.Duration)
}

// Options configures a Probe.
type Options struct {
	// BootTimeout bounds the boot call. Expiry is a probe failure.
	BootTimeout time.Duration
	// RefreshInterval is used by Watch when the cluster does not advertise one.
	RefreshInterval time.Duration
	Recorder        BootRecorder
}

// Probe performs the one-shot boot call against the cluster and publishes the result to a Slot.
type Probe struct {
	fetcher ConfigFetcher
	slot    *Slot
	opts    Options
	logger  *zap.Logger

	lifetime context.Context
	stop     context.CancelFunc

	group   singleflight.Group
	mu      sync.Mutex
	outcome *model.BootOutcome
}

// NewProbe creates a probe. Close releases it; a boot still in flight at that point is abandoned.
func NewProbe(fetcher ConfigFetcher, slot *Slot, opts Options, logger *zap.Logger) *Probe {
	if opts.BootTimeout <= 0 {
		opts.BootTimeout = 5 * time.Second
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 3 * time.Second
	}
	lifetime, stop := context.WithCancel(context.Background())
	return &Probe{
		fetcher:  fetcher,
		slot:     slot,
		opts:     opts,
		logger:   logger,
		lifetime: lifetime,
		stop:     stop,
	}
}

// Boot probes the cluster once and returns the outcome. Later calls return the cached outcome,
// and concurrent callers share one in-flight call. Boot never panics and never returns an error:
// every failure is a Failed outcome. A caller whose ctx ends first gets a canceled outcome while
// the shared call carries on for the others.
func (p *Probe) Boot(ctx context.Context) model.BootOutcome {
	if o, ok := p.cached(); ok {
		return o
	}
	if p.lifetime.Err() != nil {
		return model.Failed(model.ReasonCanceled, ErrClosed)
	}

	ch := p.group.DoChan("boot", func() (interface{}, error) {
		if o, ok := p.cached(); ok {
			return o, nil
		}
		return p.boot(), nil
	})

	select {
	case res := <-ch:
		return res.Val.(model.BootOutcome)
	case <-ctx.Done():
		return model.Failed(model.ReasonCanceled, ctx.Err())
	case <-p.lifetime.Done():
		return model.Failed(model.ReasonCanceled, ErrClosed)
	}
}

// Outcome returns the cached boot outcome, if boot has resolved.
func (p *Probe) Outcome() (model.BootOutcome, bool) {
	return p.cached()
}

// Slot returns the slot the probe publishes to.
func (p *Probe) Slot() *Slot {
	return p.slot
}

// Close abandons any in-flight call. Its eventual result is neither cached nor published, and the
// probe never writes to the slot after Close returns.
func (p *Probe) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
}

// whileLive runs fn under p.mu unless the probe is closed, and reports whether it ran.
func (p *Probe) whileLive(fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lifetime.Err() != nil {
		return false
	}
	fn()
	return true
}

func (p *Probe) cached() (model.BootOutcome, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outcome == nil {
		return model.BootOutcome{}, false
	}
	return *p.outcome, true
}

func (p *Probe) boot() model.BootOutcome {
	start := time.Now()
	outcome := p.fetch(p.opts.BootTimeout)

	live := p.whileLive(func() {
		p.outcome = &outcome
		p.slot.Publish(outcome.Status)
	})
	if !live {
		p.logger.Debug("boot probe abandoned", zap.String("reason", outcome.Reason))
		return outcome
	}

	if p.opts.Recorder != nil {
		p.opts.Recorder.RecordBoot(outcome.Reason, time.Since(start))
	}

	if outcome.Succeeded() {
		p.logger.Info("cluster boot succeeded",
			zap.String("version", outcome.Status.Version()),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		p.logger.Warn("cluster boot failed, continuing in degraded mode",
			zap.String("reason", outcome.Reason),
			zap.Error(outcome.Err),
		)
	}
	return outcome
}

// fetch performs one status call bounded by timeout and the probe lifetime.
func (p *Probe) fetch(timeout time.Duration) model.BootOutcome {
	ctx, cancel := context.WithTimeout(p.lifetime, timeout)
	defer cancel()

	cfg, err := p.fetcher.FetchConfig(ctx)
	if err != nil {
		return model.Failed(classify(ctx, err), err)
	}
	return model.Succeeded(model.ClusterStatus{
		Reachable: true,
		Config:    cfg,
		CheckedAt: time.Now(),
	})
}

// classify maps a status call failure to a boot failure reason.
func classify(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return model.ReasonTimeout
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return model.ReasonCanceled
	case errors.Is(err, apierrors.ErrMalformedPayload):
		return model.ReasonMalformed
	}
	if ce, ok := apierrors.AsClusterError(err); ok && ce.StatusCode != 0 {
		return fmt.Sprintf("unexpected status %d", ce.StatusCode)
	}
	return model.ReasonNetwork
}

// Refresh re-reads the cluster configuration and updates the slot. It never touches the boot
// outcome.
func (p *Probe) Refresh(ctx context.Context) error {
	if _, ok := p.cached(); !ok {
		return ErrNotBooted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.lifetime, cancel)
	defer stop()

	cfg, err := p.fetcher.FetchConfig(ctx)
	if ctx.Err() != nil {
		return context.Canceled
	}

	live := p.whileLive(func() {
		if err != nil {
			p.slot.MarkUnreachable(classify(ctx, err))
			return
		}
		p.slot.Publish(model.ClusterStatus{
			Reachable: true,
			Config:    cfg,
			CheckedAt: time.Now(),
		})
	})
	if !live {
		return context.Canceled
	}
	return err
}

// Watch refreshes the slot at the cluster's advertised refresh interval until ctx is done or the
// probe is closed.
func (p *Probe) Watch(ctx context.Context) {
	for {
		interval := p.opts.RefreshInterval
		if st, ok := p.slot.Get(); ok {
			interval = st.Config.Refresh(interval)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.lifetime.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := p.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Debug("status refresh failed", zap.Error(err))
		}
	}
}
