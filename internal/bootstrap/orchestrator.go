// Package bootstrap sequences startup: the cluster status is probed once, and only then is the
// routed dashboard activated.
package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/devrev/flink-dashboard/internal/model"
	"go.uber.org/zap"
)

// State is the orchestrator lifecycle state.
type State int32

const (
	Initializing State = iota
	Ready
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Booter resolves the one-shot boot probe.
type Booter interface {
	Boot(ctx context.Context) model.BootOutcome
}

// Router mounts the routed views. Activate is called exactly once.
type Router interface {
	Activate(outcome model.BootOutcome) error
}

// Orchestrator runs the boot probe and then activates the router.
type Orchestrator struct {
	booter Booter
	router Router
	logger *zap.Logger

	state atomic.Int32

	mu      sync.Mutex
	done    bool
	outcome model.BootOutcome
	err     error
}

// New creates an orchestrator in the Initializing state.
func New(booter Booter, router Router, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		booter: booter,
		router: router,
		logger: logger,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Run waits for the boot outcome and activates the router with it, whether the boot succeeded or
// not. A failed boot is reported as degraded, not as an error. If ctx ends (or the probe is closed)
// before the boot resolves, nothing is activated and the cancellation is returned; Run may then be
// called again. Once activation has happened, further calls return the first result.
func (o *Orchestrator) Run(ctx context.Context) (model.BootOutcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done {
		return o.outcome, o.err
	}

	outcome := o.booter.Boot(ctx)
	if outcome.Reason == model.ReasonCanceled {
		o.logger.Info("startup canceled before the cluster probe resolved")
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		return outcome, outcome.Error()
	}

	o.done = true
	o.outcome = outcome
	if err := o.router.Activate(outcome); err != nil {
		o.err = fmt.Errorf("activate routes: %w", err)
		o.logger.Error("route activation failed", zap.Error(err))
		return o.outcome, o.err
	}

	o.state.Store(int32(Ready))
	if outcome.Succeeded() {
		o.logger.Info("dashboard ready", zap.String("flink_version", outcome.Status.Version()))
	} else {
		o.logger.Warn("dashboard ready in degraded mode", zap.String("reason", outcome.Reason))
	}
	return o.outcome, nil
}
