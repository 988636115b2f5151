package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apierrors "github.com/devrev/flink-dashboard/internal/errors"
	"github.com/devrev/flink-dashboard/internal/model"
	"github.com/devrev/flink-dashboard/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fetcherFunc func(ctx context.Context) (*model.ClusterConfig, error)

func (f fetcherFunc) FetchConfig(ctx context.Context) (*model.ClusterConfig, error) {
	return f(ctx)
}

// recordingRouter records activations and the slot contents at activation time.
type recordingRouter struct {
	mu          sync.Mutex
	slot        *status.Slot
	activations []model.BootOutcome
	slotAtCall  []bool
	err         error
}

func (r *recordingRouter) Activate(outcome model.BootOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, published := r.slot.Get()
	r.activations = append(r.activations, outcome)
	r.slotAtCall = append(r.slotAtCall, published)
	return r.err
}

func (r *recordingRouter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.activations)
}

func setup(t *testing.T, f fetcherFunc) (*Orchestrator, *recordingRouter, *status.Slot) {
	t.Helper()
	slot := status.NewSlot(nil)
	probe := status.NewProbe(f, slot, status.Options{BootTimeout: time.Second}, zap.NewNop())
	t.Cleanup(probe.Close)

	router := &recordingRouter{slot: slot}
	return New(probe, router, zap.NewNop()), router, slot
}

func TestRun_ActivatesOnceAfterBoot(t *testing.T) {
	tests := []struct {
		name      string
		fetch     fetcherFunc
		succeeded bool
		reason    string
	}{
		{
			name: "success",
			fetch: func(ctx context.Context) (*model.ClusterConfig, error) {
				return &model.ClusterConfig{FlinkVersion: "1.2.3"}, nil
			},
			succeeded: true,
		},
		{
			name: "network failure",
			fetch: func(ctx context.Context) (*model.ClusterConfig, error) {
				return nil, &apierrors.ClusterError{Kind: apierrors.KindUnreachable, Cause: errors.New("connection refused")}
			},
			reason: model.ReasonNetwork,
		},
		{
			name: "malformed payload",
			fetch: func(ctx context.Context) (*model.ClusterConfig, error) {
				return nil, apierrors.ErrMalformedPayload
			},
			reason: model.ReasonMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, router, slot := setup(t, tt.fetch)
			assert.Equal(t, Initializing, orch.State())

			outcome, err := orch.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.succeeded, outcome.Succeeded())
			assert.Equal(t, tt.reason, outcome.Reason)
			assert.Equal(t, Ready, orch.State())

			require.Equal(t, 1, router.count())
			assert.True(t, router.slotAtCall[0], "slot must be published before activation")
			assert.Equal(t, outcome, router.activations[0])

			st, ok := slot.Get()
			require.True(t, ok)
			assert.Equal(t, tt.succeeded, st.Reachable)

			again, err := orch.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, outcome, again)
			assert.Equal(t, 1, router.count())
		})
	}
}

func TestRun_SucceededCarriesVersion(t *testing.T) {
	orch, _, slot := setup(t, func(ctx context.Context) (*model.ClusterConfig, error) {
		return &model.ClusterConfig{FlinkVersion: "1.2.3"}, nil
	})

	outcome, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", outcome.Status.Version())

	st, _ := slot.Get()
	assert.Equal(t, "1.2.3", st.Version())
}

func TestRun_ConcurrentCallersActivateOnce(t *testing.T) {
	orch, router, _ := setup(t, func(ctx context.Context) (*model.ClusterConfig, error) {
		time.Sleep(10 * time.Millisecond)
		return &model.ClusterConfig{}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orch.Run(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, router.count())
}

func TestRun_CanceledBeforeBootResolves(t *testing.T) {
	release := make(chan struct{})
	orch, router, _ := setup(t, func(ctx context.Context) (*model.ClusterConfig, error) {
		<-release
		return &model.ClusterConfig{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := orch.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, router.count())
	assert.Equal(t, Initializing, orch.State())

	close(release)
	_, err = orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, router.count())
}

func TestRun_ActivationErrorIsFatal(t *testing.T) {
	orch, router, _ := setup(t, func(ctx context.Context) (*model.ClusterConfig, error) {
		return &model.ClusterConfig{}, nil
	})
	router.err = errors.New("route table conflict")

	_, err := orch.Run(context.Background())
	assert.ErrorContains(t, err, "route table conflict")
	assert.Equal(t, Initializing, orch.State())

	_, err = orch.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, router.count())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "initializing", Initializing.String())
	assert.Equal(t, "ready", Ready.String())
}
