package status

import (
	"testing"

	"github.com/devrev/flink-dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gaugeRecorder struct {
	values []bool
}

func (g *gaugeRecorder) SetClusterReachable(reachable bool) {
	g.values = append(g.values, reachable)
}

func TestSlot_ReachabilityBeforeBootIsIgnored(t *testing.T) {
	slot := NewSlot(nil)

	slot.MarkUnreachable("connection refused")
	slot.MarkReachable()

	_, ok := slot.Get()
	assert.False(t, ok)
}

func TestSlot_MarkTransitions(t *testing.T) {
	gauge := &gaugeRecorder{}
	slot := NewSlot(gauge)
	cfg := &model.ClusterConfig{FlinkVersion: "1.19.0"}

	slot.Publish(model.ClusterStatus{Reachable: true, Config: cfg})

	slot.MarkUnreachable("connection refused")
	slot.MarkUnreachable("connection refused again")

	st, ok := slot.Get()
	require.True(t, ok)
	assert.False(t, st.Reachable)
	assert.Equal(t, "connection refused", st.Error)
	assert.Same(t, cfg, st.Config)

	slot.MarkReachable()
	st, _ = slot.Get()
	assert.True(t, st.Reachable)
	assert.Empty(t, st.Error)

	assert.Equal(t, []bool{true, false, true}, gauge.values)
}

func TestSlot_Subscribe(t *testing.T) {
	slot := NewSlot(nil)
	updates, cancel := slot.Subscribe(2)

	slot.Publish(model.ClusterStatus{Reachable: true})
	slot.MarkUnreachable("down")

	first := <-updates
	second := <-updates
	assert.True(t, first.Reachable)
	assert.False(t, second.Reachable)

	cancel()
	cancel()

	_, open := <-updates
	assert.False(t, open)

	// publishing after cancel must not panic
	slot.Publish(model.ClusterStatus{Reachable: true})
}

func TestSlot_SlowSubscriberDoesNotBlock(t *testing.T) {
	slot := NewSlot(nil)
	_, cancel := slot.Subscribe(1)
	defer cancel()

	for i := 0; i < 10; i++ {
		slot.Publish(model.ClusterStatus{Reachable: i%2 == 0})
	}

	st, _ := slot.Get()
	assert.False(t, st.Reachable)
}
