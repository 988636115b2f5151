package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRecorder struct {
	mu         sync.Mutex
	shown      int
	suppressed int
}

func (r *countingRecorder) RecordNotification(shown bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if shown {
		r.shown++
	} else {
		r.suppressed++
	}
}

func TestCenter_MaxStack(t *testing.T) {
	c := NewCenter(1, 0, nil, zap.NewNop())

	assert.True(t, c.Notify(LevelError, "Server Response Message:", "first"))
	assert.True(t, c.Notify(LevelError, "Server Response Message:", "second"))

	list := c.List()
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Message)
}

func TestCenter_NewestFirst(t *testing.T) {
	c := NewCenter(3, 0, nil, zap.NewNop())

	c.Notify(LevelInfo, "t", "1")
	c.Notify(LevelInfo, "t", "2")
	c.Notify(LevelInfo, "t", "3")
	c.Notify(LevelInfo, "t", "4")

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "4", list[0].Message)
	assert.Equal(t, "2", list[2].Message)
}

func TestCenter_Dedup(t *testing.T) {
	rec := &countingRecorder{}
	c := NewCenter(5, 50*time.Millisecond, rec, zap.NewNop())

	assert.True(t, c.Notify(LevelError, "Cluster", "unreachable"))
	assert.False(t, c.Notify(LevelError, "Cluster", "unreachable"))
	assert.True(t, c.Notify(LevelError, "Cluster", "other"))
	assert.Len(t, c.List(), 2)

	time.Sleep(80 * time.Millisecond)
	assert.True(t, c.Notify(LevelError, "Cluster", "unreachable"))

	assert.Equal(t, 3, rec.shown)
	assert.Equal(t, 1, rec.suppressed)
}

func TestCenter_Dismiss(t *testing.T) {
	c := NewCenter(3, 0, nil, zap.NewNop())
	c.Notify(LevelWarning, "a", "1")
	c.Notify(LevelWarning, "b", "2")

	list := c.List()
	require.Len(t, list, 2)

	assert.True(t, c.Dismiss(list[1].ID))
	assert.False(t, c.Dismiss(list[1].ID))

	remaining := c.List()
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0].Title)
}

func TestCenter_ConcurrentNotify(t *testing.T) {
	c := NewCenter(1, time.Minute, nil, zap.NewNop())

	var wg sync.WaitGroup
	shown := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shown <- c.Notify(LevelError, "Cluster", "unreachable")
		}()
	}
	wg.Wait()
	close(shown)

	count := 0
	for s := range shown {
		if s {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, c.List(), 1)
}
