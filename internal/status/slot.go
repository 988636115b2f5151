// Package status owns the cluster status: the one-shot boot probe and the shared slot the rest of
// the dashboard reads it from.
package status

import (
	"sync"
	"time"

	"github.com/devrev/flink-dashboard/internal/model"
)

// ReachabilityRecorder observes reachability transitions.
type ReachabilityRecorder interface {
	SetClusterReachable(reachable bool)
}

// Slot holds the latest ClusterStatus. It is written by the probe and by reachability updates
// from the interceptor chain; everything else only reads it.
type Slot struct {
	mu        sync.RWMutex
	current   model.ClusterStatus
	published bool
	subs      map[int]chan model.ClusterStatus
	nextID    int
	recorder  ReachabilityRecorder
}

// NewSlot creates an empty slot. recorder may be nil.
func NewSlot(recorder ReachabilityRecorder) *Slot {
	return &Slot{
		subs:     make(map[int]chan model.ClusterStatus),
		recorder: recorder,
	}
}

// Get returns the current status and whether one has been published yet.
func (s *Slot) Get() (model.ClusterStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.published
}

// Publish replaces the current status and notifies subscribers.
func (s *Slot) Publish(st model.ClusterStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(st)
}

// MarkUnreachable flags the cluster unreachable, keeping the last known configuration.
// It is a no-op before the first Publish or when already unreachable.
func (s *Slot) MarkUnreachable(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.published || !s.current.Reachable {
		return
	}
	next := s.current
	next.Reachable = false
	next.Error = reason
	next.CheckedAt = time.Now()
	s.setLocked(next)
}

// MarkReachable clears an unreachable flag. It is a no-op before the first Publish.
func (s *Slot) MarkReachable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.published || s.current.Reachable {
		return
	}
	next := s.current
	next.Reachable = true
	next.Error = ""
	next.CheckedAt = time.Now()
	s.setLocked(next)
}

// Subscribe returns a channel receiving every subsequent status. Slow subscribers miss updates
// rather than blocking writers. cancel releases the subscription.
func (s *Slot) Subscribe(buffer int) (<-chan model.ClusterStatus, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan model.ClusterStatus, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Slot) setLocked(st model.ClusterStatus) {
	s.current = st
	s.published = true

	if s.recorder != nil {
		s.recorder.SetClusterReachable(st.Reachable)
	}
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
		}
	}
}
