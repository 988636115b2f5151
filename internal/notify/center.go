// Package notify keeps the bounded, de-duplicated stack of operator notifications.
package notify

import (
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single message shown to the operator.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder observes whether notifications were shown or suppressed.
type Recorder interface {
	RecordNotification(shown bool)
}

// Center holds at most maxStack notifications, oldest evicted first. Identical notifications
// inside the de-duplication window are suppressed.
type Center struct {
	mu       sync.RWMutex
	stack    []Notification
	maxStack int
	seen     gcache.Cache
	window   time.Duration
	recorder Recorder
	logger   *zap.Logger
}

// NewCenter creates a notification center. A non-positive window disables de-duplication.
func NewCenter(maxStack int, window time.Duration, recorder Recorder, logger *zap.Logger) *Center {
	if maxStack <= 0 {
		maxStack = 1
	}
	c := &Center{
		maxStack: maxStack,
		window:   window,
		recorder: recorder,
		logger:   logger,
	}
	if window > 0 {
		c.seen = gcache.New(1024).LRU().Expiration(window).Build()
	}
	return c
}

// Notify pushes a notification and reports whether it was shown.
func (c *Center) Notify(level Level, title, message string) bool {
	key := string(level) + "\x00" + title + "\x00" + message

	c.mu.Lock()
	if c.seen != nil {
		if _, err := c.seen.Get(key); err == nil {
			c.mu.Unlock()
			c.record(false)
			c.logger.Debug("notification suppressed", zap.String("title", title))
			return false
		}
		_ = c.seen.Set(key, struct{}{})
	}

	n := Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
	c.stack = append(c.stack, n)
	if len(c.stack) > c.maxStack {
		c.stack = append([]Notification(nil), c.stack[len(c.stack)-c.maxStack:]...)
	}
	c.mu.Unlock()

	c.record(true)
	c.logger.Info("notification",
		zap.String("level", string(level)),
		zap.String("title", title),
		zap.String("message", message),
	)
	return true
}

// List returns the current notifications, newest first.
func (c *Center) List() []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Notification, len(c.stack))
	for i, n := range c.stack {
		out[len(c.stack)-1-i] = n
	}
	return out
}

// Dismiss removes a notification by ID.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, n := range c.stack {
		if n.ID == id {
			c.stack = append(c.stack[:i:i], c.stack[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Center) record(shown bool) {
	if c.recorder != nil {
		c.recorder.RecordNotification(shown)
	}
}
