package middleware

import (
	"context"
	"sync"
	"time"
)

// ThrottleConfig bounds login attempts per key
type ThrottleConfig struct {
	// MaxAttempts is the number of failed attempts allowed in a window
	MaxAttempts int
	// Window is how long failed attempts are remembered
	Window time.Duration
}

// DefaultThrottleConfig allows 5 failed attempts per minute
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{MaxAttempts: 5, Window: time.Minute}
}

func (c ThrottleConfig) withDefaults() ThrottleConfig {
	d := DefaultThrottleConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	return c
}

// MemoryThrottle counts failed login attempts per key in process memory
// using fixed windows that start at the first failure.
type MemoryThrottle struct {
	config  ThrottleConfig
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

type window struct {
	attempts int
	resetAt  time.Time
}

// NewMemoryThrottle creates an in-memory login throttle
func NewMemoryThrottle(config ThrottleConfig) *MemoryThrottle {
	return &MemoryThrottle{
		config:  config.withDefaults(),
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// TooManyAttempts reports whether key is locked out and for how long
func (t *MemoryThrottle) TooManyAttempts(ctx context.Context, key string) (bool, time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[key]
	now := t.now()
	if !ok || !now.Before(w.resetAt) {
		return false, 0, nil
	}
	if w.attempts < t.config.MaxAttempts {
		return false, 0, nil
	}
	return true, w.resetAt.Sub(now), nil
}

// Hit records a failed attempt for key
func (t *MemoryThrottle) Hit(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	w, ok := t.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(t.config.Window)}
		t.windows[key] = w
	}
	w.attempts++
	return nil
}

// Clear forgets the attempts of key
func (t *MemoryThrottle) Clear(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, key)
	return nil
}

// Cleanup removes expired windows
func (t *MemoryThrottle) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, w := range t.windows {
		if !now.Before(w.resetAt) {
			delete(t.windows, key)
		}
	}
}

// StartCleanup removes expired windows every window until ctx is done
func (t *MemoryThrottle) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(t.config.Window)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (t *MemoryThrottle) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}
