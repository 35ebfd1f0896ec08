package playback

import (
	"context"
	"sync"
	"time"
)

// Controller issues transport commands to a position source.
type Controller interface {
	Play()
	Pause()
	Toggle()
	Restart()
}

// Clock is a local position source that advances with wall time while playing.
// It stands in for a media embed when none is connected.
type Clock struct {
	mu        sync.Mutex
	now       func() time.Time
	playing   bool
	base      int64
	startedAt time.Time
}

// NewClock returns a paused clock at position 0.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Position returns the elapsed playback time in milliseconds.
func (c *Clock) Position() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Clock) positionLocked() int64 {
	if !c.playing {
		return c.base
	}
	return c.base + c.now().Sub(c.startedAt).Milliseconds()
}

// Playing reports whether the clock is advancing.
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Play starts or resumes the clock.
func (c *Clock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	c.playing = true
	c.startedAt = c.now()
}

// Pause freezes the clock at its current position.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.base = c.positionLocked()
	c.playing = false
}

// Toggle switches between playing and paused.
func (c *Clock) Toggle() {
	if c.Playing() {
		c.Pause()
		return
	}
	c.Play()
}

// Restart rewinds to 0 and plays.
func (c *Clock) Restart() {
	c.Seek(0)
	c.Play()
}

// Seek moves to positionMs, keeping the play state.
func (c *Clock) Seek(positionMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = positionMs
	c.startedAt = c.now()
}

// Run reports the clock position every interval until ctx is done.
func (c *Clock) Run(ctx context.Context, interval time.Duration, report func(positionMs int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report(c.Position())
		}
	}
}
