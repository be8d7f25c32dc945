package audio

import (
	"context"
	"math"
	"sync"
	"time"
)

// Display range for amplitude levels. The raw mean is pushed through a
// power law so quiet speech still moves the meter, then clamped so the
// visualization never collapses to zero or pegs at full scale.
const (
	levelFloor    = 0.1
	levelCeiling  = 0.7
	levelExponent = 1.2
)

// Level converts one frame of frequency-bin bytes (0-255 per bin) into a
// display amplitude in [0,1].
func Level(bins []byte) float64 {
	if len(bins) == 0 {
		return 0
	}

	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	mean := float64(sum) / float64(len(bins))

	value := math.Pow(mean, levelExponent)/255*levelCeiling + levelFloor
	return math.Min(levelCeiling, math.Max(levelFloor, value))
}

// Monitor samples the most recent audio frame at a fixed cadence and
// reports a display level for each sample. Levels are transient: they are
// delivered to the callback and never stored. The callback is invoked from
// a single goroutine, so at most one invocation is in flight at a time.
type Monitor struct {
	interval time.Duration

	mu     sync.Mutex
	frame  []byte
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor sampling at the given cadence.
func NewMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Monitor{interval: interval}
}

// SetFrame replaces the frame the next sample will read.
func (m *Monitor) SetFrame(frame []byte) {
	m.mu.Lock()
	m.frame = append(m.frame[:0], frame...)
	m.mu.Unlock()
}

// Start begins the sampling loop. Calling Start while running restarts it.
func (m *Monitor) Start(onLevel func(level float64)) {
	m.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.mu.Lock()
				frame := append([]byte(nil), m.frame...)
				m.mu.Unlock()

				if len(frame) == 0 {
					continue
				}
				onLevel(Level(frame))
			}
		}
	}()
}

// Stop halts the sampling loop and discards the current frame. Safe to
// call when not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.frame = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
