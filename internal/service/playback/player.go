// Package playback owns the single audio output slot. The orchestrator is
// the only writer: no two clips are ever audible at once, and starting a
// clip always silences the previous one first.
package playback

import (
	"context"
	"log"
	"sync"
)

// Kind distinguishes what is being spoken, mostly for logging and for the
// client to style the visualizer.
type Kind string

const (
	KindFiller Kind = "filler"
	KindReply  Kind = "reply"
)

// Clip is one piece of playable audio.
type Clip struct {
	SessionID string
	Kind      Kind
	Data      []byte
	Format    string
}

// Sink renders a clip. Play blocks until the clip finishes or ctx is
// canceled; cancellation means barge-in and must stop output promptly.
type Sink interface {
	Play(ctx context.Context, clip Clip) error
}

// Player serializes access to the sink. Play and Stop may be called from
// any goroutine.
type Player struct {
	sink Sink

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	playing Kind
}

// NewPlayer wraps a sink.
func NewPlayer(sink Sink) *Player {
	return &Player{sink: sink}
}

// Play stops whatever is currently playing, then starts the clip in the
// background. It does not wait for the clip to finish.
func (p *Player) Play(clip Clip) {
	if len(clip.Data) == 0 {
		return
	}

	p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.playing = clip.Kind
	p.mu.Unlock()

	go func() {
		defer close(done)
		if err := p.sink.Play(ctx, clip); err != nil && ctx.Err() == nil {
			log.Printf("[playback] %s clip failed session=%s: %v", clip.Kind, clip.SessionID, err)
		}

		p.mu.Lock()
		if p.done == done {
			p.cancel = nil
			p.done = nil
			p.playing = ""
		}
		p.mu.Unlock()
	}()
}

// Stop cancels the current clip, if any, and waits for the sink to let go
// of the output. Safe to call when idle.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.playing = ""
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Playing reports the kind of clip currently in the slot, or "" when idle.
func (p *Player) Playing() Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
