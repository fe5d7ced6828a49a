package room

import (
	"sync"
	"time"

	"github.com/spatialmeet/cli/internal/presence"
	"github.com/spatialmeet/cli/internal/realtime"
)

// Transport is the outbound half of a live room connection. Satisfied by
// *realtime.Session.
type Transport interface {
	Publish(destination string, msg *realtime.Message)
}

// Publisher turns local intent into outbound state frames without flooding
// the channel. Sends are coalesced to at most one per window; within a
// window the last value wins and superseded values are discarded, never
// queued. Every frame carries the combined position+audio envelope, which
// is what the server broadcasts back out.
type Publisher struct {
	mu        sync.Mutex
	transport Transport
	dest      string
	userID    int64
	window    time.Duration

	position realtime.Position
	audio    realtime.AudioState

	pending bool
	dirty   bool
	timer   *time.Timer
	closed  bool
}

// NewPublisher creates a publisher for one room session. Initial position
// and audio state seed the first envelope.
func NewPublisher(transport Transport, dest string, userID int64, window time.Duration, pos realtime.Position, audio realtime.AudioState) *Publisher {
	return &Publisher{
		transport: transport,
		dest:      dest,
		userID:    userID,
		window:    window,
		position:  pos,
		audio:     audio,
	}
}

// clampCoord saturates a canvas coordinate into [0,100]. Out-of-canvas drag
// gestures are common and must degrade to the boundary, not fail.
func clampCoord(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// NotePositionChange records a local move and schedules a send.
func (p *Publisher) NotePositionChange(x, y float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position.X = clampCoord(x)
	p.position.Y = clampCoord(y)
	p.schedule()
}

// NoteAudioStateChange merges a partial audio update and schedules a send.
func (p *Publisher) NoteAudioStateChange(change presence.AudioChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audio = change.Apply(p.audio)
	p.schedule()
}

// Announce publishes the current state immediately, bypassing coalescing.
// Used right after subscribing so other participants see us without waiting
// for the first input.
func (p *Publisher) Announce() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.send()
}

// Position returns the last noted (clamped) position.
func (p *Publisher) Position() realtime.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Audio returns the last noted audio state.
func (p *Publisher) Audio() realtime.AudioState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio
}

// Rebind points the publisher at a fresh transport after a reconnect.
func (p *Publisher) Rebind(transport Transport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transport = transport
}

// schedule sends now when idle, otherwise marks the coalescing window dirty
// so the latest value goes out when it elapses. Caller holds p.mu.
func (p *Publisher) schedule() {
	if p.closed {
		return
	}
	if p.pending {
		p.dirty = true
		return
	}
	p.send()
	p.pending = true
	p.timer = time.AfterFunc(p.window, p.windowElapsed)
}

func (p *Publisher) windowElapsed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if !p.dirty {
		p.pending = false
		return
	}
	p.dirty = false
	p.send()
	p.timer = time.AfterFunc(p.window, p.windowElapsed)
}

// send publishes the combined envelope. Caller holds p.mu. Fire and forget:
// the transport swallows sends on a dead connection.
func (p *Publisher) send() {
	pos := p.position
	audio := p.audio
	p.transport.Publish(p.dest, &realtime.Message{
		Type:       realtime.MessageTypeSend,
		UserID:     p.userID,
		Position:   &pos,
		AudioState: &audio,
	})
}

// Close stops the coalescing timer. Pending superseded values are dropped.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
	}
}
