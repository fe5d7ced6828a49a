package room

import (
	"sync"
	"testing"
	"time"

	"github.com/spatialmeet/cli/internal/presence"
	"github.com/spatialmeet/cli/internal/realtime"
)

// recordingTransport captures published frames for assertions.
type recordingTransport struct {
	mu     sync.Mutex
	frames []*realtime.Message
}

func (r *recordingTransport) Publish(destination string, msg *realtime.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.Destination = destination
	r.frames = append(r.frames, msg)
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recordingTransport) last() *realtime.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

func newTestPublisher(tr Transport, window time.Duration) *Publisher {
	return NewPublisher(tr, realtime.StateDestination(7), 1, window,
		realtime.Position{X: 50, Y: 50}, presence.DefaultAudioState())
}

func TestPositionClamping(t *testing.T) {
	tr := &recordingTransport{}
	p := newTestPublisher(tr, time.Millisecond)

	p.NotePositionChange(-5, 150)

	pos := p.Position()
	if pos.X != 0 || pos.Y != 100 {
		t.Errorf("expected saturation to (0,100), got (%v,%v)", pos.X, pos.Y)
	}

	p.NotePositionChange(42, 73.5)
	pos = p.Position()
	if pos.X != 42 || pos.Y != 73.5 {
		t.Errorf("in-range values must pass through, got (%v,%v)", pos.X, pos.Y)
	}
}

func TestCombinedEnvelope(t *testing.T) {
	tr := &recordingTransport{}
	p := newTestPublisher(tr, time.Millisecond)

	mic := false
	p.NoteAudioStateChange(presence.AudioChange{MicrophoneEnabled: &mic})

	frame := tr.last()
	if frame == nil {
		t.Fatal("no frame published")
	}
	if frame.Position == nil || frame.AudioState == nil {
		t.Fatal("envelope must carry both position and audio state")
	}
	if frame.Position.X != 50 || frame.AudioState.MicrophoneEnabled {
		t.Errorf("envelope content wrong: %+v %+v", frame.Position, frame.AudioState)
	}
	if frame.UserID != 1 {
		t.Errorf("expected userId 1, got %d", frame.UserID)
	}
	if frame.Destination != realtime.StateDestination(7) {
		t.Errorf("wrong destination %q", frame.Destination)
	}
}

func TestCoalescingLastValueWins(t *testing.T) {
	tr := &recordingTransport{}
	p := newTestPublisher(tr, 40*time.Millisecond)

	// A drag gesture: a burst of moves inside one window.
	for x := 0; x <= 30; x++ {
		p.NotePositionChange(float64(x), 50)
	}

	// The first move goes out immediately.
	if tr.count() != 1 {
		t.Fatalf("expected 1 immediate send, got %d", tr.count())
	}

	// After the window elapses, only the final value follows.
	time.Sleep(120 * time.Millisecond)

	if got := tr.count(); got != 2 {
		t.Fatalf("expected 2 sends total, got %d", got)
	}
	if frame := tr.last(); frame.Position.X != 30 {
		t.Errorf("superseded value sent: x=%v, want 30", frame.Position.X)
	}
}

func TestAnnounceBypassesCoalescing(t *testing.T) {
	tr := &recordingTransport{}
	p := newTestPublisher(tr, time.Hour)

	p.NotePositionChange(10, 10)
	p.Announce()

	if tr.count() != 2 {
		t.Errorf("expected announce to send immediately, got %d frames", tr.count())
	}
}

func TestCloseStopsSends(t *testing.T) {
	tr := &recordingTransport{}
	p := newTestPublisher(tr, 10*time.Millisecond)

	p.NotePositionChange(10, 10)
	p.NotePositionChange(20, 20)
	p.Close()

	before := tr.count()
	time.Sleep(50 * time.Millisecond)
	if tr.count() != before {
		t.Error("publisher sent after Close")
	}

	p.NotePositionChange(30, 30)
	p.Announce()
	if tr.count() != before {
		t.Error("closed publisher accepted new sends")
	}
}

func TestRebind(t *testing.T) {
	tr1 := &recordingTransport{}
	tr2 := &recordingTransport{}
	p := newTestPublisher(tr1, time.Millisecond)

	p.Announce()
	p.Rebind(tr2)
	p.Announce()

	if tr1.count() != 1 || tr2.count() != 1 {
		t.Errorf("expected one frame per transport, got %d and %d", tr1.count(), tr2.count())
	}
}
