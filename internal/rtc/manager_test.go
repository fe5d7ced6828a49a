package rtc

import (
	"sync"
	"testing"

	pion "github.com/pion/webrtc/v4"
	"github.com/spatialmeet/cli/internal/config"
	"github.com/spatialmeet/cli/internal/realtime"
)

type sentSignal struct {
	target int64
	sig    *realtime.Signal
}

type signalRecorder struct {
	mu   sync.Mutex
	sent []sentSignal
}

func (r *signalRecorder) send(target int64, sig *realtime.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentSignal{target: target, sig: sig})
}

func (r *signalRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.sent))
	for i, s := range r.sent {
		kinds[i] = s.sig.Kind
	}
	return kinds
}

func testICEConfig() *config.Config {
	return &config.Config{STUNServer: config.DefaultSTUN}
}

func TestLowerIDInitiates(t *testing.T) {
	rec := &signalRecorder{}
	m := NewManager(testICEConfig(), 1, rec.send, func(int64, realtime.Position) {})
	defer m.Close()

	m.PeerJoined(2)

	var sawOffer bool
	for _, kind := range rec.kinds() {
		if kind == "offer" {
			sawOffer = true
		}
	}
	if !sawOffer {
		t.Errorf("lower id should have sent an offer, sent %v", rec.kinds())
	}
}

func TestHigherIDWaitsForOffer(t *testing.T) {
	rec := &signalRecorder{}
	m := NewManager(testICEConfig(), 5, rec.send, func(int64, realtime.Position) {})
	defer m.Close()

	m.PeerJoined(3)

	if kinds := rec.kinds(); len(kinds) != 0 {
		t.Errorf("higher id must wait for the peer's offer, sent %v", kinds)
	}
}

func TestOfferProducesAnswer(t *testing.T) {
	caller, err := newPeerConnection(testICEConfig())
	if err != nil {
		t.Fatalf("peer connection: %v", err)
	}
	defer caller.Close()
	if _, err := caller.CreateDataChannel(channelLabel, nil); err != nil {
		t.Fatalf("data channel: %v", err)
	}
	offer, err := createOffer(caller)
	if err != nil {
		t.Fatalf("offer: %v", err)
	}

	rec := &signalRecorder{}
	m := NewManager(testICEConfig(), 2, rec.send, func(int64, realtime.Position) {})
	defer m.Close()

	m.HandleSignal(1, &realtime.Signal{Kind: "offer", SDP: offer.SDP})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	var answered bool
	for _, s := range rec.sent {
		if s.sig.Kind == "answer" {
			answered = true
			if s.target != 1 {
				t.Errorf("answer addressed to %d, expected 1", s.target)
			}
			if s.sig.SDP == "" {
				t.Error("answer carries no SDP")
			}
		}
	}
	if !answered {
		t.Errorf("offer should produce an answer, sent %v", len(rec.sent))
	}
}

func TestSignalsForUnknownPeerIgnored(t *testing.T) {
	rec := &signalRecorder{}
	m := NewManager(testICEConfig(), 2, rec.send, func(int64, realtime.Position) {})
	defer m.Close()

	m.HandleSignal(9, &realtime.Signal{Kind: "answer", SDP: "v=0"})
	m.HandleSignal(9, &realtime.Signal{Kind: "candidate", ICECandidate: map[string]any{"candidate": "x"}})
	m.HandleSignal(9, &realtime.Signal{Kind: "renegotiate"})

	if kinds := rec.kinds(); len(kinds) != 0 {
		t.Errorf("unknown-peer signals must be dropped, sent %v", kinds)
	}
}

func TestPeerLeftUnknownIsNoop(t *testing.T) {
	m := NewManager(testICEConfig(), 1, func(int64, *realtime.Signal) {}, func(int64, realtime.Position) {})
	m.PeerLeft(7)
	m.Close()
	m.Close()
}

func TestParseCandidate(t *testing.T) {
	ice, err := parseCandidate(&realtime.Signal{Kind: "candidate"})
	if err != nil || ice != nil {
		t.Errorf("missing candidate payload should be nil, got %v %v", ice, err)
	}

	init := pion.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 4242 typ host"}
	ice, err = parseCandidate(&realtime.Signal{Kind: "candidate", ICECandidate: init})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ice.Candidate != init.Candidate {
		t.Errorf("candidate mangled: %q", ice.Candidate)
	}
}

func TestPositionTickRoundTrip(t *testing.T) {
	want := realtime.Position{X: 12.5, Y: 88, Z: 1}
	data, err := encodeTick(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeTick(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Errorf("round trip changed position: %+v", got)
	}

	if _, err := decodeTick([]byte("not msgpack")); err == nil {
		t.Error("garbage tick should not decode")
	}
}
