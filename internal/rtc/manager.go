package rtc

import (
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"
	"github.com/spatialmeet/cli/internal/config"
	"github.com/spatialmeet/cli/internal/realtime"
)

const channelLabel = "presence"

// SignalSender relays a signaling frame to one participant via the server.
type SignalSender func(target int64, sig *realtime.Signal)

// PositionSink receives fast-path position ticks from peers.
type PositionSink func(id int64, pos realtime.Position)

// link is one negotiated peer connection plus its presence data channel.
type link struct {
	pc        *pion.PeerConnection
	dc        *pion.DataChannel
	pending   []pion.ICECandidateInit
	remoteSet bool
}

// Manager maintains one direct peer link per remote participant. The side
// with the lower user id initiates; signaling frames travel through the
// room's server relay. Each link carries a msgpack position-tick channel,
// a lower-latency complement to the server broadcast. Links are best
// effort: when negotiation fails the server path still delivers state.
type Manager struct {
	cfg     *config.Config
	localID int64
	send    SignalSender
	sink    PositionSink

	mu      sync.Mutex
	links   map[int64]*link
	lastPos realtime.Position
	closed  bool
}

func NewManager(cfg *config.Config, localID int64, send SignalSender, sink PositionSink) *Manager {
	return &Manager{
		cfg:     cfg,
		localID: localID,
		send:    send,
		sink:    sink,
		links:   make(map[int64]*link),
	}
}

// PeerJoined starts negotiation with a new participant when we are the
// designated initiator. Otherwise we wait for their offer.
func (m *Manager) PeerJoined(id int64) {
	if m.localID >= id {
		return
	}

	m.mu.Lock()
	if m.closed || m.links[id] != nil {
		m.mu.Unlock()
		return
	}

	pc, err := newPeerConnection(m.cfg)
	if err != nil {
		m.mu.Unlock()
		slog.Debug("peer link setup failed", "peer", id, "error", err)
		return
	}
	l := &link{pc: pc}
	m.links[id] = l
	m.mu.Unlock()

	m.wireICE(pc, id)

	dc, err := pc.CreateDataChannel(channelLabel, nil)
	if err != nil {
		slog.Debug("create data channel failed", "peer", id, "error", err)
		m.PeerLeft(id)
		return
	}
	m.wireChannel(dc, id, l)

	offer, err := createOffer(pc)
	if err != nil {
		slog.Debug("offer failed", "peer", id, "error", err)
		m.PeerLeft(id)
		return
	}
	m.send(id, &realtime.Signal{Kind: "offer", SDP: offer.SDP})
}

// HandleSignal processes a relayed offer, answer or ICE candidate.
func (m *Manager) HandleSignal(from int64, sig *realtime.Signal) {
	switch sig.Kind {
	case "offer":
		m.handleOffer(from, sig)
	case "answer":
		m.handleAnswer(from, sig)
	case "candidate":
		m.handleCandidate(from, sig)
	default:
		slog.Debug("dropping signal with unknown kind", "kind", sig.Kind)
	}
}

func (m *Manager) handleOffer(from int64, sig *realtime.Signal) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if old := m.links[from]; old != nil {
		old.pc.Close()
		delete(m.links, from)
	}

	pc, err := newPeerConnection(m.cfg)
	if err != nil {
		m.mu.Unlock()
		slog.Debug("peer link setup failed", "peer", from, "error", err)
		return
	}
	l := &link{pc: pc}
	m.links[from] = l
	m.mu.Unlock()

	m.wireICE(pc, from)
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != channelLabel {
			return
		}
		m.wireChannel(dc, from, l)
	})

	answer, err := createAnswer(pc, sig.SDP)
	if err != nil {
		slog.Debug("answer failed", "peer", from, "error", err)
		m.PeerLeft(from)
		return
	}
	m.drainCandidates(l)
	m.send(from, &realtime.Signal{Kind: "answer", SDP: answer.SDP})
}

func (m *Manager) handleAnswer(from int64, sig *realtime.Signal) {
	m.mu.Lock()
	l := m.links[from]
	m.mu.Unlock()
	if l == nil {
		return
	}

	desc := pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sig.SDP}
	if err := l.pc.SetRemoteDescription(desc); err != nil {
		slog.Debug("set answer failed", "peer", from, "error", err)
		return
	}
	m.drainCandidates(l)
}

func (m *Manager) handleCandidate(from int64, sig *realtime.Signal) {
	ice, err := parseCandidate(sig)
	if err != nil || ice == nil {
		if err != nil {
			slog.Debug("bad ICE candidate", "peer", from, "error", err)
		}
		return
	}

	m.mu.Lock()
	l := m.links[from]
	if l == nil {
		m.mu.Unlock()
		return
	}
	if !l.remoteSet {
		// Candidates can arrive before the description; queue them.
		l.pending = append(l.pending, *ice)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if err := l.pc.AddICECandidate(*ice); err != nil {
		slog.Debug("add ICE candidate failed", "peer", from, "error", err)
	}
}

func (m *Manager) drainCandidates(l *link) {
	m.mu.Lock()
	l.remoteSet = true
	pending := l.pending
	l.pending = nil
	m.mu.Unlock()

	for _, ice := range pending {
		if err := l.pc.AddICECandidate(ice); err != nil {
			slog.Debug("add queued ICE candidate failed", "error", err)
		}
	}
}

func (m *Manager) wireICE(pc *pion.PeerConnection, peer int64) {
	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		m.send(peer, &realtime.Signal{Kind: "candidate", ICECandidate: c.ToJSON()})
	})
}

func (m *Manager) wireChannel(dc *pion.DataChannel, peer int64, l *link) {
	dc.OnOpen(func() {
		m.mu.Lock()
		l.dc = dc
		pos := m.lastPos
		m.mu.Unlock()

		// Let the peer catch up with where we are.
		if data, err := encodeTick(pos); err == nil {
			dc.Send(data)
		}
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		pos, err := decodeTick(msg.Data)
		if err != nil {
			slog.Debug("bad position tick", "peer", peer, "error", err)
			return
		}
		// The link identifies the sender; payload ids are not trusted.
		m.sink(peer, pos)
	})
}

// NotePosition broadcasts a position tick over every open link.
func (m *Manager) NotePosition(pos realtime.Position) {
	m.mu.Lock()
	m.lastPos = pos
	channels := make([]*pion.DataChannel, 0, len(m.links))
	for _, l := range m.links {
		if l.dc != nil && l.dc.ReadyState() == pion.DataChannelStateOpen {
			channels = append(channels, l.dc)
		}
	}
	m.mu.Unlock()

	data, err := encodeTick(pos)
	if err != nil {
		return
	}
	for _, dc := range channels {
		dc.Send(data)
	}
}

// PeerLeft closes and forgets the participant's link.
func (m *Manager) PeerLeft(id int64) {
	m.mu.Lock()
	l := m.links[id]
	delete(m.links, id)
	m.mu.Unlock()

	if l != nil {
		l.pc.Close()
	}
}

// Close tears down every link. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	links := m.links
	m.links = make(map[int64]*link)
	m.mu.Unlock()

	for _, l := range links {
		l.pc.Close()
	}
}
