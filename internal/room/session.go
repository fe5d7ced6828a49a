package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/spatialmeet/cli/internal/api"
	"github.com/spatialmeet/cli/internal/auth"
	"github.com/spatialmeet/cli/internal/config"
	"github.com/spatialmeet/cli/internal/presence"
	"github.com/spatialmeet/cli/internal/realtime"
)

var (
	ErrNotIdle       = errors.New("already in a room")
	ErrJoinCancelled = errors.New("join cancelled")
)

// State is the controller's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateJoining
	StateJoined
	StateLeaving
)

// Membership is the REST room-membership collaborator. Satisfied by
// *api.Client.
type Membership interface {
	JoinRoom(ctx context.Context, roomID int64) error
	GetRoom(ctx context.Context, roomID int64) (*api.Room, error)
	LeaveRoom(ctx context.Context, roomID int64) error
}

// TransportSession is one live room connection. Satisfied by
// *realtime.Session.
type TransportSession interface {
	Publish(destination string, msg *realtime.Message)
	Events() <-chan *realtime.Message
	CallerClosed() bool
	Close()
}

// DialFunc opens a transport session for a room.
type DialFunc func(ctx context.Context, roomID int64, token string) (TransportSession, error)

// PeerManager receives roster changes and relayed signaling frames so it
// can maintain direct peer links. Optional.
type PeerManager interface {
	PeerJoined(id int64)
	PeerLeft(id int64)
	HandleSignal(from int64, sig *realtime.Signal)
	NotePosition(pos realtime.Position)
	Close()
}

// NoticeKind classifies controller notifications to the UI.
type NoticeKind int

const (
	NoticeRoster NoticeKind = iota
	NoticeUserJoined
	NoticeUserLeft
	NoticeReconnecting
	NoticeDisconnected
)

// Notice is a UI notification. Roster notices mean "re-render the room".
type Notice struct {
	Kind        NoticeKind
	DisplayName string
}

// Controller owns one room membership at a time: the presence store, the
// local user record, the transport session and the outbound publisher. It
// is the only component the rest of the application calls, and the only
// one that mutates the store.
type Controller struct {
	cfg        *config.Config
	creds      *auth.Credentials
	membership Membership
	dial       DialFunc
	redial     DialFunc

	mu         sync.Mutex
	state      State
	room       *api.Room
	local      presence.Participant
	store      *presence.Store
	session    TransportSession
	publisher  *Publisher
	peers      PeerManager
	joinCancel context.CancelFunc
	joinGen    uint64

	notices chan Notice
}

// NewController wires a controller against the real transport. Tests swap
// the dial functions and membership for fakes.
func NewController(cfg *config.Config, creds *auth.Credentials, membership Membership) *Controller {
	return &Controller{
		cfg:        cfg,
		creds:      creds,
		membership: membership,
		store:      presence.NewStore(),
		notices:    make(chan Notice, 16),
		dial: func(ctx context.Context, roomID int64, token string) (TransportSession, error) {
			return realtime.Dial(ctx, cfg, roomID, token)
		},
		redial: func(ctx context.Context, roomID int64, token string) (TransportSession, error) {
			return realtime.Reconnect(ctx, cfg, roomID, token)
		},
	}
}

// SetPeerManager attaches a peer-link manager. Must be called before Join.
func (c *Controller) SetPeerManager(pm PeerManager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers = pm
}

// Notices returns the controller's notification stream. Sends never block;
// under a burst, superseded notices are dropped.
func (c *Controller) Notices() <-chan Notice {
	return c.notices
}

func (c *Controller) notify(n Notice) {
	select {
	case c.notices <- n:
	default:
	}
}

// Join registers room membership over REST, fetches the room detail, opens
// the transport session and seeds the presence store with the local
// participant. On any failure nothing is left behind: no session, empty
// store. A Leave racing a pending Join cancels the join's continuation.
func (c *Controller) Join(ctx context.Context, roomID int64) (*api.Room, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, ErrNotIdle
	}
	c.state = StateJoining
	c.joinGen++
	gen := c.joinGen
	jctx, cancel := context.WithCancel(ctx)
	c.joinCancel = cancel
	c.mu.Unlock()

	room, session, err := c.open(jctx, roomID)
	cancel()

	c.mu.Lock()
	if c.joinGen == gen {
		c.joinCancel = nil
	}

	// A stale generation means Leave cancelled this attempt and another
	// Join may already be in flight.
	if c.state != StateJoining || c.joinGen != gen {
		c.mu.Unlock()
		if session != nil {
			session.Close()
		}
		if err == nil {
			c.leaveBestEffort(roomID)
		}
		return nil, ErrJoinCancelled
	}
	if err != nil {
		c.state = StateIdle
		c.mu.Unlock()
		return nil, err
	}

	c.room = room
	c.local = presence.Participant{
		ID:          c.creds.UserID,
		DisplayName: c.creds.DisplayName,
		Position:    realtime.Position{X: 50, Y: 50},
		Audio:       presence.DefaultAudioState(),
	}
	c.store.AddOrReplace(c.local)
	c.publisher = NewPublisher(session, realtime.StateDestination(roomID), c.local.ID, c.cfg.CoalesceWindow, c.local.Position, c.local.Audio)
	c.session = session
	c.state = StateJoined
	pub := c.publisher
	c.mu.Unlock()

	go c.dispatch(session)
	pub.Announce()
	c.notify(Notice{Kind: NoticeRoster})

	return room, nil
}

// open performs the external join steps: REST join, room detail, transport
// dial. Membership is backed out when a later step fails.
func (c *Controller) open(ctx context.Context, roomID int64) (*api.Room, TransportSession, error) {
	if err := c.membership.JoinRoom(ctx, roomID); err != nil {
		return nil, nil, err
	}

	room, err := c.membership.GetRoom(ctx, roomID)
	if err != nil {
		c.leaveBestEffort(roomID)
		return nil, nil, err
	}

	session, err := c.dial(ctx, roomID, c.creds.Token)
	if err != nil {
		c.leaveBestEffort(roomID)
		return nil, nil, err
	}
	return room, session, nil
}

func (c *Controller) leaveBestEffort(roomID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.membership.LeaveRoom(ctx, roomID); err != nil {
		slog.Debug("best-effort room leave failed", "room", roomID, "error", err)
	}
}

// Leave tears the session down: REST leave, transport close, store clear.
// No-op when idle. During a pending join it cancels the join instead.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateIdle, StateLeaving:
		c.mu.Unlock()
		return nil
	case StateJoining:
		c.state = StateIdle
		cancel := c.joinCancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}

	c.state = StateLeaving
	roomID := c.room.ID
	session := c.session
	pub := c.publisher
	peers := c.peers
	c.mu.Unlock()

	if peers != nil {
		peers.Close()
	}
	pub.Close()
	session.Close()

	err := c.membership.LeaveRoom(ctx, roomID)

	c.mu.Lock()
	c.store.Clear()
	c.session = nil
	c.publisher = nil
	c.room = nil
	c.state = StateIdle
	c.mu.Unlock()

	return err
}

// dispatch consumes one session's inbound stream until it closes, then
// decides between reconnect and implicit leave.
func (c *Controller) dispatch(session TransportSession) {
	for msg := range session.Events() {
		c.apply(session, msg)
	}
	if session.CallerClosed() {
		return
	}
	c.handleDisconnect(session)
}

// apply routes one inbound frame. Store mutations happen under the
// controller mutex; this goroutine is the only writer besides local input.
func (c *Controller) apply(session TransportSession, msg *realtime.Message) {
	c.mu.Lock()
	if c.state != StateJoined || c.session != session {
		c.mu.Unlock()
		return
	}
	localID := c.local.ID
	peers := c.peers

	if msg.Type == realtime.MessageTypeSignal {
		c.mu.Unlock()
		if peers != nil && msg.UserID != localID && msg.Signal != nil {
			peers.HandleSignal(msg.UserID, msg.Signal)
		}
		return
	}

	// A replayed USER_JOINED for a known participant must not re-toast.
	var alreadyKnown bool
	if msg.Type == realtime.MessageTypeUserJoined && msg.User != nil {
		_, alreadyKnown = c.store.Get(msg.User.ID)
	}

	// Capture the display name before USER_LEFT removes the entry.
	var leftName string
	if msg.Type == realtime.MessageTypeUserLeft {
		if msg.User != nil {
			leftName = msg.User.DisplayName
		} else if p, ok := c.store.Get(msg.UserID); ok {
			leftName = p.DisplayName
		}
	}

	c.store.ApplyRemote(msg, localID)
	c.mu.Unlock()

	switch msg.Type {
	case realtime.MessageTypeUserJoined:
		if msg.User != nil && msg.User.ID != localID {
			if peers != nil {
				peers.PeerJoined(msg.User.ID)
			}
			if !alreadyKnown {
				c.notify(Notice{Kind: NoticeUserJoined, DisplayName: msg.User.DisplayName})
			}
		}
	case realtime.MessageTypeUserLeft:
		if msg.UserID != 0 && msg.UserID != localID {
			if peers != nil {
				peers.PeerLeft(msg.UserID)
			}
			c.notify(Notice{Kind: NoticeUserLeft, DisplayName: leftName})
		}
	}
	c.notify(Notice{Kind: NoticeRoster})
}

// handleDisconnect runs after an unexpected transport loss while joined.
// A bounded-backoff redial is attempted; when it fails the session becomes
// an implicit leave so the user can rejoin explicitly.
func (c *Controller) handleDisconnect(session TransportSession) {
	c.mu.Lock()
	if c.state != StateJoined || c.session != session {
		c.mu.Unlock()
		return
	}
	roomID := c.room.ID
	c.mu.Unlock()

	c.notify(Notice{Kind: NoticeReconnecting})
	fresh, err := c.redial(context.Background(), roomID, c.creds.Token)

	c.mu.Lock()
	if c.state != StateJoined || c.session != session {
		// The user left while we were redialing.
		c.mu.Unlock()
		if err == nil {
			fresh.Close()
		}
		return
	}

	if err != nil {
		peers := c.peers
		pub := c.publisher
		c.store.Clear()
		c.session = nil
		c.publisher = nil
		c.room = nil
		c.state = StateIdle
		c.mu.Unlock()

		if peers != nil {
			peers.Close()
		}
		pub.Close()
		c.leaveBestEffort(roomID)
		c.notify(Notice{Kind: NoticeDisconnected})
		return
	}

	c.session = fresh
	c.publisher.Rebind(fresh)
	pub := c.publisher
	c.mu.Unlock()

	go c.dispatch(fresh)
	pub.Announce()
	c.notify(Notice{Kind: NoticeRoster})
}

// UpdateLocalPosition moves the local avatar. The store entry updates
// immediately so the user's own avatar never waits on a round trip; the
// publisher takes care of the network side.
func (c *Controller) UpdateLocalPosition(x, y float64) {
	c.mu.Lock()
	if c.state != StateJoined {
		c.mu.Unlock()
		return
	}
	c.local.Position.X = clampCoord(x)
	c.local.Position.Y = clampCoord(y)
	c.store.SetPosition(c.local.ID, c.local.Position)
	pub := c.publisher
	peers := c.peers
	pos := c.local.Position
	c.mu.Unlock()

	pub.NotePositionChange(x, y)
	if peers != nil {
		peers.NotePosition(pos)
	}
	c.notify(Notice{Kind: NoticeRoster})
}

// UpdateLocalAudio applies a partial audio change locally and publishes it.
func (c *Controller) UpdateLocalAudio(change presence.AudioChange) {
	c.mu.Lock()
	if c.state != StateJoined {
		c.mu.Unlock()
		return
	}
	c.local.Audio = change.Apply(c.local.Audio)
	c.store.MergeAudio(c.local.ID, c.local.Audio)
	pub := c.publisher
	c.mu.Unlock()

	pub.NoteAudioStateChange(change)
	c.notify(Notice{Kind: NoticeRoster})
}

// ApplyPeerPosition ingests a fast-path position tick received over a
// direct peer link. Self ticks cannot occur (links are keyed by remote id)
// but are guarded anyway.
func (c *Controller) ApplyPeerPosition(id int64, pos realtime.Position) {
	c.mu.Lock()
	if c.state != StateJoined || id == c.local.ID {
		c.mu.Unlock()
		return
	}
	c.store.SetPosition(id, pos)
	c.mu.Unlock()
	c.notify(Notice{Kind: NoticeRoster})
}

// SendSignal relays a peer-link signaling frame through the server.
func (c *Controller) SendSignal(target int64, sig *realtime.Signal) {
	c.mu.Lock()
	if c.state != StateJoined {
		c.mu.Unlock()
		return
	}
	session := c.session
	roomID := c.room.ID
	localID := c.local.ID
	c.mu.Unlock()

	session.Publish(realtime.SignalDestination(roomID), &realtime.Message{
		Type:   realtime.MessageTypeSend,
		UserID: localID,
		Target: target,
		Signal: sig,
	})
}

// State returns the controller's lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Room returns the joined room, nil when idle.
func (c *Controller) Room() *api.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// Local returns the local user's current record.
func (c *Controller) Local() presence.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// Snapshot returns all participants in first-seen order.
func (c *Controller) Snapshot() []presence.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Participants returns the store size, which must match the rendered
// avatar count.
func (c *Controller) Participants() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}
