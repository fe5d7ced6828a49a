package realtime

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spatialmeet/cli/internal/config"
	"github.com/spatialmeet/cli/internal/dns"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	dialTimeout = 10 * time.Second

	reconnectBaseDelay = 500 * time.Millisecond
	reconnectMaxDelay  = 8 * time.Second
)

// Session manages one live WebSocket connection to a room's event channel.
// Inbound frames are decoded by a single read pump and delivered on Events
// in the order received; there is never more than one frame in flight to
// the consumer.
type Session struct {
	conn     *websocket.Conn
	roomID   int64
	incoming chan *Message
	outgoing chan *Message
	done     chan struct{}

	mu           sync.Mutex
	closed       bool // caller invoked Close
	disconnected bool // pumps stopped
}

// Dial connects to the server's WebSocket endpoint, authenticates with the
// bearer token and subscribes to the room's topic. Errors unwrap to
// ErrUnauthorized, ErrTimeout or ErrUnreachable.
func Dial(ctx context.Context, cfg *config.Config, roomID int64, token string) (*Session, error) {
	u, err := url.Parse(cfg.WebSocketURL)
	if err != nil {
		return nil, newError("parse server URL", err)
	}

	// Custom dialer with robust DNS lookup, falling back to public
	// resolvers when the local one fails.
	dialer := &websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			resolvedIP, err := dns.Lookup(host)
			if err != nil {
				return nil, newError("dns lookup", err)
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(resolvedIP, port))
		},
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, newError("connect", ErrUnauthorized)
		}
		if nErr, ok := err.(net.Error); ok && nErr.Timeout() {
			return nil, newError("connect", ErrTimeout)
		}
		if ctx.Err() != nil {
			return nil, newError("connect", ctx.Err())
		}
		return nil, &SessionError{Op: "connect", Err: ErrUnreachable, Details: err.Error()}
	}

	s := &Session{
		conn:     conn,
		roomID:   roomID,
		incoming: make(chan *Message, 32),
		outgoing: make(chan *Message, 32),
		done:     make(chan struct{}),
	}

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go s.readPump()
	go s.writePump()

	// Scope the event stream to this room before anything else goes out.
	s.outgoing <- &Message{Type: MessageTypeSubscribe, Destination: Topic(roomID)}

	return s, nil
}

// Reconnect redials with bounded exponential backoff. It returns the fresh
// session or an error once attempts are exhausted; zero configured attempts
// fail immediately.
func Reconnect(ctx context.Context, cfg *config.Config, roomID int64, token string) (*Session, error) {
	if cfg.ReconnectAttempts <= 0 {
		return nil, newError("reconnect", ErrUnreachable)
	}

	delay := reconnectBaseDelay
	var lastErr error

	for attempt := 0; attempt < cfg.ReconnectAttempts; attempt++ {
		s, err := Dial(ctx, cfg, roomID, token)
		if err == nil {
			return s, nil
		}
		lastErr = err
		slog.Debug("reconnect attempt failed", "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, newError("reconnect", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
	return nil, lastErr
}

// readPump reads frames from the connection and forwards them in order.
func (s *Session) readPump() {
	defer func() {
		s.markDisconnected()
		s.conn.Close()
		close(s.incoming)
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "" {
			// One bad frame must not break the stream.
			slog.Debug("dropping frame without type")
			continue
		}
		s.incoming <- &msg
	}
}

// writePump writes outbound frames and sends periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message := <-s.outgoing:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Publish sends a frame to the given destination, fire and forget. When the
// session is closed or disconnected the call is a silent no-op.
func (s *Session) Publish(destination string, msg *Message) {
	s.mu.Lock()
	dead := s.closed || s.disconnected
	s.mu.Unlock()
	if dead {
		return
	}

	msg.Destination = destination
	select {
	case s.outgoing <- msg:
	default:
		slog.Debug("outbound buffer full, dropping frame", "destination", destination)
	}
}

// Events returns the serialized inbound frame stream. The channel closes
// when the connection drops or Close is called.
func (s *Session) Events() <-chan *Message {
	return s.incoming
}

// RoomID returns the room this session is subscribed to.
func (s *Session) RoomID() int64 {
	return s.roomID
}

// CallerClosed reports whether teardown was initiated by Close rather than
// a transport failure.
func (s *Session) CallerClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) markDisconnected() {
	s.mu.Lock()
	s.disconnected = true
	s.mu.Unlock()
}

// Close tears the connection down. Idempotent; closing a session that never
// finished opening or is already closed is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
}
