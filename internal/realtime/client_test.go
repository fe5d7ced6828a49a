package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spatialmeet/cli/internal/config"
)

const testToken = "tok"

// newTestServer runs a websocket endpoint that checks the bearer header and
// hands the upgraded connection to the handler.
func newTestServer(t *testing.T, handler func(*websocket.Conn)) *config.Config {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))
	t.Cleanup(srv.Close)

	return &config.Config{
		WebSocketURL:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectAttempts: 1,
	}
}

func TestDialSubscribesAndDelivers(t *testing.T) {
	cfg := newTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		var sub Message
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if sub.Type != MessageTypeSubscribe || sub.Destination != Topic(7) {
			t.Errorf("unexpected first frame: %+v", sub)
		}

		conn.WriteJSON(&Message{
			Type: MessageTypeUserJoined,
			User: &UserInfo{ID: 2, DisplayName: "Bo"},
		})

		// Frames without a type must be dropped, not break the stream.
		conn.WriteMessage(websocket.TextMessage, []byte(`{"userId": 9}`))

		conn.WriteJSON(&Message{Type: MessageTypeUserLeft, UserID: 2})

		// Keep the connection up until the client is done.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s, err := Dial(context.Background(), cfg, 7, testToken)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer s.Close()

	first := receive(t, s)
	if first.Type != MessageTypeUserJoined || first.User == nil || first.User.ID != 2 {
		t.Errorf("unexpected first event: %+v", first)
	}

	second := receive(t, s)
	if second.Type != MessageTypeUserLeft || second.UserID != 2 {
		t.Errorf("malformed frame was not dropped, got: %+v", second)
	}
}

func receive(t *testing.T, s *Session) *Message {
	t.Helper()
	select {
	case msg, ok := <-s.Events():
		if !ok {
			t.Fatal("event stream closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func TestPublish(t *testing.T) {
	got := make(chan *Message, 1)
	cfg := newTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		var sub Message
		conn.ReadJSON(&sub)

		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		got <- &msg

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s, err := Dial(context.Background(), cfg, 7, testToken)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer s.Close()

	pos := Position{X: 30, Y: 40}
	s.Publish(StateDestination(7), &Message{Type: MessageTypeSend, UserID: 1, Position: &pos})

	select {
	case msg := <-got:
		if msg.Destination != StateDestination(7) {
			t.Errorf("wrong destination %q", msg.Destination)
		}
		if msg.Position == nil || msg.Position.X != 30 {
			t.Errorf("payload lost: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("published frame never arrived")
	}
}

func TestDialUnauthorized(t *testing.T) {
	cfg := newTestServer(t, func(conn *websocket.Conn) { conn.Close() })

	_, err := Dial(context.Background(), cfg, 7, "wrong-token")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDialUnreachable(t *testing.T) {
	cfg := &config.Config{WebSocketURL: "ws://127.0.0.1:1/api/ws"}

	_, err := Dial(context.Background(), cfg, 7, testToken)
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !errors.Is(err, ErrUnreachable) && !errors.Is(err, ErrTimeout) {
		t.Errorf("unexpected error class: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := newTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s, err := Dial(context.Background(), cfg, 7, testToken)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	s.Close()
	s.Close()

	// Publishing on a closed session is a silent no-op.
	s.Publish(StateDestination(7), &Message{Type: MessageTypeSend, UserID: 1})
}

func TestReconnectWithZeroAttemptsFails(t *testing.T) {
	cfg := &config.Config{
		WebSocketURL:      "ws://127.0.0.1:1/api/ws",
		ReconnectAttempts: 0,
	}

	s, err := Reconnect(context.Background(), cfg, 7, testToken)
	if err == nil {
		t.Fatal("expected an error when redial is disabled")
	}
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("unexpected error class: %v", err)
	}
	if s != nil {
		t.Errorf("expected no session, got %v", s)
	}
}

func TestPublishAfterDisconnectIsNoop(t *testing.T) {
	cfg := newTestServer(t, func(conn *websocket.Conn) {
		var sub Message
		conn.ReadJSON(&sub)
		conn.Close() // server drops us
	})

	s, err := Dial(context.Background(), cfg, 7, testToken)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer s.Close()

	// Wait for the read pump to notice the loss.
	for range s.Events() {
	}
	if s.CallerClosed() {
		t.Error("transport loss misreported as caller close")
	}

	s.Publish(StateDestination(7), &Message{Type: MessageTypeSend, UserID: 1})
}
