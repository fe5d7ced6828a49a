package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/spatialmeet/cli/internal/api"
)

type fakeRoomFinder struct {
	rooms []api.Room
	err   error
}

func (f *fakeRoomFinder) ListRooms(ctx context.Context) ([]api.Room, error) {
	return f.rooms, f.err
}

func TestResolveRoomNumericID(t *testing.T) {
	// Numeric targets must not hit the API at all.
	finder := &fakeRoomFinder{err: errors.New("should not be called")}

	id, err := resolveRoom(context.Background(), finder, "42")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestResolveRoomByCode(t *testing.T) {
	finder := &fakeRoomFinder{rooms: []api.Room{
		{ID: 3, RoomCode: "AAAAAA"},
		{ID: 7, RoomCode: "K7KQ2P"},
	}}

	id, err := resolveRoom(context.Background(), finder, "k7kq2p")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 7 {
		t.Errorf("expected case-insensitive code match on 7, got %d", id)
	}
}

func TestResolveRoomUnknownCode(t *testing.T) {
	finder := &fakeRoomFinder{rooms: []api.Room{{ID: 3, RoomCode: "AAAAAA"}}}

	if _, err := resolveRoom(context.Background(), finder, "ZZZZZZ"); err == nil {
		t.Error("expected an error for an unknown room code")
	}
}

func TestResolveRoomListFailure(t *testing.T) {
	finder := &fakeRoomFinder{err: errors.New("network down")}

	if _, err := resolveRoom(context.Background(), finder, "K7KQ2P"); err == nil {
		t.Error("expected the list failure to surface")
	}
}
