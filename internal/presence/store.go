package presence

import (
	"log/slog"

	"github.com/spatialmeet/cli/internal/realtime"
)

// Store is the authoritative table of participants for the active room.
// Iteration order is first-seen order, stable across updates, so the avatar
// list does not reshuffle on every position tick.
//
// The store itself is not synchronized; the room session controller owns it
// and serializes all mutations.
type Store struct {
	byID  map[int64]*Participant
	order []int64
}

func NewStore() *Store {
	return &Store{byID: make(map[int64]*Participant)}
}

// AddOrReplace upserts a participant keyed by ID. Existing entries keep
// their position and audio state; only identity fields are refreshed. Use
// SetPosition/MergeAudio for state, so one event type cannot regress
// another's last-known value.
func (s *Store) AddOrReplace(p Participant) {
	if existing, ok := s.byID[p.ID]; ok {
		existing.DisplayName = p.DisplayName
		return
	}
	s.byID[p.ID] = &p
	s.order = append(s.order, p.ID)
}

// SetPosition updates only the position of an existing participant.
func (s *Store) SetPosition(id int64, pos realtime.Position) {
	if p, ok := s.byID[id]; ok {
		p.Position = pos
	}
}

// MergeAudio updates only the audio state of an existing participant.
func (s *Store) MergeAudio(id int64, state realtime.AudioState) {
	if p, ok := s.byID[id]; ok {
		p.Audio = state
	}
}

// Remove deletes the entry. Removing an id that is not present is a no-op:
// a stray event for a user who already left must not fail.
func (s *Store) Remove(id int64) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the participant, if present.
func (s *Store) Get(id int64) (Participant, bool) {
	p, ok := s.byID[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Len returns the number of tracked participants. This must equal the
// number of rendered avatars at all times.
func (s *Store) Len() int {
	return len(s.byID)
}

// Snapshot returns the participants in first-seen order.
func (s *Store) Snapshot() []Participant {
	out := make([]Participant, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Clear empties the store. No entry may survive into the next room.
func (s *Store) Clear() {
	s.byID = make(map[int64]*Participant)
	s.order = nil
}

// ApplyRemote is the single entry point for inbound room events. Events
// whose userId equals localID are ignored: the local entry is owned by the
// controller and a broadcast fan-out may echo our own frames back.
// Malformed events are dropped with a diagnostic.
func (s *Store) ApplyRemote(msg *realtime.Message, localID int64) {
	switch msg.Type {
	case realtime.MessageTypeUserJoined:
		if msg.User == nil || msg.User.ID == 0 {
			slog.Debug("dropping USER_JOINED without user")
			return
		}
		if msg.User.ID == localID {
			return
		}
		s.AddOrReplace(Participant{
			ID:          msg.User.ID,
			DisplayName: msg.User.DisplayName,
			Audio:       DefaultAudioState(),
		})
		if msg.Position != nil {
			s.SetPosition(msg.User.ID, *msg.Position)
		}
		if msg.AudioState != nil {
			s.MergeAudio(msg.User.ID, *msg.AudioState)
		}

	case realtime.MessageTypeUserLeft:
		if msg.UserID == 0 {
			slog.Debug("dropping USER_LEFT without userId")
			return
		}
		if msg.UserID == localID {
			return
		}
		s.Remove(msg.UserID)

	case realtime.MessageTypePositionUpdate:
		if msg.UserID == 0 {
			slog.Debug("dropping POSITION_UPDATE without userId")
			return
		}
		if msg.UserID == localID {
			return
		}
		if msg.Position != nil {
			s.SetPosition(msg.UserID, *msg.Position)
		}
		if msg.AudioState != nil {
			s.MergeAudio(msg.UserID, *msg.AudioState)
		}

	case realtime.MessageTypeAudioStateChange:
		if msg.UserID == 0 {
			slog.Debug("dropping AUDIO_STATE_CHANGE without userId")
			return
		}
		if msg.UserID == localID {
			return
		}
		if msg.AudioState != nil {
			s.MergeAudio(msg.UserID, *msg.AudioState)
		}

	default:
		slog.Debug("dropping event with unknown type", "type", msg.Type)
	}
}
