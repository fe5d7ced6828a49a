package presence

import "github.com/spatialmeet/cli/internal/realtime"

// Participant is one user present in the room, with last-known position and
// audio toggles.
type Participant struct {
	ID          int64
	DisplayName string
	Position    realtime.Position
	Audio       realtime.AudioState
}

// AudioChange is a partial audio-state update; nil fields are left as-is.
type AudioChange struct {
	MicrophoneEnabled *bool
	SpeakerEnabled    *bool
	Volume            *int
}

// Apply merges the change into an audio state.
func (c AudioChange) Apply(state realtime.AudioState) realtime.AudioState {
	if c.MicrophoneEnabled != nil {
		state.MicrophoneEnabled = *c.MicrophoneEnabled
	}
	if c.SpeakerEnabled != nil {
		state.SpeakerEnabled = *c.SpeakerEnabled
	}
	if c.Volume != nil {
		state.Volume = *c.Volume
	}
	return state
}

// DefaultAudioState matches the server's initial toggles for a fresh join.
func DefaultAudioState() realtime.AudioState {
	return realtime.AudioState{
		MicrophoneEnabled: true,
		SpeakerEnabled:    true,
		Volume:            50,
	}
}
