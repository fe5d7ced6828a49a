package realtime

import "strconv"

// Position is a point on the room canvas. X and Y are canonically in
// [0,100]; Z is reserved.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// AudioState holds a participant's audio toggles.
type AudioState struct {
	MicrophoneEnabled bool `json:"microphoneEnabled"`
	SpeakerEnabled    bool `json:"speakerEnabled"`
	Volume            int  `json:"volume"`
}

// UserInfo identifies a participant on the wire.
type UserInfo struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
}

// Message represents all WebSocket frames exchanged with the server.
// Client control frames carry Destination; room events carry UserID and the
// optional state payloads.
type Message struct {
	Type        string      `json:"type"`
	Destination string      `json:"destination,omitempty"`
	UserID      int64       `json:"userId,omitempty"`
	User        *UserInfo   `json:"user,omitempty"`
	Position    *Position   `json:"position,omitempty"`
	AudioState  *AudioState `json:"audioState,omitempty"`
	Target      int64       `json:"target,omitempty"`
	Signal      *Signal     `json:"signal,omitempty"`
}

// Message type constants.
const (
	MessageTypeSubscribe = "SUBSCRIBE"
	MessageTypeSend      = "SEND"

	MessageTypeUserJoined       = "USER_JOINED"
	MessageTypeUserLeft         = "USER_LEFT"
	MessageTypePositionUpdate   = "POSITION_UPDATE"
	MessageTypeAudioStateChange = "AUDIO_STATE_CHANGE"
	MessageTypeSignal           = "SIGNAL"
)

// Topic is the subscription destination for a room's event stream.
func Topic(roomID int64) string {
	return "/topic/room/" + strconv.FormatInt(roomID, 10)
}

// StateDestination is the publish destination for a participant's combined
// position/audio envelope.
func StateDestination(roomID int64) string {
	return "/app/room/" + strconv.FormatInt(roomID, 10) + "/position"
}

// SignalDestination is the publish destination for peer-link signaling.
func SignalDestination(roomID int64) string {
	return "/app/room/" + strconv.FormatInt(roomID, 10) + "/signal"
}

// Signal carries WebRTC session negotiation data relayed via the server.
type Signal struct {
	Kind         string `json:"kind"` // "offer", "answer" or "candidate"
	SDP          string `json:"sdp,omitempty"`
	ICECandidate any    `json:"ice_candidate,omitempty"`
}
