package api

// Room is the server's room representation.
type Room struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	RoomCode            string `json:"roomCode"`
	MaxParticipants     int    `json:"maxParticipants"`
	CurrentParticipants int    `json:"currentParticipants"`
	Private             bool   `json:"private"`
}

// AtCapacity reports whether the room advertises no free slots. Capacity is
// enforced server-side; this value is advisory for the client.
func (r *Room) AtCapacity() bool {
	return r.MaxParticipants > 0 && r.CurrentParticipants >= r.MaxParticipants
}

// SignInRequest is the body for POST /auth/signin.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignUpRequest is the body for POST /auth/signup.
type SignUpRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// AuthResponse is the server's answer to a successful sign-in.
type AuthResponse struct {
	Token       string `json:"token"`
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// GuestSession is the temporary identity issued by POST /guest/enter. The
// session token is an opaque string, not a JWT.
type GuestSession struct {
	GuestID      string `json:"guestId"`
	DisplayName  string `json:"displayName"`
	SessionToken string `json:"sessionToken"`
	Message      string `json:"message"`
}

// CreateRoomRequest is the body for POST /rooms.
type CreateRoomRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	MaxParticipants int    `json:"maxParticipants"`
	Private         bool   `json:"isPrivate"`
}
