package chat

// RoomSettings controls what clients may post in a room. SlowMode is
// the minimum number of seconds between messages from one user; zero
// disables it.
type RoomSettings struct {
	AllowImages    bool `json:"allowImages"`
	AllowVideos    bool `json:"allowVideos"`
	AllowGifs      bool `json:"allowGifs"`
	AllowReactions bool `json:"allowReactions"`
	SlowMode       int  `json:"slowMode"`
}

// Room is the metadata for the room this session is attached to.
type Room struct {
	RoomID      string       `json:"roomId"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        string       `json:"type,omitempty"`
	Settings    RoomSettings `json:"settings"`
}
