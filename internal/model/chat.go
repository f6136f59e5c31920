package model

import "time"

// ChatKind distinguishes chat messages from owner feedback in the room log
type ChatKind string

const (
	ChatKindMessage  ChatKind = "message"
	ChatKindFeedback ChatKind = "feedback"
)

// ChatEvent is one entry of a room's chat/feedback log
type ChatEvent struct {
	ID         string    `json:"id"`
	Kind       ChatKind  `json:"kind"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar,omitempty"`
	Text       string    `json:"text"`
	Line       *int      `json:"line,omitempty"` // feedback only
	Timestamp  time.Time `json:"timestamp"`
}
