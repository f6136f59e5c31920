package model

import "encoding/json"

// ProtocolVersion is the current wire protocol version
const ProtocolVersion = 1

// EventType names an inbound or outbound message kind
type EventType string

// Inbound (client -> server)
const (
	EventJoin         EventType = "join"
	EventSendMessage  EventType = "send-message"
	EventUserTyping   EventType = "user-typing"
	EventStopTyping   EventType = "stop-typing"
	EventAddFeedback  EventType = "add-feedback"
	EventCodeChange   EventType = "code-change"
	EventToggleMode   EventType = "toggle-mode"
	EventFileUploaded EventType = "file-uploaded"
	EventFileDeleted  EventType = "file-deleted"
	EventLeave        EventType = "leave"
)

// Outbound (server -> client)
const (
	EventRoomData        EventType = "room-data"
	EventChatHistory     EventType = "chat-history"
	EventModeStatus      EventType = "mode-status"
	EventUserJoined      EventType = "user-joined"
	EventUserLeft        EventType = "user-left"
	EventNewMessage      EventType = "new-message"
	EventTypingIndicator EventType = "typing-indicator"
	EventTypingStopped   EventType = "typing-stopped"
	EventFeedbackAdded   EventType = "feedback-added"
	EventCodeUpdate      EventType = "code-update"
	EventModeChanged     EventType = "mode-changed"
	EventNewFile         EventType = "new-file"
	EventFileRemoved     EventType = "file-removed"
	EventError           EventType = "error"
)

// InboundEvents lists every kind a client may send
var InboundEvents = []EventType{
	EventJoin, EventSendMessage, EventUserTyping, EventStopTyping, EventAddFeedback,
	EventCodeChange, EventToggleMode, EventFileUploaded, EventFileDeleted, EventLeave,
}

// Inbound reports whether clients are allowed to send t
func (t EventType) Inbound() bool {
	for _, e := range InboundEvents {
		if e == t {
			return true
		}
	}
	return false
}

// InboundMessage is the client envelope
type InboundMessage struct {
	Version int             `json:"v,omitempty"`
	Type    EventType       `json:"type"`
	RoomID  string          `json:"roomId"`
	UserID  string          `json:"userId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into dst. An empty payload leaves dst untouched.
func (m *InboundMessage) Decode(dst interface{}) error {
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(m.Payload, dst)
}

// OutboundMessage is the server envelope
type OutboundMessage struct {
	Type    EventType   `json:"type"`
	RoomID  string      `json:"roomId,omitempty"`
	Payload interface{} `json:"payload"`
}

// Inbound payloads

type SendMessagePayload struct {
	Text string `json:"text"`
}

type AddFeedbackPayload struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

type CodeChangePayload struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type ToggleModePayload struct {
	Mode Mode `json:"mode"`
}

type FilePayload struct {
	FileID string `json:"fileId"`
}

// Outbound payloads

// RoomData is the room-state snapshot sent to a joining connection
type RoomData struct {
	RoomID             string          `json:"roomId"`
	Name               string          `json:"name"`
	Code               string          `json:"code"`
	Language           string          `json:"language"`
	Mode               Mode            `json:"mode"`
	Participants       []Participant   `json:"participants"`
	Owner              UserProfile     `json:"owner"`
	OwnerRole          OwnerRole       `json:"ownerRole"`
	UserRole           ParticipantRole `json:"userRole"`
	CanEdit            bool            `json:"canEdit"`
	ProblemTitle       string          `json:"problemTitle,omitempty"`
	ProblemDescription string          `json:"problemDescription,omitempty"`
	TimeComplexity     string          `json:"timeComplexity,omitempty"`
	SpaceComplexity    string          `json:"spaceComplexity,omitempty"`
}

type ChatHistory struct {
	Events []ChatEvent `json:"events"`
}

type ModeStatus struct {
	Mode    Mode   `json:"mode"`
	Message string `json:"message"`
}

// JoinedUser describes the participant announced in user-joined
type JoinedUser struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Avatar string          `json:"avatar,omitempty"`
	Role   ParticipantRole `json:"role"`
}

type UserJoined struct {
	User         JoinedUser    `json:"user"`
	Participants []Participant `json:"participants"`
}

type UserLeft struct {
	UserID       string        `json:"userId"`
	Participants []Participant `json:"participants"`
}

type TypingIndicator struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type TypingStopped struct {
	UserID string `json:"userId"`
}

type CodeUpdate struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type ModeChanged struct {
	Mode    Mode   `json:"mode"`
	Message string `json:"message"`
}

type NewFile struct {
	File *FileMeta `json:"file"`
}

type FileRemoved struct {
	FileID string `json:"fileId"`
}

// ErrorPayload is delivered only to the connection that caused it
type ErrorPayload struct {
	Message string    `json:"message"`
	Code    string    `json:"code"`
	Event   EventType `json:"event,omitempty"`
}
