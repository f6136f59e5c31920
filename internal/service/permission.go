package service

import "coderoom/internal/model"

// CanEdit decides whether userID may change the room's code. It must be
// evaluated against a freshly loaded room, never a cached copy.
func CanEdit(room *model.Room, userID string) bool {
	return room.IsOwner(userID) || room.Mode == model.ModeInterview
}

// CanChangeMode reports whether userID may toggle the room mode
func CanChangeMode(room *model.Room, userID string) bool {
	return room.IsOwner(userID)
}

// CanAddFeedback reports whether userID may post inline feedback
func CanAddFeedback(room *model.Room, userID string) bool {
	return room.IsOwner(userID)
}

// ModeChangedMessage is the banner broadcast after a mode toggle
func ModeChangedMessage(mode model.Mode) string {
	if mode == model.ModeTeaching {
		return "Switched to Teaching Mode - Read only"
	}
	return "Switched to Interview Mode - Collaborative editing enabled"
}

// ModeStatusMessage describes the current mode to a joining participant
func ModeStatusMessage(mode model.Mode) string {
	if mode == model.ModeTeaching {
		return "Teaching Mode: Participants are read-only"
	}
	return "Interview Mode: Both can edit"
}
