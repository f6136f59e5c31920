package service

import (
	"context"
	"errors"
	"fmt"

	"coderoom/internal/repository"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrAccessDenied        = errors.New("access denied to this room")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrInvalidMode         = errors.New("invalid mode")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrNotJoined      = errors.New("not joined to this room")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrFileNotFound   = errors.New("file not found")
	ErrUserNotFound   = errors.New("user not found")
)

// ErrorCode maps an error to the stable code sent to clients
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, ErrAccessDenied):
		return "AccessDenied"
	case errors.Is(err, ErrNotAuthorized):
		return "NotAuthorized"
	case errors.Is(err, ErrInvalidMode):
		return "InvalidMode"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailable"
	case errors.Is(err, ErrNotJoined):
		return "NotJoined"
	case errors.Is(err, ErrInvalidPayload):
		return "InvalidPayload"
	case errors.Is(err, ErrUnknownEvent):
		return "UnknownEvent"
	case errors.Is(err, ErrFileNotFound):
		return "FileNotFound"
	case errors.Is(err, ErrUserNotFound):
		return "UserNotFound"
	default:
		return "Internal"
	}
}

// upstream classifies a collaborator failure. Not-found results map to
// notFound; everything else, timeouts included, is ErrUpstreamUnavailable.
func upstream(op string, err error, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) && notFound != nil {
		return notFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out", ErrUpstreamUnavailable, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
