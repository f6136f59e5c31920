package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"coderoom/internal/model"
	"coderoom/internal/repository"

	"github.com/rs/zerolog/log"
)

// CreateRoomInput is what an owner supplies when opening a room
type CreateRoomInput struct {
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	OwnerRole           model.OwnerRole `json:"ownerRole"`
	Mode                model.Mode      `json:"mode,omitempty"`
	Language            string          `json:"language,omitempty"`
	AllowedParticipants []string        `json:"allowedParticipants,omitempty"`
	ProblemTitle        string          `json:"problemTitle,omitempty"`
	ProblemDescription  string          `json:"problemDescription,omitempty"`
	TimeComplexity      string          `json:"timeComplexity,omitempty"`
	SpaceComplexity     string          `json:"spaceComplexity,omitempty"`
}

// RoomService handles room lifecycle operations outside a live session
type RoomService struct {
	roomRepo repository.RoomRepo
	identity ProfileResolver
	timeout  time.Duration
}

// NewRoomService creates a new room service
func NewRoomService(roomRepo repository.RoomRepo, identity ProfileResolver, timeout time.Duration) *RoomService {
	return &RoomService{
		roomRepo: roomRepo,
		identity: identity,
		timeout:  timeout,
	}
}

// CreateRoom opens a new room owned by ownerID
func (s *RoomService) CreateRoom(ctx context.Context, ownerID string, in *CreateRoomInput) (*model.Room, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPayload)
	}
	if in.OwnerRole == "" {
		in.OwnerRole = model.OwnerRoleTeacher
	}
	if !in.OwnerRole.Valid() {
		return nil, fmt.Errorf("%w: unknown owner role %q", ErrInvalidPayload, in.OwnerRole)
	}
	if in.Mode != "" && !in.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, in.Mode)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	// Retry on the rare code collision between generation and insert
	for attempts := 0; attempts < 3; attempts++ {
		code, err := s.generateRoomCode(ctx)
		if err != nil {
			return nil, err
		}

		room := &model.Room{
			RoomID:              code,
			Name:                in.Name,
			Description:         in.Description,
			OwnerID:             ownerID,
			OwnerRole:           in.OwnerRole,
			AllowedParticipants: dedupe(in.AllowedParticipants, ownerID),
			Mode:                in.Mode,
			Language:            in.Language,
			ProblemTitle:        in.ProblemTitle,
			ProblemDescription:  in.ProblemDescription,
			TimeComplexity:      in.TimeComplexity,
			SpaceComplexity:     in.SpaceComplexity,
		}
		err = s.roomRepo.Create(ctx, room)
		if errors.Is(err, repository.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, upstream("create room", err, nil)
		}

		log.Info().Str("module", "rooms").Str("room", room.RoomID).Str("owner", ownerID).
			Str("mode", string(room.Mode)).Msg("room created")
		return room, nil
	}
	return nil, fmt.Errorf("failed to generate unique room code")
}

// GetRoom returns the room if userID owns it or is on its allowed list
func (s *RoomService) GetRoom(ctx context.Context, roomID, userID string) (*model.Room, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	room, err := s.roomRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, upstream("load room", err, ErrRoomNotFound)
	}
	if !room.IsAllowed(userID) {
		return nil, ErrAccessDenied
	}
	return room, nil
}

// InviteParticipant adds participantID to the room's allowed list. Owner only.
func (s *RoomService) InviteParticipant(ctx context.Context, roomID, ownerID, participantID string) (*model.Room, error) {
	if participantID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidPayload)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	room, err := s.roomRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, upstream("load room", err, ErrRoomNotFound)
	}
	if !room.IsOwner(ownerID) {
		return nil, fmt.Errorf("%w: only the owner can invite", ErrNotAuthorized)
	}
	if s.identity != nil {
		if _, err := s.identity.ResolveProfile(ctx, participantID); err != nil {
			return nil, err
		}
	}

	room, err = s.roomRepo.AddAllowedParticipant(ctx, roomID, participantID)
	if err != nil {
		return nil, upstream("invite participant", err, ErrRoomNotFound)
	}
	return room, nil
}

// generateRoomCode creates a 6-char alphanumeric code
func (s *RoomService) generateRoomCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		exists, err := s.roomRepo.Exists(ctx, codeStr)
		if err != nil {
			return "", upstream("check room code", err, nil)
		}
		if !exists {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique room code")
}

func dedupe(ids []string, skip string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == skip || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
