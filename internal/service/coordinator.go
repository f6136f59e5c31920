package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coderoom/internal/model"
	"coderoom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Coordinator owns the live state of every room: presence, chat history and
// the serialized application of room mutations. All work on one room runs
// under that room's lock, so broadcasts leave in mutation order.
type Coordinator struct {
	rooms       repository.RoomRepo
	files       repository.FileRepo
	identity    ProfileResolver
	presence    *PresenceTable
	chat        *ChatBuffer
	locks       *roomLocks
	broadcaster Broadcaster
	timeout     time.Duration

	now   func() time.Time
	newID func() string
}

// NewCoordinator creates a session coordinator. timeout bounds every call to
// the room directory, file directory and identity service.
func NewCoordinator(
	rooms repository.RoomRepo,
	files repository.FileRepo,
	identity ProfileResolver,
	presence *PresenceTable,
	chat *ChatBuffer,
	timeout time.Duration,
) *Coordinator {
	return &Coordinator{
		rooms:    rooms,
		files:    files,
		identity: identity,
		presence: presence,
		chat:     chat,
		locks:    newRoomLocks(),
		timeout:  timeout,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// SetBroadcaster sets the broadcaster for outbound events
func (c *Coordinator) SetBroadcaster(b Broadcaster) {
	c.broadcaster = b
}

// Dispatch routes one inbound event. Any failure is delivered as an error
// event to the sending connection only, and also returned.
func (c *Coordinator) Dispatch(ctx context.Context, sess *Session, msg *model.InboundMessage) error {
	err := c.dispatch(ctx, sess, msg)
	if err != nil {
		c.sendError(sess.ConnID, msg.RoomID, msg.Type, err)
		logger := log.Info()
		if errors.Is(err, ErrUpstreamUnavailable) || ErrorCode(err) == "Internal" {
			logger = log.Warn()
		}
		logger.Str("module", "coordinator").Str("event", string(msg.Type)).Str("room", msg.RoomID).
			Str("conn", sess.ConnID).Str("user", sess.User.ID).Err(err).Msg("event rejected")
	}
	return err
}

func (c *Coordinator) dispatch(ctx context.Context, sess *Session, msg *model.InboundMessage) error {
	if !msg.Type.Inbound() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
	if msg.UserID != "" && msg.UserID != sess.User.ID {
		return fmt.Errorf("%w: cannot act as another user", ErrNotAuthorized)
	}
	if msg.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}

	switch msg.Type {
	case model.EventJoin:
		return c.Join(ctx, sess, msg.RoomID)

	case model.EventSendMessage:
		var p model.SendMessagePayload
		if err := msg.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return c.SendMessage(ctx, sess, msg.RoomID, p.Text)

	case model.EventUserTyping:
		return c.Typing(ctx, sess, msg.RoomID)

	case model.EventStopTyping:
		return c.StopTyping(ctx, sess, msg.RoomID)

	case model.EventAddFeedback:
		var p model.AddFeedbackPayload
		if err := msg.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return c.AddFeedback(ctx, sess, msg.RoomID, p.Line, p.Text)

	case model.EventCodeChange:
		var p model.CodeChangePayload
		if err := msg.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return c.ChangeCode(ctx, sess, msg.RoomID, p.Code, p.Language)

	case model.EventToggleMode:
		var p model.ToggleModePayload
		if err := msg.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return c.ToggleMode(ctx, sess, msg.RoomID, p.Mode)

	case model.EventFileUploaded:
		var p model.FilePayload
		if err := msg.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return c.FileUploaded(ctx, sess, msg.RoomID, p.FileID)

	case model.EventFileDeleted:
		var p model.FilePayload
		if err := msg.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return c.FileDeleted(ctx, sess, msg.RoomID, p.FileID)

	case model.EventLeave:
		return c.Leave(ctx, sess, msg.RoomID)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
}

// Join admits the connection to roomID if its user owns the room or is on
// the allowed list, then sends it the chat history and a room snapshot and
// announces it to everyone else. Joining twice on one connection re-sends
// the snapshots without adding a second presence entry.
func (c *Coordinator) Join(ctx context.Context, sess *Session, roomID string) error {
	unlock, err := c.lockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := c.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	userID := sess.User.ID
	if !room.IsAllowed(userID) {
		return ErrAccessDenied
	}

	role := room.RoleOf(userID)
	added := c.presence.Add(roomID, &PresenceEntry{
		UserID:       userID,
		Name:         sess.User.Name,
		Avatar:       sess.User.Avatar,
		ConnectionID: sess.ConnID,
		Role:         role,
		JoinedAt:     c.now(),
	})
	participants := c.presence.ListParticipants(roomID)
	if added {
		c.persistParticipants(ctx, roomID, participants)
	}

	c.send(sess.ConnID, roomID, model.EventChatHistory, model.ChatHistory{Events: c.chat.Snapshot(roomID)})
	c.send(sess.ConnID, roomID, model.EventRoomData, model.RoomData{
		RoomID:             room.RoomID,
		Name:               room.Name,
		Code:               room.Code,
		Language:           room.Language,
		Mode:               room.Mode,
		Participants:       participants,
		Owner:              c.ownerProfile(ctx, room, sess),
		OwnerRole:          room.OwnerRole,
		UserRole:           role,
		CanEdit:            CanEdit(room, userID),
		ProblemTitle:       room.ProblemTitle,
		ProblemDescription: room.ProblemDescription,
		TimeComplexity:     room.TimeComplexity,
		SpaceComplexity:    room.SpaceComplexity,
	})
	c.send(sess.ConnID, roomID, model.EventModeStatus, model.ModeStatus{
		Mode:    room.Mode,
		Message: ModeStatusMessage(room.Mode),
	})

	if added {
		c.broadcast(roomID, sess.ConnID, model.EventUserJoined, model.UserJoined{
			User: model.JoinedUser{
				ID:     userID,
				Name:   sess.User.Name,
				Avatar: sess.User.Avatar,
				Role:   role,
			},
			Participants: participants,
		})
		log.Info().Str("module", "coordinator").Str("room", roomID).Str("conn", sess.ConnID).
			Str("user", userID).Str("role", string(role)).Int("participants", len(participants)).Msg("participant joined")
	}
	return nil
}

// SendMessage appends a chat message to the room log and delivers it to
// every connection, sender included, so all see the same order
func (c *Coordinator) SendMessage(ctx context.Context, sess *Session, roomID, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message text is required", ErrInvalidPayload)
	}

	unlock, err := c.lockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.requireJoined(roomID, sess); err != nil {
		return err
	}

	ev := c.newChatEvent(sess, model.ChatKindMessage, text)
	c.chat.Append(roomID, ev)
	c.broadcast(roomID, "", model.EventNewMessage, ev)
	return nil
}

// Typing tells the other connections that the user is typing
func (c *Coordinator) Typing(ctx context.Context, sess *Session, roomID string) error {
	unlock, err := c.lockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.requireJoined(roomID, sess); err != nil {
		return err
	}
	c.broadcast(roomID, sess.ConnID, model.EventTypingIndicator, model.TypingIndicator{
		UserID:   sess.User.ID,
		UserName: sess.User.Name,
	})
	return nil
}

// StopTyping tells the other connections that the user stopped typing
func (c *Coordinator) StopTyping(ctx context.Context, sess *Session, roomID string) error {
	unlock, err := c.lockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.requireJoined(roomID, sess); err != nil {
		return err
	}
	c.broadcast(roomID, sess.ConnID, model.EventTypingStopped, model.TypingStopped{UserID: sess.User.ID})
	return nil
}

// AddFeedback posts owner feedback attached to a line of the buffer
func (c *Coordinator) AddFeedback(ctx context.Context, sess *Session, roomID string, line int, text string) error {
	unlock, err := c.lockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.requireJoined(roomID, sess); err != nil {
		return err
	}
	room, err := c.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !CanAddFeedback(room, sess.User.ID) {
		return fmt.Errorf("%w: only the room owner can add feedback", ErrNotAuthorized)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: feedback text is required", ErrInvalidPayload)
	}
	if line < 1 {
		return fmt.Errorf("%w: line must be positive", ErrInvalidPayload)
	}

	ev := c.newChatEvent(sess, model.ChatKindFeedback, text)
	ev.Line = &line
	c.chat.Append(roomID, ev)
	c.broadcast(roomID, "", model.EventFeedbackAdded, ev)
	return nil
}

// ChangeCode replaces the room's buffer (last write wins). Permission is
// checked against the room as stored right now, not as the client last saw it.
func (c *Coordinator) ChangeCode(ctx context.Context, sess *Session, roomID, code, language string) error {
	unlock, err := c.lockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.requireJoined(roomID, sess); err != nil {
		return err
	}
	room, err := c.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !CanEdit(room, sess.User.ID) {
		return fmt.Errorf("%w: you cannot edit in this mode", ErrNotAuthorized)
	}
	if language == "" {
		language = room.Language
	}

	now := c.now()
	if err := c.updateRoom(ctx, roomID, model.RoomUpdate{
		Code:        &code,
		Language:    &language,
		LastUpdated: &now,
	}); err != nil {
		return err
	}

	c.broadcast(roomID, sess.ConnID, model.EventCodeUpdate, model.CodeUpdate{Code: code, Language: language})
	return nil
}

// ToggleMode switches the room between teaching and interview. Owner only.
func (c *Coordinator) ToggleMode(ctx context.Context, sess *Session, roomID string, mode model.Mode) error {
	unlock, err := c.lockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.requireJoined(roomID, sess); err != nil {
		return err
	}
	room, err := c.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !CanChangeMode(room, sess.User.ID) {
		return fmt.Errorf("%w: only the owner can change mode", ErrNotAuthorized)
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	if err := c.updateRoom(ctx, roomID, model.RoomUpdate{Mode: &mode}); err != nil {
		return err
	}

	c.broadcast(roomID, "", model.EventModeChanged, model.ModeChanged{
		Mode:    mode,
		Message: ModeChangedMessage(mode),
	})
	log.Info().Str("module", "coordinator").Str("room", roomID).Str("mode", string(mode)).Msg("mode changed")
	return nil
}

// FileUploaded announces a newly shared file. Metadata is looked up before
// taking the room lock; if the lookup fails the announcement goes out with
// the file id only.
func (c *Coordinator) FileUploaded(ctx context.Context, sess *Session, roomID, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("%w: fileId is required", ErrInvalidPayload)
	}
	if err := c.requireJoined(roomID, sess); err != nil {
		return err
	}

	file, err := c.fileMeta(ctx, fileID)
	switch {
	case errors.Is(err, ErrFileNotFound):
		return err
	case err != nil:
		log.Warn().Str("module", "coordinator").Str("room", roomID).Str("file", fileID).Err(err).
			Msg("file metadata unavailable, announcing id only")
		file = &model.FileMeta{ID: fileID}
	case file.RoomID != "" && file.RoomID != roomID:
		return fmt.Errorf("%w: file belongs to another room", ErrNotAuthorized)
	}

	unlock, err := c.lockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.requireJoined(roomID, sess); err != nil {
		return err
	}
	c.broadcast(roomID, "", model.EventNewFile, model.NewFile{File: file})
	return nil
}

// FileDeleted announces that a shared file was removed
func (c *Coordinator) FileDeleted(ctx context.Context, sess *Session, roomID, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("%w: fileId is required", ErrInvalidPayload)
	}

	unlock, err := c.lockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.requireJoined(roomID, sess); err != nil {
		return err
	}
	c.broadcast(roomID, "", model.EventFileRemoved, model.FileRemoved{FileID: fileID})
	return nil
}

// Leave removes the connection from roomID. Leaving a room the connection
// is not in is a no-op.
func (c *Coordinator) Leave(ctx context.Context, sess *Session, roomID string) error {
	c.leave(ctx, sess.ConnID, roomID)
	return nil
}

// Disconnect leaves every room the connection is in. Safe to call more than
// once and after explicit leaves.
func (c *Coordinator) Disconnect(sess *Session) {
	for _, roomID := range c.presence.RoomsOf(sess.ConnID) {
		c.leave(context.Background(), sess.ConnID, roomID)
	}
}

// leave must always complete, so the lock is awaited without ctx's deadline
func (c *Coordinator) leave(ctx context.Context, connID, roomID string) {
	unlock, _ := c.locks.lock(context.Background(), roomID)
	defer unlock()

	entry, ok := c.presence.Remove(roomID, connID)
	if !ok {
		return
	}
	participants := c.presence.ListParticipants(roomID)
	c.persistParticipants(context.WithoutCancel(ctx), roomID, participants)

	if len(participants) == 0 {
		c.chat.Drop(roomID)
	}
	c.broadcast(roomID, connID, model.EventUserLeft, model.UserLeft{
		UserID:       entry.UserID,
		Participants: participants,
	})
	log.Info().Str("module", "coordinator").Str("room", roomID).Str("conn", connID).
		Str("user", entry.UserID).Int("participants", len(participants)).Msg("participant left")
}

// Participants returns the live participants of roomID
func (c *Coordinator) Participants(roomID string) []model.Participant {
	return c.presence.ListParticipants(roomID)
}

// Stats is a point-in-time view of live state
type Stats struct {
	ActiveRooms       int `json:"activeRooms"`
	ActiveConnections int `json:"activeConnections"`
}

// Stats returns live room and connection counts
func (c *Coordinator) Stats() Stats {
	return Stats{
		ActiveRooms:       c.presence.RoomCount(),
		ActiveConnections: c.presence.ConnectionCount(),
	}
}

// Helpers

func (c *Coordinator) lockRoom(ctx context.Context, roomID string) (func(), error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}
	unlock, err := c.locks.lock(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: room busy: %v", ErrUpstreamUnavailable, err)
	}
	return unlock, nil
}

func (c *Coordinator) requireJoined(roomID string, sess *Session) error {
	if _, ok := c.presence.Get(roomID, sess.ConnID); !ok {
		return ErrNotJoined
	}
	return nil
}

func (c *Coordinator) loadRoom(ctx context.Context, roomID string) (*model.Room, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	room, err := c.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, upstream("load room", err, ErrRoomNotFound)
	}
	return room, nil
}

func (c *Coordinator) updateRoom(ctx context.Context, roomID string, update model.RoomUpdate) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.rooms.Update(ctx, roomID, update); err != nil {
		return upstream("update room", err, ErrRoomNotFound)
	}
	return nil
}

// persistParticipants writes the membership projection. Failure is logged
// and otherwise ignored: presence in memory stays authoritative.
func (c *Coordinator) persistParticipants(ctx context.Context, roomID string, participants []model.Participant) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.rooms.Update(ctx, roomID, model.RoomUpdate{CurrentParticipants: participants}); err != nil {
		log.Warn().Str("module", "coordinator").Str("room", roomID).Err(err).Msg("failed to persist participants")
	}
}

func (c *Coordinator) fileMeta(ctx context.Context, fileID string) (*model.FileMeta, error) {
	if c.files == nil {
		return nil, fmt.Errorf("%w: no file directory", ErrUpstreamUnavailable)
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	file, err := c.files.GetMeta(ctx, fileID)
	if err != nil {
		return nil, upstream("file metadata", err, ErrFileNotFound)
	}
	if file.UploaderID != "" && file.Uploader == nil && c.identity != nil {
		if profile, err := c.identity.ResolveProfile(ctx, file.UploaderID); err == nil {
			file.Uploader = profile
		}
	}
	return file, nil
}

// ownerProfile prefers the joining session, then the identity service,
// and falls back to the bare owner id
func (c *Coordinator) ownerProfile(ctx context.Context, room *model.Room, sess *Session) model.UserProfile {
	if room.IsOwner(sess.User.ID) {
		return sess.User
	}
	if c.identity != nil {
		ctx, cancel := withTimeout(ctx, c.timeout)
		defer cancel()
		profile, err := c.identity.ResolveProfile(ctx, room.OwnerID)
		if err == nil {
			return *profile
		}
		log.Warn().Str("module", "coordinator").Str("room", room.RoomID).Err(err).Msg("owner profile unavailable")
	}
	return model.UserProfile{ID: room.OwnerID}
}

func (c *Coordinator) newChatEvent(sess *Session, kind model.ChatKind, text string) model.ChatEvent {
	return model.ChatEvent{
		ID:         c.newID(),
		Kind:       kind,
		UserID:     sess.User.ID,
		UserName:   sess.User.Name,
		UserAvatar: sess.User.Avatar,
		Text:       text,
		Timestamp:  c.now(),
	}
}

func (c *Coordinator) send(connID, roomID string, t model.EventType, payload interface{}) {
	if c.broadcaster == nil {
		return
	}
	c.broadcaster.SendToConn(connID, &model.OutboundMessage{Type: t, RoomID: roomID, Payload: payload})
}

// broadcast delivers to every connection in roomID except the one given
func (c *Coordinator) broadcast(roomID, except string, t model.EventType, payload interface{}) {
	if c.broadcaster == nil {
		return
	}
	group := c.presence.BroadcastGroup(roomID, except)
	if len(group) == 0 {
		return
	}
	c.broadcaster.SendToConns(group, &model.OutboundMessage{Type: t, RoomID: roomID, Payload: payload})
}

func (c *Coordinator) sendError(connID, roomID string, event model.EventType, err error) {
	c.send(connID, roomID, model.EventError, model.ErrorPayload{
		Message: err.Error(),
		Code:    ErrorCode(err),
		Event:   event,
	})
}
