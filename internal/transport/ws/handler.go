package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coderoom/internal/model"
	"coderoom/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultMaxMessageBytes = 1 << 20
	defaultSendBuffer      = 256
)

// Dispatcher is the part of the coordinator the connection handler drives
type Dispatcher interface {
	Dispatch(ctx context.Context, sess *service.Session, msg *model.InboundMessage) error
	Disconnect(sess *service.Session)
}

// Options tunes per-connection limits
type Options struct {
	MaxMessageBytes int64
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// Handler handles WebSocket connections
type Handler struct {
	hub         *Hub
	authSvc     *service.AuthService
	identity    service.ProfileResolver
	coordinator Dispatcher
	upgrader    websocket.Upgrader
	opts        Options
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService, identity service.ProfileResolver, coordinator Dispatcher, opts Options) *Handler {
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = defaultMaxMessageBytes
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Handler{
		hub:         hub,
		authSvc:     authSvc,
		identity:    identity,
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		opts: opts,
	}
}

// ServeWS handles GET /v1/ws?token=...
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	profile, err := h.identity.ResolveProfile(r.Context(), claims.UserID)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return
	case err != nil:
		log.Warn().Str("module", "ws.handler").Str("user", claims.UserID).Err(err).Msg("identity lookup failed")
		http.Error(w, "identity service unavailable", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("module", "ws.handler").Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := &Connection{
		ID:     uuid.New().String(),
		UserID: claims.UserID,
		Send:   make(chan []byte, h.opts.SendBuffer),
		Hub:    h.hub,
	}
	sess := &service.Session{
		ConnID: conn.ID,
		User:   *profile,
	}

	h.hub.Register(conn)

	log.Info().Str("module", "ws.handler").Str("conn", conn.ID).Str("user", claims.UserID).Msg("websocket connected")

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn, sess)
}

// readPump handles one connection's events strictly in arrival order
func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection, sess *service.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.coordinator.Disconnect(sess)
		h.hub.Unregister(conn)
		wsConn.Close()
		log.Info().Str("module", "ws.handler").Str("conn", conn.ID).Str("user", conn.UserID).Msg("websocket disconnected")
	}()

	wsConn.SetReadLimit(h.opts.MaxMessageBytes)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().Str("module", "ws.handler").Str("conn", conn.ID).Err(err).Msg("websocket read error")
			}
			return
		}

		msg, err := decodeInbound(data)
		if err != nil {
			h.hub.SendToConn(conn.ID, &model.OutboundMessage{
				Type: model.EventError,
				Payload: model.ErrorPayload{
					Message: err.Error(),
					Code:    service.ErrorCode(err),
				},
			})
			continue
		}

		// Failures are already reported to the client by the coordinator
		_ = h.coordinator.Dispatch(ctx, sess, msg)
	}
}

func decodeInbound(data []byte) (*model.InboundMessage, error) {
	var msg model.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if msg.Version != 0 && msg.Version != model.ProtocolVersion {
		return nil, fmt.Errorf("%w: unsupported protocol version %d", service.ErrInvalidPayload, msg.Version)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: type is required", service.ErrInvalidPayload)
	}
	return &msg, nil
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
