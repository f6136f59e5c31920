package handler

import (
	"encoding/json"
	"net/http"

	"coderoom/internal/model"
	"coderoom/internal/service"
	"coderoom/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// LiveRooms exposes live presence to the HTTP surface
type LiveRooms interface {
	Participants(roomID string) []model.Participant
	Stats() service.Stats
}

// RoomHandler handles room endpoints
type RoomHandler struct {
	roomSvc *service.RoomService
	live    LiveRooms
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, live LiveRooms) *RoomHandler {
	return &RoomHandler{
		roomSvc: roomSvc,
		live:    live,
	}
}

// Create handles POST /v1/rooms
// @Summary Create a room
// @Tags rooms
// @Accept json
// @Produce json
// @Param body body service.CreateRoomInput true "Room"
// @Success 201 {object} model.Room
// @Router /rooms [post]
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req service.CreateRoomInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// Get handles GET /v1/rooms/{roomId}
// @Summary Get a room
// @Tags rooms
// @Produce json
// @Param roomId path string true "Room id"
// @Success 200 {object} model.Room
// @Router /rooms/{roomId} [get]
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	room, err := h.roomSvc.GetRoom(r.Context(), roomID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// InviteRequest is the request body for inviting a participant
type InviteRequest struct {
	UserID string `json:"userId"`
}

// Invite handles POST /v1/rooms/{roomId}/participants
// @Summary Allow a user into a room
// @Tags rooms
// @Accept json
// @Produce json
// @Param roomId path string true "Room id"
// @Param body body InviteRequest true "Invitee"
// @Success 200 {object} model.Room
// @Router /rooms/{roomId}/participants [post]
func (h *RoomHandler) Invite(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.InviteParticipant(r.Context(), roomID, middleware.GetUserID(r.Context()), req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// Presence handles GET /v1/rooms/{roomId}/presence
// @Summary Live participants of a room
// @Tags rooms
// @Produce json
// @Param roomId path string true "Room id"
// @Success 200 {array} model.Participant
// @Router /rooms/{roomId}/presence [get]
func (h *RoomHandler) Presence(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	// Same access rule as reading the room
	if _, err := h.roomSvc.GetRoom(r.Context(), roomID, middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"roomId":       roomID,
		"participants": h.live.Participants(roomID),
	})
}

// Stats handles GET /v1/stats
// @Summary Live room and connection counts
// @Tags stats
// @Produce json
// @Success 200 {object} service.Stats
// @Router /stats [get]
func (h *RoomHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.live.Stats())
}
