package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coderoom/internal/model"
	"coderoom/internal/repository"
	"coderoom/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	Type    model.EventType `json:"type"`
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

type testServer struct {
	srv   *httptest.Server
	auth  *service.AuthService
	coord *service.Coordinator
	store *repository.SQLiteStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "ws.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &model.User{ID: "owner", Name: "Olive"}))
	require.NoError(t, store.Users().Create(ctx, &model.User{ID: "p1", Name: "Pat"}))
	require.NoError(t, store.Rooms().Create(ctx, &model.Room{
		RoomID:              "ROOM01",
		Name:                "Two Sum",
		OwnerID:             "owner",
		OwnerRole:           model.OwnerRoleTeacher,
		AllowedParticipants: []string{"p1"},
	}))

	hub := NewHub()
	t.Cleanup(hub.Close)

	auth := service.NewAuthService("test-secret", time.Hour)
	identity := service.NewIdentityService(store.Users(), nil, time.Second)
	coord := service.NewCoordinator(store.Rooms(), store.Files(), identity,
		service.NewPresenceTable(), service.NewChatBuffer(service.DefaultChatHistoryLimit), time.Second)
	coord.SetBroadcaster(hub)

	h := NewHandler(hub, auth, identity, coord, Options{})
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, auth: auth, coord: coord, store: store}
}

func (s *testServer) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	tok, err := s.auth.IssueToken(userID, "")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "?token=" + tok.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ model.EventType, payload interface{}) {
	t.Helper()
	msg := map[string]interface{}{"v": 1, "type": typ, "roomId": "ROOM01"}
	if payload != nil {
		msg["payload"] = payload
	}
	require.NoError(t, conn.WriteJSON(msg))
}

// await reads until a message of type typ arrives, skipping others
func await(t *testing.T, conn *websocket.Conn, typ model.EventType) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg wireMessage
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", typ)
		if msg.Type == typ {
			return msg
		}
	}
}

func TestServeWSRejectsBadTokens(t *testing.T) {
	s := newTestServer(t)
	base := "ws" + strings.TrimPrefix(s.srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := s.auth.IssueToken("ghost", "")
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+tok.Token, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionOverWebSocket(t *testing.T) {
	s := newTestServer(t)

	owner := s.dial(t, "owner")
	send(t, owner, model.EventJoin, nil)
	data := await(t, owner, model.EventRoomData)
	var room model.RoomData
	require.NoError(t, json.Unmarshal(data.Payload, &room))
	assert.True(t, room.CanEdit)
	assert.Equal(t, "ROOM01", data.RoomID)

	p1 := s.dial(t, "p1")
	send(t, p1, model.EventJoin, nil)
	await(t, p1, model.EventRoomData)

	joined := await(t, owner, model.EventUserJoined)
	var uj model.UserJoined
	require.NoError(t, json.Unmarshal(joined.Payload, &uj))
	assert.Equal(t, "Pat", uj.User.Name)
	assert.Len(t, uj.Participants, 2)

	// read-only participant is refused
	send(t, p1, model.EventCodeChange, model.CodeChangePayload{Code: "x=1", Language: "python"})
	errMsg := await(t, p1, model.EventError)
	var ep model.ErrorPayload
	require.NoError(t, json.Unmarshal(errMsg.Payload, &ep))
	assert.Equal(t, "NotAuthorized", ep.Code)

	// owner opens the room
	send(t, owner, model.EventToggleMode, model.ToggleModePayload{Mode: model.ModeInterview})
	await(t, owner, model.EventModeChanged)
	await(t, p1, model.EventModeChanged)

	send(t, p1, model.EventCodeChange, model.CodeChangePayload{Code: "x=1", Language: "python"})
	update := await(t, owner, model.EventCodeUpdate)
	var cu model.CodeUpdate
	require.NoError(t, json.Unmarshal(update.Payload, &cu))
	assert.Equal(t, model.CodeUpdate{Code: "x=1", Language: "python"}, cu)

	// participant drops without leaving
	p1.Close()
	left := await(t, owner, model.EventUserLeft)
	var ul model.UserLeft
	require.NoError(t, json.Unmarshal(left.Payload, &ul))
	assert.Equal(t, "p1", ul.UserID)
	assert.Len(t, ul.Participants, 1)

	stored, err := s.store.Rooms().FindByRoomID(context.Background(), "ROOM01")
	require.NoError(t, err)
	assert.Equal(t, "x=1", stored.Code)
	assert.Equal(t, model.ModeInterview, stored.Mode)
}

func TestMalformedFramesGetScopedErrors(t *testing.T) {
	s := newTestServer(t)
	owner := s.dial(t, "owner")

	require.NoError(t, owner.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var ep model.ErrorPayload
	require.NoError(t, json.Unmarshal(await(t, owner, model.EventError).Payload, &ep))
	assert.Equal(t, "InvalidPayload", ep.Code)

	require.NoError(t, owner.WriteJSON(map[string]interface{}{"v": 9, "type": "join", "roomId": "ROOM01"}))
	require.NoError(t, json.Unmarshal(await(t, owner, model.EventError).Payload, &ep))
	assert.Equal(t, "InvalidPayload", ep.Code)

	// connection survives and still works
	send(t, owner, model.EventJoin, nil)
	await(t, owner, model.EventRoomData)
}
