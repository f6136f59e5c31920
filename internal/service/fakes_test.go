package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"coderoom/internal/model"
	"coderoom/internal/repository"

	"github.com/stretchr/testify/require"
)

type memRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*model.Room

	updateErr error // returned by Update when set
	findErr   error // returned by FindByRoomID when set
	slowFind  bool  // FindByRoomID waits for ctx to end
	updates   int
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{rooms: make(map[string]*model.Room)}
}

func cloneRoom(r *model.Room) *model.Room {
	c := *r
	c.AllowedParticipants = append([]string(nil), r.AllowedParticipants...)
	c.CurrentParticipants = append([]model.Participant(nil), r.CurrentParticipants...)
	return &c
}

func (m *memRoomRepo) Create(ctx context.Context, room *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.RoomID]; ok {
		return repository.ErrAlreadyExists
	}
	room.ApplyDefaults(time.Now())
	m.rooms[room.RoomID] = cloneRoom(room)
	return nil
}

func (m *memRoomRepo) FindByRoomID(ctx context.Context, roomID string) (*model.Room, error) {
	m.mu.Lock()
	slow := m.slowFind
	m.mu.Unlock()
	if slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRoom(r), nil
}

func (m *memRoomRepo) Update(ctx context.Context, roomID string, update model.RoomUpdate) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	update.Apply(r)
	m.updates++
	return cloneRoom(r), nil
}

func (m *memRoomRepo) AddAllowedParticipant(ctx context.Context, roomID, userID string) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !r.IsAllowed(userID) {
		r.AllowedParticipants = append(r.AllowedParticipants, userID)
	}
	return cloneRoom(r), nil
}

func (m *memRoomRepo) Exists(ctx context.Context, roomID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[roomID]
	return ok, nil
}

func (m *memRoomRepo) get(roomID string) *model.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRoom(m.rooms[roomID])
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error
	slow  bool // GetByID waits for ctx to end
	reads int
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	m := &memUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUserRepo) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	slow := m.slow
	m.mu.Unlock()
	if slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

type memFileRepo struct {
	files map[string]*model.FileMeta
	err   error
}

func (m *memFileRepo) Create(ctx context.Context, file *model.FileMeta) error {
	m.files[file.ID] = file
	return nil
}

func (m *memFileRepo) GetMeta(ctx context.Context, id string) (*model.FileMeta, error) {
	if m.err != nil {
		return nil, m.err
	}
	f, ok := m.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *f
	return &c, nil
}

// recorder captures outbound messages per connection, in delivery order
type recorder struct {
	mu   sync.Mutex
	msgs map[string][]*model.OutboundMessage
}

func newRecorder() *recorder {
	return &recorder{msgs: make(map[string][]*model.OutboundMessage)}
}

func (r *recorder) SendToConn(connID string, msg *model.OutboundMessage) {
	r.SendToConns([]string{connID}, msg)
}

func (r *recorder) SendToConns(connIDs []string, msg *model.OutboundMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range connIDs {
		r.msgs[id] = append(r.msgs[id], msg)
	}
}

func (r *recorder) all(connID string) []*model.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.OutboundMessage(nil), r.msgs[connID]...)
}

func (r *recorder) ofType(connID string, t model.EventType) []*model.OutboundMessage {
	var out []*model.OutboundMessage
	for _, m := range r.all(connID) {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = make(map[string][]*model.OutboundMessage)
}

var errBoom = errors.New("boom")

// fixture is a coordinator wired to in-memory collaborators with one room
// "ROOM01" owned by "owner" and open to "p1"
type fixture struct {
	rooms *memRoomRepo
	users *memUserRepo
	files *memFileRepo
	rec   *recorder
	coord *Coordinator

	owner *Session
	p1    *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	rooms := newMemRoomRepo()
	users := newMemUserRepo(
		&model.User{ID: "owner", Name: "Olive", Avatar: "o.png"},
		&model.User{ID: "p1", Name: "Pat"},
		&model.User{ID: "stranger", Name: "Sam"},
	)
	files := &memFileRepo{files: map[string]*model.FileMeta{
		"f1": {ID: "f1", RoomID: "ROOM01", Name: "notes.txt", Size: 12, UploaderID: "p1"},
		"f2": {ID: "f2", RoomID: "OTHER", Name: "other.txt"},
	}}
	require.NoError(t, rooms.Create(context.Background(), &model.Room{
		RoomID:              "ROOM01",
		Name:                "Two Sum",
		OwnerID:             "owner",
		OwnerRole:           model.OwnerRoleTeacher,
		AllowedParticipants: []string{"p1"},
		ProblemTitle:        "Two Sum",
	}))

	identity := NewIdentityService(users, nil, time.Second)
	coord := NewCoordinator(rooms, files, identity, NewPresenceTable(), NewChatBuffer(DefaultChatHistoryLimit), time.Second)
	rec := newRecorder()
	coord.SetBroadcaster(rec)

	return &fixture{
		rooms: rooms,
		users: users,
		files: files,
		rec:   rec,
		coord: coord,
		owner: &Session{ConnID: "c-owner", User: model.UserProfile{ID: "owner", Name: "Olive", Avatar: "o.png"}},
		p1:    &Session{ConnID: "c-p1", User: model.UserProfile{ID: "p1", Name: "Pat"}},
	}
}

func (f *fixture) joinBoth(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.coord.Join(ctx, f.owner, "ROOM01"))
	require.NoError(t, f.coord.Join(ctx, f.p1, "ROOM01"))
	f.rec.reset()
}

func inbound(t *testing.T, typ model.EventType, roomID string, payload interface{}) *model.InboundMessage {
	t.Helper()
	msg := &model.InboundMessage{Version: model.ProtocolVersion, Type: typ, RoomID: roomID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Payload = raw
	}
	return msg
}
