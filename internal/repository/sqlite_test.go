package repository

import (
	"context"
	"path/filepath"
	"testing"

	"coderoom/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRoomCreateAndFind(t *testing.T) {
	store := setupTestStore(t)
	rooms := store.Rooms()
	ctx := context.Background()

	room := &model.Room{
		RoomID:    "ABC123",
		Name:      "Mock interview",
		OwnerID:   "owner-1",
		OwnerRole: model.OwnerRoleInterviewer,
	}
	require.NoError(t, rooms.Create(ctx, room))

	got, err := rooms.FindByRoomID(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, model.ModeTeaching, got.Mode)
	assert.Equal(t, model.DefaultCode, got.Code)
	assert.Equal(t, model.DefaultLanguage, got.Language)
	assert.True(t, got.IsActive)
	assert.Empty(t, got.AllowedParticipants)

	_, err = rooms.FindByRoomID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = rooms.Create(ctx, &model.Room{RoomID: "ABC123", OwnerID: "someone-else"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	exists, err := rooms.Exists(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRoomPartialUpdate(t *testing.T) {
	store := setupTestStore(t)
	rooms := store.Rooms()
	ctx := context.Background()

	require.NoError(t, rooms.Create(ctx, &model.Room{RoomID: "R1", OwnerID: "o", Code: "print(1)", Language: "python"}))

	mode := model.ModeInterview
	updated, err := rooms.Update(ctx, "R1", model.RoomUpdate{Mode: &mode})
	require.NoError(t, err)
	assert.Equal(t, model.ModeInterview, updated.Mode)
	assert.Equal(t, "print(1)", updated.Code, "unset fields are preserved")
	assert.Equal(t, "python", updated.Language)

	code, lang := "x = 1", "go"
	_, err = rooms.Update(ctx, "R1", model.RoomUpdate{Code: &code, Language: &lang})
	require.NoError(t, err)

	got, err := rooms.FindByRoomID(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "x = 1", got.Code)
	assert.Equal(t, "go", got.Language)
	assert.Equal(t, model.ModeInterview, got.Mode)

	_, err = rooms.Update(ctx, "nope", model.RoomUpdate{Code: &code})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomParticipantsProjection(t *testing.T) {
	store := setupTestStore(t)
	rooms := store.Rooms()
	ctx := context.Background()

	require.NoError(t, rooms.Create(ctx, &model.Room{RoomID: "R2", OwnerID: "o"}))

	participants := []model.Participant{
		{UserID: "o", ConnectionID: "c1", Role: model.RoleOwner},
		{UserID: "p", ConnectionID: "c2", Role: model.RoleParticipant},
	}
	_, err := rooms.Update(ctx, "R2", model.RoomUpdate{CurrentParticipants: participants})
	require.NoError(t, err)

	got, err := rooms.FindByRoomID(ctx, "R2")
	require.NoError(t, err)
	require.Len(t, got.CurrentParticipants, 2)
	assert.Equal(t, "c2", got.CurrentParticipants[1].ConnectionID)

	_, err = rooms.Update(ctx, "R2", model.RoomUpdate{CurrentParticipants: []model.Participant{}})
	require.NoError(t, err)
	got, err = rooms.FindByRoomID(ctx, "R2")
	require.NoError(t, err)
	assert.Empty(t, got.CurrentParticipants)
}

func TestAddAllowedParticipant(t *testing.T) {
	store := setupTestStore(t)
	rooms := store.Rooms()
	ctx := context.Background()

	require.NoError(t, rooms.Create(ctx, &model.Room{RoomID: "R3", OwnerID: "o"}))

	for i := 0; i < 2; i++ {
		_, err := rooms.AddAllowedParticipant(ctx, "R3", "student")
		require.NoError(t, err)
	}
	room, err := rooms.AddAllowedParticipant(ctx, "R3", "o")
	require.NoError(t, err)

	assert.Equal(t, []string{"student"}, room.AllowedParticipants, "owner and duplicates are not added")
	assert.True(t, room.IsAllowed("student"))
	assert.False(t, room.IsAllowed("stranger"))
}

func TestUsersAndFiles(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := &model.User{Name: "Ada", Avatar: "ada.png"}
	require.NoError(t, store.Users().Create(ctx, user))
	require.NotEmpty(t, user.ID)

	got, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, model.UserProfile{ID: user.ID, Name: "Ada", Avatar: "ada.png"}, got.Profile())

	_, err = store.Users().GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	file := &model.FileMeta{RoomID: "R1", Name: "notes.txt", Size: 42, UploaderID: user.ID}
	require.NoError(t, store.Files().Create(ctx, file))

	meta, err := store.Files().GetMeta(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", meta.Name)
	assert.Equal(t, int64(42), meta.Size)
	assert.Equal(t, "R1", meta.RoomID)

	_, err = store.Files().GetMeta(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
