package service

import (
	"testing"
	"time"

	"coderoom/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(userID, connID string, role model.ParticipantRole) *PresenceEntry {
	return &PresenceEntry{UserID: userID, ConnectionID: connID, Role: role, JoinedAt: time.Now()}
}

func TestPresenceAddRemove(t *testing.T) {
	p := NewPresenceTable()

	assert.True(t, p.Add("r1", entry("owner", "c1", model.RoleOwner)))
	assert.True(t, p.Add("r1", entry("u2", "c2", model.RoleParticipant)))
	assert.False(t, p.Add("r1", entry("u2", "c2", model.RoleParticipant)), "same connection twice")

	participants := p.ListParticipants("r1")
	require.Len(t, participants, 2)
	assert.Equal(t, "c1", participants[0].ConnectionID)
	assert.Equal(t, "c2", participants[1].ConnectionID)

	removed, ok := p.Remove("r1", "c1")
	require.True(t, ok)
	assert.Equal(t, "owner", removed.UserID)

	_, ok = p.Remove("r1", "c1")
	assert.False(t, ok)

	assert.Len(t, p.ListParticipants("r1"), 1)
}

func TestPresenceSameUserTwoTabs(t *testing.T) {
	p := NewPresenceTable()
	p.Add("r1", entry("u1", "tab-a", model.RoleParticipant))
	p.Add("r1", entry("u1", "tab-b", model.RoleParticipant))

	assert.Len(t, p.ListParticipants("r1"), 2)

	p.Remove("r1", "tab-a")
	participants := p.ListParticipants("r1")
	require.Len(t, participants, 1)
	assert.Equal(t, "tab-b", participants[0].ConnectionID)
}

func TestPresenceBroadcastGroup(t *testing.T) {
	p := NewPresenceTable()
	p.Add("r1", entry("a", "c1", model.RoleOwner))
	p.Add("r1", entry("b", "c2", model.RoleParticipant))
	p.Add("r1", entry("c", "c3", model.RoleParticipant))
	p.Add("r2", entry("d", "c4", model.RoleOwner))

	assert.Equal(t, []string{"c1", "c2", "c3"}, p.BroadcastGroup("r1", ""))
	assert.Equal(t, []string{"c1", "c3"}, p.BroadcastGroup("r1", "c2"))
	assert.Empty(t, p.BroadcastGroup("missing", ""))
}

func TestPresenceOwnerAndConnections(t *testing.T) {
	p := NewPresenceTable()
	assert.False(t, p.IsOwnerPresent("r1", "owner"))

	p.Add("r1", entry("owner", "c1", model.RoleOwner))
	p.Add("r2", entry("owner", "c1", model.RoleOwner))
	p.Add("r2", entry("u2", "c2", model.RoleParticipant))

	assert.True(t, p.IsOwnerPresent("r1", "owner"))
	assert.False(t, p.IsOwnerPresent("r1", "u2"))
	assert.Equal(t, []string{"r1", "r2"}, p.RoomsOf("c1"))
	assert.Equal(t, 2, p.RoomCount())
	assert.Equal(t, 2, p.ConnectionCount())
	assert.Equal(t, []string{"c1", "c2"}, p.BroadcastGroup("r2", ""))

	p.Remove("r1", "c1")
	p.Remove("r2", "c1")
	assert.Empty(t, p.RoomsOf("c1"))
	assert.Equal(t, 1, p.RoomCount())
	assert.Equal(t, 1, p.ConnectionCount())
}
