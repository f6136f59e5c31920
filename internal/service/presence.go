package service

import (
	"sort"
	"sync"
	"time"

	"coderoom/internal/model"

	"github.com/rs/zerolog/log"
)

// PresenceEntry is one live connection inside a room
type PresenceEntry struct {
	UserID       string
	Name         string
	Avatar       string
	ConnectionID string
	Role         model.ParticipantRole
	JoinedAt     time.Time

	seq uint64 // join order within the table
}

func (e *PresenceEntry) participant() model.Participant {
	return model.Participant{
		UserID:       e.UserID,
		Name:         e.Name,
		Avatar:       e.Avatar,
		ConnectionID: e.ConnectionID,
		Role:         e.Role,
		JoinedAt:     e.JoinedAt,
	}
}

// PresenceTable tracks which connections are live in which room.
// A user may hold several entries in one room (one per tab).
type PresenceTable struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*PresenceEntry // roomID -> connID -> entry
	conns map[string]map[string]struct{}       // connID -> roomIDs
	seq   uint64
}

// NewPresenceTable creates an empty presence table
func NewPresenceTable() *PresenceTable {
	return &PresenceTable{
		rooms: make(map[string]map[string]*PresenceEntry),
		conns: make(map[string]map[string]struct{}),
	}
}

// Add registers entry in roomID. It returns false when the connection is
// already present in the room, in which case the table is unchanged.
func (p *PresenceTable) Add(roomID string, entry *PresenceEntry) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	members, ok := p.rooms[roomID]
	if !ok {
		members = make(map[string]*PresenceEntry)
		p.rooms[roomID] = members
	}
	if _, exists := members[entry.ConnectionID]; exists {
		return false
	}

	p.seq++
	entry.seq = p.seq
	members[entry.ConnectionID] = entry

	rooms, ok := p.conns[entry.ConnectionID]
	if !ok {
		rooms = make(map[string]struct{})
		p.conns[entry.ConnectionID] = rooms
	}
	rooms[roomID] = struct{}{}

	log.Debug().Str("module", "presence").Str("room", roomID).Str("conn", entry.ConnectionID).
		Str("user", entry.UserID).Int("members", len(members)).Msg("entry added")
	return true
}

// Remove deletes the entry of connID in roomID, if any
func (p *PresenceTable) Remove(roomID, connID string) (*PresenceEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	members, ok := p.rooms[roomID]
	if !ok {
		return nil, false
	}
	entry, ok := members[connID]
	if !ok {
		return nil, false
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(p.rooms, roomID)
	}
	if rooms, ok := p.conns[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(p.conns, connID)
		}
	}

	log.Debug().Str("module", "presence").Str("room", roomID).Str("conn", connID).
		Int("members", len(members)).Msg("entry removed")
	return entry, true
}

// Get returns the entry of connID in roomID
func (p *PresenceTable) Get(roomID, connID string) (*PresenceEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.rooms[roomID][connID]
	return entry, ok
}

// ListParticipants returns the live participants of roomID in join order
func (p *PresenceTable) ListParticipants(roomID string) []model.Participant {
	entries := p.sorted(roomID)
	out := make([]model.Participant, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.participant())
	}
	return out
}

// IsOwnerPresent reports whether ownerID holds at least one live connection in roomID
func (p *PresenceTable) IsOwnerPresent(roomID, ownerID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, e := range p.rooms[roomID] {
		if e.UserID == ownerID && e.Role == model.RoleOwner {
			return true
		}
	}
	return false
}

// BroadcastGroup returns the connection ids live in roomID, in join order,
// leaving out except (pass "" to include everyone)
func (p *PresenceTable) BroadcastGroup(roomID, except string) []string {
	entries := p.sorted(roomID)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.ConnectionID != except {
			out = append(out, e.ConnectionID)
		}
	}
	return out
}

// RoomsOf returns every room connID is present in
func (p *PresenceTable) RoomsOf(connID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, 0, len(p.conns[connID]))
	for roomID := range p.conns[connID] {
		out = append(out, roomID)
	}
	sort.Strings(out)
	return out
}

// RoomCount returns the number of rooms with at least one live connection
func (p *PresenceTable) RoomCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms)
}

// ConnectionCount returns the number of connections present in any room
func (p *PresenceTable) ConnectionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

func (p *PresenceTable) sorted(roomID string) []*PresenceEntry {
	p.mu.RLock()
	entries := make([]*PresenceEntry, 0, len(p.rooms[roomID]))
	for _, e := range p.rooms[roomID] {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	return entries
}
