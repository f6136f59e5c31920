package service

import (
	"sync"

	"coderoom/internal/model"
)

// DefaultChatHistoryLimit is the number of chat/feedback events kept per room
const DefaultChatHistoryLimit = 100

// ChatBuffer keeps the most recent chat and feedback events of each room in
// memory. History lives only as long as the process: a restart loses it.
type ChatBuffer struct {
	mu    sync.Mutex
	limit int
	rooms map[string]*ring
}

// ring is a fixed-capacity FIFO that overwrites its oldest slot when full
type ring struct {
	events []model.ChatEvent
	start  int
	size   int
}

// NewChatBuffer creates a buffer keeping at most limit events per room
func NewChatBuffer(limit int) *ChatBuffer {
	if limit <= 0 {
		limit = DefaultChatHistoryLimit
	}
	return &ChatBuffer{
		limit: limit,
		rooms: make(map[string]*ring),
	}
}

// Append adds ev to roomID's log, evicting the oldest event when full
func (b *ChatBuffer) Append(roomID string, ev model.ChatEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rooms[roomID]
	if !ok {
		r = &ring{events: make([]model.ChatEvent, b.limit)}
		b.rooms[roomID] = r
	}

	if r.size < b.limit {
		r.events[(r.start+r.size)%b.limit] = ev
		r.size++
		return
	}
	r.events[r.start] = ev
	r.start = (r.start + 1) % b.limit
}

// Snapshot returns roomID's events oldest first. The slice is a copy.
func (b *ChatBuffer) Snapshot(roomID string) []model.ChatEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rooms[roomID]
	if !ok {
		return []model.ChatEvent{}
	}
	out := make([]model.ChatEvent, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.events[(r.start+i)%b.limit]
	}
	return out
}

// Len returns the number of events held for roomID
func (b *ChatBuffer) Len(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.rooms[roomID]; ok {
		return r.size
	}
	return 0
}

// Drop discards roomID's history
func (b *ChatBuffer) Drop(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms, roomID)
}
