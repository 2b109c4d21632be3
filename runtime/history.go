package runtime

import (
	"chat-relay/domain"
	"sync"
)

// HistoryStore keeps a bounded ring of recent messages per room, replayed
// to newly joined sessions. Rooms are created lazily on first append and
// live for the process lifetime. Different rooms never contend: each room
// carries its own lock.
type HistoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*roomHistory
	limit int
}

type roomHistory struct {
	mu       sync.Mutex
	messages []domain.Message
}

// NewHistoryStore creates a store capping each room at limit messages,
// oldest evicted first.
func NewHistoryStore(limit int) *HistoryStore {
	return &HistoryStore{
		rooms: make(map[string]*roomHistory),
		limit: limit,
	}
}

// Append records a message in the room's history, evicting the oldest
// entry once the cap is exceeded.
func (h *HistoryStore) Append(room string, m domain.Message) {
	rh := h.room(room)

	rh.mu.Lock()
	defer rh.mu.Unlock()

	rh.messages = append(rh.messages, m)
	if len(rh.messages) > h.limit {
		rh.messages = rh.messages[1:]
	}
}

// Snapshot returns a copy of the room's history, oldest first. An unknown
// room yields nil.
func (h *HistoryStore) Snapshot(room string) []domain.Message {
	h.mu.RLock()
	rh, ok := h.rooms[room]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()

	out := make([]domain.Message, len(rh.messages))
	copy(out, rh.messages)
	return out
}

// Len reports the current history length of a room.
func (h *HistoryStore) Len(room string) int {
	h.mu.RLock()
	rh, ok := h.rooms[room]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()
	return len(rh.messages)
}

func (h *HistoryStore) room(name string) *roomHistory {
	h.mu.RLock()
	rh, ok := h.rooms[name]
	h.mu.RUnlock()
	if ok {
		return rh
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if rh, ok = h.rooms[name]; ok {
		return rh
	}
	rh = &roomHistory{}
	h.rooms[name] = rh
	return rh
}
