package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"sort"
	"sync"
	"time"
)

// Session is a registry entry: one live connection identified by its
// username. The username and role are stable for the connection's
// lifetime; the current room changes only through the registry so that
// room reads and moves stay atomic.
type Session struct {
	Username string
	Role     domain.Role
	Queue    *Queue
	JoinedAt time.Time

	room string // guarded by Registry.mu
}

// Registry maps usernames to live sessions. All operations are atomic
// with respect to concurrent mutation from other sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// NewSession builds a registry entry for a freshly handshaken connection.
func NewSession(username string, role domain.Role, queue *Queue, room string) *Session {
	return &Session{
		Username: username,
		Role:     role,
		Queue:    queue,
		JoinedAt: time.Now().UTC(),
		room:     room,
	}
}

// Register inserts the session under its username. The existence check and
// the insert are a single atomic step so two simultaneous handshakes can
// never both claim a name. Returns ErrUsernameTaken if the name is live.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.Username]; ok {
		return errors.ErrUsernameTaken
	}
	r.sessions[s.Username] = s
	return nil
}

// Unregister removes a session and returns it along with the room it was
// last in, so the caller can announce the departure. Removing an unknown
// username returns nil.
func (r *Registry) Unregister(username string) (*Session, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[username]
	if !ok {
		return nil, ""
	}
	delete(r.sessions, username)
	return s, s.room
}

// Lookup resolves a live session by username.
func (r *Registry) Lookup(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[username]
	return s, ok
}

// RoomOf reports the room a user currently belongs to.
func (r *Registry) RoomOf(username string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[username]
	if !ok {
		return "", errors.ErrSessionNotFound
	}
	return s.room, nil
}

// SetRoom moves a user to another room. Only /join calls this.
func (r *Registry) SetRoom(username, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[username]
	if !ok {
		return errors.ErrSessionNotFound
	}
	s.room = room
	return nil
}

// UsersIn lists the usernames currently in a room, sorted for stable
// presentation.
func (r *Registry) UsersIn(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []string
	for name, s := range r.sessions {
		if s.room == room {
			users = append(users, name)
		}
	}
	sort.Strings(users)
	return users
}

// Occupancy returns the number of sessions per room, for reporting.
func (r *Registry) Occupancy() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.sessions))
	for _, s := range r.sessions {
		counts[s.room]++
	}
	return counts
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
