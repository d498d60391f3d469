package presence

import (
	"sync"

	"minim/models"
)

// Session is one live real-time connection able to receive pushed messages.
// Implementations must be comparable (pointers), so they can be used as map
// keys inside the registry.
type Session interface {
	ID() string
	Push(msg models.Message) error
}

// Registry maps usernames to the set of their live sessions. A session may
// belong to several usernames at once: join is literal room membership, and
// only a disconnect removes a session from the rooms it joined.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]map[Session]struct{}
	members map[Session]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[string]map[Session]struct{}),
		members: make(map[Session]map[string]struct{}),
	}
}

// Join registers s under username. Joining the same room twice is a no-op;
// joining another room adds a membership without leaving the previous one.
func (r *Registry) Join(username string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[username]
	if !ok {
		room = make(map[Session]struct{})
		r.rooms[username] = room
	}
	room[s] = struct{}{}

	names, ok := r.members[s]
	if !ok {
		names = make(map[string]struct{})
		r.members[s] = names
	}
	names[username] = struct{}{}
}

// SessionsFor returns a snapshot of the sessions currently registered under
// username. The result is a copy: callers may range over it while other
// sessions join or leave.
func (r *Registry) SessionsFor(username string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[username]
	if len(room) == 0 {
		return nil
	}

	sessions := make([]Session, 0, len(room))
	for s := range room {
		sessions = append(sessions, s)
	}
	return sessions
}

// Leave removes s from every room it belongs to. Called on disconnect so the
// registry never holds a session after its connection closed.
func (r *Registry) Leave(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for username := range r.members[s] {
		room := r.rooms[username]
		delete(room, s)
		if len(room) == 0 {
			delete(r.rooms, username)
		}
	}
	delete(r.members, s)
}

// Len returns the number of distinct live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Usernames returns every username that currently has at least one session.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.rooms))
	for username := range r.rooms {
		names = append(names, username)
	}
	return names
}

// Reset drops all entries. Used on shutdown.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = make(map[string]map[Session]struct{})
	r.members = make(map[Session]map[string]struct{})
}
