// Package room tracks which sessions are joined to which collaboration rooms.
//
// Membership of one room is guarded by that room's own lock, so joins and
// leaves in different rooms never wait on each other. A room exists only
// while it has members: the operation that removes the last member also
// removes the room.
package room

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/util"
)

var (
	ErrSessionGone = errors.New("session already disconnected")
	ErrClosed      = errors.New("registry closed")
)

type room[H comparable] struct {
	mu      sync.Mutex
	id      string
	members map[H]struct{}
	// dead is set once the room has been emptied and unlinked. A joiner
	// holding a stale pointer must look the room up again.
	dead bool
}

type session struct {
	mu    sync.Mutex
	rooms map[string]struct{}
	gone  bool
}

// Departure reports the outcome of removing a session from one room.
// Destroyed is true when the session was the last member; Count is then 0.
type Departure struct {
	Room      string
	Count     int
	Destroyed bool
}

// Registry maps room ids to sets of session handles. Handles must not be
// reused after DropAll.
type Registry[H comparable] struct {
	mu       sync.Mutex
	rooms    map[string]*room[H]
	sessions map[H]*session
	closed   bool
}

func New[H comparable]() *Registry[H] {
	return &Registry[H]{
		rooms:    make(map[string]*room[H]),
		sessions: make(map[H]*session),
	}
}

func (r *Registry[H]) session(h H) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	s, ok := r.sessions[h]
	if !ok {
		s = &session{rooms: make(map[string]struct{})}
		r.sessions[h] = s
	}
	return s, nil
}

func (r *Registry[H]) lookup(id string) *room[H] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[id]
}

func (r *Registry[H]) getOrCreate(id string) (*room[H], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	rm, ok := r.rooms[id]
	if !ok {
		rm = &room[H]{id: id, members: make(map[H]struct{})}
		r.rooms[id] = rm
	}
	return rm, nil
}

func (r *Registry[H]) unlink(rm *room[H]) {
	r.mu.Lock()
	if r.rooms[rm.id] == rm {
		delete(r.rooms, rm.id)
	}
	r.mu.Unlock()
}

// Join adds h to the room, creating the room if needed, and returns the new
// member count. Joining twice is a no-op that reports the current count.
func (r *Registry[H]) Join(id string, h H) (int, error) {
	s, err := r.session(h)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return 0, ErrSessionGone
	}

	for {
		rm, err := r.getOrCreate(id)
		if err != nil {
			return 0, err
		}
		rm.mu.Lock()
		if rm.dead {
			rm.mu.Unlock()
			continue
		}
		rm.members[h] = struct{}{}
		count := len(rm.members)
		rm.mu.Unlock()

		s.rooms[id] = struct{}{}
		return count, nil
	}
}

// leave must be called with s.mu held.
func (r *Registry[H]) leave(id string, h H, s *session) Departure {
	delete(s.rooms, id)

	rm := r.lookup(id)
	if rm == nil {
		return Departure{Room: id, Destroyed: true}
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.dead {
		return Departure{Room: id, Destroyed: true}
	}
	delete(rm.members, h)
	if len(rm.members) == 0 {
		rm.dead = true
		r.unlink(rm)
		return Departure{Room: id, Destroyed: true}
	}
	return Departure{Room: id, Count: len(rm.members)}
}

// Leave removes h from the room. ok is false when the room no longer exists
// afterwards, either because h was its last member or because it never
// existed.
func (r *Registry[H]) Leave(id string, h H) (count int, ok bool) {
	r.mu.Lock()
	s, known := r.sessions[h]
	r.mu.Unlock()
	if !known {
		return r.Count(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return 0, false
	}
	d := r.leave(id, h, s)
	return d.Count, !d.Destroyed
}

// DropAll removes h from every room it joined, in room id order. A Join for
// h already in flight fails with ErrSessionGone. Afterwards the registry
// keeps nothing about h, so a later Join starts an unrelated session.
func (r *Registry[H]) DropAll(h H) []Departure {
	r.mu.Lock()
	s, ok := r.sessions[h]
	delete(r.sessions, h)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gone = true
	ids := util.SortedKeys(s.rooms)
	res := make([]Departure, 0, len(ids))
	for _, id := range ids {
		res = append(res, r.leave(id, h, s))
	}
	return res
}

// Members returns a snapshot of the room's members in no particular order.
func (r *Registry[H]) Members(id string) []H {
	rm := r.lookup(id)
	if rm == nil {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.dead {
		return nil
	}
	return util.GetKeys(rm.members)
}

// Count returns the member count; ok is false if the room does not exist.
func (r *Registry[H]) Count(id string) (int, bool) {
	rm := r.lookup(id)
	if rm == nil {
		return 0, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.dead {
		return 0, false
	}
	return len(rm.members), true
}

// Contains reports whether h is currently joined to the room.
func (r *Registry[H]) Contains(id string, h H) bool {
	rm := r.lookup(id)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	_, ok := rm.members[h]
	return ok && !rm.dead
}

func (r *Registry[H]) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return util.SortedKeys(r.rooms)
}

// Close empties the registry and rejects later joins.
func (r *Registry[H]) Close() {
	r.mu.Lock()
	r.closed = true
	rooms := r.rooms
	r.rooms = make(map[string]*room[H])
	r.sessions = make(map[H]*session)
	r.mu.Unlock()

	// room locks are never taken under r.mu
	for _, rm := range rooms {
		rm.mu.Lock()
		rm.dead = true
		rm.mu.Unlock()
	}
}
