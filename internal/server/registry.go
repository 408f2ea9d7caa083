// Package server tracks connected clients in a fixed-capacity slot table and
// owns every mutation of their room membership.
package server

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// MaxClients is the number of slots in the registry. Registration beyond it
// fails with ErrServerFull.
const MaxClients = 5

var (
	// ErrServerFull is returned by Register when every slot is occupied.
	ErrServerFull = errors.New("server is full")
	// ErrUnknownClient is returned when an id does not name an active slot.
	ErrUnknownClient = errors.New("unknown client")
)

// Room partitions clients into broadcast groups. The zero value means the
// client has not joined any room yet.
type Room byte

// Rooms a client can join.
const (
	RoomNone Room = 0
	RoomA    Room = 'A'
	RoomB    Room = 'B'
	RoomC    Room = 'C'
)

// ParseRoom maps a room letter to its Room. Matching is case-sensitive.
func ParseRoom(s string) (Room, bool) {
	switch s {
	case "A":
		return RoomA, true
	case "B":
		return RoomB, true
	case "C":
		return RoomC, true
	}
	return RoomNone, false
}

// String returns the room letter, or "-" for RoomNone.
func (r Room) String() string {
	if r == RoomNone {
		return "-"
	}
	return string(rune(r))
}

// Conn is the registry's non-owning view of a transport connection. The
// registry sends through it and closes it on unregister; buffers and framing
// stay with the transport.
type Conn interface {
	Send(line string) error
	Close() error
	RemoteAddr() string
}

type slot struct {
	conn    Conn
	room    Room
	active  bool
	session string
}

// SlotInfo is a point-in-time copy of one registry slot.
type SlotInfo struct {
	Index   int
	ID      int
	Active  bool
	Room    Room
	Addr    string
	Session string
}

// Registry is the authoritative table of connected clients. Every exported
// method runs inside one exclusive section over the whole table, so callers
// never observe a partially applied operation.
type Registry struct {
	mu          sync.Mutex
	slots       [MaxClients]slot
	disconnects int

	log     *slog.Logger
	metrics *Metrics
}

// NewRegistry returns a registry with every slot free. metrics may be nil.
func NewRegistry(logger *slog.Logger, metrics *Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{log: logger, metrics: metrics}
}

// Register claims the lowest free slot for c and returns its id (slot index
// plus one). It returns ErrServerFull without touching the table when no slot
// is free.
func (r *Registry) Register(c Conn) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		s := &r.slots[i]
		if s.active {
			continue
		}
		*s = slot{conn: c, room: RoomNone, active: true, session: uuid.NewString()}
		r.metrics.clientRegistered()
		r.log.Info("client.registered", "id", i+1, "addr", c.RemoteAddr(), "session", s.session)
		return i + 1, nil
	}
	return 0, ErrServerFull
}

// Unregister closes the slot's connection and frees the slot. Calling it for
// a slot that is already free is a no-op, so racing disconnect paths are safe.
func (r *Registry) Unregister(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(id)
}

func (r *Registry) unregisterLocked(id int) bool {
	s := r.slotLocked(id)
	if s == nil || !s.active {
		return false
	}
	if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
		r.log.Warn("client.close_failed", "id", id, "err", err)
	}
	session := s.session
	*s = slot{}
	r.disconnects++
	r.metrics.clientUnregistered()
	r.log.Info("client.unregistered", "id", id, "session", session, "disconnects", r.disconnects)
	return true
}

// SetRoom moves an active client to room. It does nothing if the client has
// already gone away.
func (r *Registry) SetRoom(id int, room Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.slotLocked(id); s != nil && s.active {
		s.room = room
	}
}

// LookupIndexByHandle returns the slot index holding c.
func (r *Registry) LookupIndexByHandle(c Conn) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i].active && r.slots[i].conn == c {
			return i, true
		}
	}
	return -1, false
}

// Info returns a copy of the slot for id.
func (r *Registry) Info(id int) (SlotInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slotLocked(id)
	if s == nil || !s.active {
		return SlotInfo{}, ErrUnknownClient
	}
	return infoOf(id-1, s), nil
}

// Snapshot returns every slot in index order as seen at a single instant.
func (r *Registry) Snapshot() []SlotInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SlotInfo, len(r.slots))
	for i := range r.slots {
		out[i] = infoOf(i, &r.slots[i])
	}
	return out
}

// ActiveCount reports how many slots are occupied.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.slots {
		if r.slots[i].active {
			n++
		}
	}
	return n
}

// DisconnectCount reports how many times a slot has been freed since start.
func (r *Registry) DisconnectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

// CloseAll unregisters every active client and returns how many were closed.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.slots {
		if r.unregisterLocked(i + 1) {
			n++
		}
	}
	return n
}

func (r *Registry) slotLocked(id int) *slot {
	if id < 1 || id > len(r.slots) {
		return nil
	}
	return &r.slots[id-1]
}

func infoOf(idx int, s *slot) SlotInfo {
	info := SlotInfo{Index: idx, ID: idx + 1, Active: s.active, Room: s.room, Session: s.session}
	if s.active {
		info.Addr = s.conn.RemoteAddr()
	}
	return info
}
