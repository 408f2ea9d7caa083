// Package server fans lines out to registry members selected by room or to
// everyone connected.
package server

// BroadcastRoom sends line to every active client in room except exclude,
// visiting slots in index order. A failed send is logged and skipped; the
// recipient's own session notices the broken connection on its next read.
// It returns the number of successful deliveries.
func (r *Registry) BroadcastRoom(room Room, line string, exclude Conn) int {
	if room == RoomNone {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.fanOutLocked(line, exclude, func(s *slot) bool { return s.room == room })
}

// BroadcastAll sends line to every active client regardless of room.
func (r *Registry) BroadcastAll(line string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.fanOutLocked(line, nil, func(*slot) bool { return true })
}

// fanOutLocked holds the registry lock for the whole fan-out so concurrent
// broadcasts never interleave. Write deadlines on the transports bound how
// long a stalled recipient can keep the lock.
func (r *Registry) fanOutLocked(line string, exclude Conn, match func(*slot) bool) int {
	delivered := 0
	for i := range r.slots {
		s := &r.slots[i]
		if !s.active || !match(s) {
			continue
		}
		if exclude != nil && s.conn == exclude {
			continue
		}
		if err := s.conn.Send(line); err != nil {
			r.log.Debug("broadcast.send_failed", "id", i+1, "addr", s.conn.RemoteAddr(), "err", err)
			continue
		}
		delivered++
	}
	return delivered
}
