// Package server runs the per-connection session loop that turns client lines
// into registry and broadcast operations.
package server

import (
	"fmt"
	"log/slog"
)

// session is the control loop for one registered connection. Its room field
// mirrors the registry slot; only this session ever changes that slot's room.
type session struct {
	srv     *Server
	conn    LineConn
	id      int
	room    Room
	log     *slog.Logger
	// limiter is nil unless a chat rate limit is configured.
	limiter *tokenBucket
}

func newSession(srv *Server, conn LineConn) *session {
	s := &session{srv: srv, conn: conn, log: srv.log}
	if srv.cfg.RateLimit.Burst > 0 {
		s.limiter = newTokenBucket(srv.cfg.RateLimit, nil)
	}
	return s
}

func (s *session) run() {
	reg := s.srv.reg

	idx, ok := reg.LookupIndexByHandle(s.conn)
	if !ok {
		// Unregistered between accept and session start.
		_ = s.conn.Close()
		return
	}
	s.id = idx + 1
	if info, err := reg.Info(s.id); err == nil {
		s.log = s.log.With("id", s.id, "session", info.Session)
	}

	s.reply(msgRoomPrompt)

	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			if isExpectedCloseError(err) {
				s.log.Info("session.closed", "reason", "disconnect")
			} else {
				s.log.Warn("session.closed", "reason", "read error", "err", err)
			}
			reg.Unregister(s.id)
			return
		}
		if !s.handle(line) {
			return
		}
	}
}

// handle applies one line and reports whether the session should continue.
func (s *session) handle(line string) bool {
	cmd := ParseCommand(line)

	switch cmd.Kind {
	case CmdEmpty:
		return true
	case CmdExit:
		s.reply(msgGoodbye)
		s.srv.reg.Unregister(s.id)
		s.log.Info("session.closed", "reason", "exit")
		return false
	}

	switch cmd.Kind {
	case CmdJoin:
		s.join(cmd.Room, cmd.ViaRoomCommand)
	case CmdInvalidRoom:
		s.reply(msgInvalidRoom)
	case CmdChat:
		s.chat(cmd.Text)
	}
	return true
}

func (s *session) join(room Room, viaRoomCommand bool) {
	reg := s.srv.reg
	reg.SetRoom(s.id, room)
	s.room = room

	if viaRoomCommand {
		s.reply(fmt.Sprintf(msgMovedTo, s.id, room))
	} else {
		s.reply(fmt.Sprintf(msgYouJoined, room))
	}
	n := reg.BroadcastRoom(room, JoinNotice(s.id, room), s.conn)
	s.log.Debug("session.joined", "room", room.String(), "notified", n)
}

func (s *session) chat(text string) {
	if s.room == RoomNone {
		s.reply(msgNotInRoom)
		return
	}
	if s.limiter != nil && !s.limiter.take() {
		s.reply(msgRateLimited)
		s.log.Warn("session.rate_limited", "burst", s.srv.cfg.RateLimit.Burst, "interval", s.srv.cfg.RateLimit.RefillInterval)
		return
	}
	s.srv.reg.BroadcastRoom(s.room, ChatLine(s.id, s.room, text), s.conn)
	s.srv.metrics.chatRelayed(s.room)
}

// reply writes to this session's own client. Failures surface on the next read.
func (s *session) reply(line string) {
	if err := s.conn.Send(line); err != nil {
		s.log.Debug("session.reply_failed", "err", err)
	}
}
