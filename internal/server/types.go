// Package server defines the line protocol's fixed server messages and
// utility helpers that are reused across transports and sessions.
package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

// Server to client lines. Transports append the line terminator.
const (
	msgServerFull   = "Server is full!"
	msgWelcomeID    = "Welcome! Your client id is %d"
	msgRoomPrompt   = "Welcome! Enter room: A / B / C (example: A)"
	msgYouJoined    = "You joined Room%s"
	msgMovedTo      = "[Server] Client %d moved to Room%s."
	msgPeerJoined   = "[Server] Client %d joined Room%s."
	msgInvalidRoom  = "Invalid room. Use A or B or C"
	msgNotInRoom    = "You are not in any room. Enter A/B/C or use /room <A|B|C>"
	msgChat         = "Client%d@Room%s: %s"
	msgAnnouncement = "[ANNOUNCE] %s"
	msgGoodbye      = "Goodbye!"
	msgRateLimited  = "[Server] Too many messages. Message not sent."
)

// ChatLine formats a relayed chat message as room members see it.
func ChatLine(id int, room Room, text string) string {
	return fmt.Sprintf(msgChat, id, room, text)
}

// JoinNotice formats the line sent to a room when a client joins it.
func JoinNotice(id int, room Room) string {
	return fmt.Sprintf(msgPeerJoined, id, room)
}

// AnnouncementLine formats an operator announcement.
func AnnouncementLine(text string) string {
	return fmt.Sprintf(msgAnnouncement, text)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "broken pipe")
}
