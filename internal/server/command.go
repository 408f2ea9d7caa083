// Package server classifies inbound client lines into session commands.
package server

import "strings"

// CommandKind identifies what a client line asks the session to do.
type CommandKind int

// Command kinds recognised by ParseCommand.
const (
	CmdEmpty CommandKind = iota
	CmdExit
	CmdJoin
	CmdInvalidRoom
	CmdChat
)

const (
	exitCommand = "EXIT!"
	roomPrefix  = "/room "
)

// Command is a parsed client line.
type Command struct {
	Kind CommandKind
	Room Room
	// ViaRoomCommand is set when the join used "/room X" rather than a bare
	// letter; the two forms answer the joining client differently.
	ViaRoomCommand bool
	Text           string
}

// ParseCommand classifies one line. Only trailing line terminators are
// stripped; everything else, including case and interior spaces, is
// significant.
func ParseCommand(line string) Command {
	line = strings.TrimRight(line, "\r\n")

	switch {
	case line == "":
		return Command{Kind: CmdEmpty}
	case line == exitCommand:
		return Command{Kind: CmdExit}
	case strings.HasPrefix(line, roomPrefix):
		room, ok := ParseRoom(line[len(roomPrefix):])
		if !ok {
			return Command{Kind: CmdInvalidRoom, Text: line}
		}
		return Command{Kind: CmdJoin, Room: room, ViaRoomCommand: true}
	}

	if room, ok := ParseRoom(line); ok {
		return Command{Kind: CmdJoin, Room: room}
	}
	return Command{Kind: CmdChat, Text: line}
}
