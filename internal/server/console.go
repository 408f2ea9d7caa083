// Package server implements the operator console: a single control actor that
// announces to every client and lists the registry.
package server

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	consoleAnnounce = "/announce "
	consoleList     = "/list"
	consoleUsage    = "Use /announce <msg> to broadcast to all clients, /list to view clients"
)

// Console executes operator commands against a registry. It needs no locking
// of its own; every call goes through the registry's exclusive section.
type Console struct {
	reg     *Registry
	out     io.Writer
	log     *slog.Logger
	metrics *Metrics
}

// NewConsole returns a console that prints listings and hints to out.
func NewConsole(srv *Server, out io.Writer) *Console {
	return &Console{reg: srv.reg, out: out, log: srv.log, metrics: srv.metrics}
}

// AnnounceAll broadcasts text to every connected client and returns the
// number of clients reached.
func (c *Console) AnnounceAll(text string) int {
	n := c.reg.BroadcastAll(AnnouncementLine(text))
	c.metrics.announced()
	c.log.Info("console.announce", "recipients", n)
	return n
}

// ListClients prints every slot, occupied or not, in index order.
func (c *Console) ListClients() {
	var b strings.Builder
	b.WriteString("Client list:\n")
	for _, info := range c.reg.Snapshot() {
		if info.Active {
			fmt.Fprintf(&b, "  id=%d addr=%s room=%s\n", info.ID, info.Addr, info.Room)
		} else {
			fmt.Fprintf(&b, "  slot %d empty\n", info.ID)
		}
	}
	c.print(b.String())
}

// Exec runs one console line.
func (c *Console) Exec(line string) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case line == "":
	case strings.HasPrefix(line, consoleAnnounce):
		c.AnnounceAll(line[len(consoleAnnounce):])
	case line == consoleList:
		c.ListClients()
	default:
		c.print(consoleUsage + "\n")
	}
}

// Run executes lines from in until it is exhausted.
func (c *Console) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		c.Exec(scanner.Text())
	}
	return scanner.Err()
}

func (c *Console) print(s string) {
	if _, err := io.WriteString(c.out, s); err != nil {
		c.log.Warn("console.write", "err", err)
	}
}
