// Package client provides the terminal side of a roomchat connection: server
// lines are copied to the terminal while terminal lines are sent to the server.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"
)

// ExitCommand ends the session on both sides.
const ExitCommand = "EXIT!"

// DefaultExitGrace is how long the client waits for the server's farewell
// after sending ExitCommand.
const DefaultExitGrace = 100 * time.Millisecond

// Dial connects to a roomchat server.
func Dial(ctx context.Context, host, port string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("connect %s:%s: %w", host, port, err)
	}
	return conn, nil
}

// Session is one bidirectional terminal session over Conn.
type Session struct {
	Conn      net.Conn
	In        io.Reader
	Out       io.Writer
	ExitGrace time.Duration

	closing atomic.Bool
}

// Run pumps lines both ways until the user exits, input ends, the server
// closes the connection, or ctx is cancelled. The connection is closed on return.
func (s *Session) Run(ctx context.Context) error {
	grace := s.ExitGrace
	if grace <= 0 {
		grace = DefaultExitGrace
	}

	recvDone := make(chan struct{})
	go s.receive(recvDone)

	lines := make(chan string)
	go readLines(s.In, lines, recvDone)

	for {
		select {
		case <-ctx.Done():
			s.close(recvDone)
			return ctx.Err()

		case <-recvDone:
			_ = s.Conn.Close()
			return nil

		case line, ok := <-lines:
			if !ok {
				s.close(recvDone)
				return nil
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				continue
			}
			if line == ExitCommand {
				s.closing.Store(true)
			}
			if _, err := io.WriteString(s.Conn, line+"\n"); err != nil {
				s.close(recvDone)
				return fmt.Errorf("send: %w", err)
			}
			if line == ExitCommand {
				select {
				case <-recvDone:
				case <-time.After(grace):
				}
				s.close(recvDone)
				return nil
			}
		}
	}
}

// receive copies server output to Out until the connection ends.
func (s *Session) receive(done chan<- struct{}) {
	defer close(done)
	_, _ = io.Copy(s.Out, s.Conn)
	if !s.closing.Load() {
		fmt.Fprintln(s.Out, "[Client] Connection closed by server.")
	}
}

func (s *Session) close(recvDone <-chan struct{}) {
	s.closing.Store(true)
	_ = s.Conn.Close()
	<-recvDone
}

func readLines(in io.Reader, out chan<- string, stop <-chan struct{}) {
	defer close(out)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-stop:
			return
		}
	}
}
