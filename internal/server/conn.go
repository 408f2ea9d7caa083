// Package server frames TCP byte streams into newline-terminated lines for
// sessions and the registry.
package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// LineConn is a Conn that sessions can also read lines from. ReadLine is only
// ever called from the owning session's goroutine.
type LineConn interface {
	Conn
	ReadLine() (string, error)
}

// tcpConn adapts a net.Conn to LineConn. Writes are serialized because a
// session's own replies and another session's broadcast can target the same
// connection at once.
type tcpConn struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	maxLine      int
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewTCPConn wraps conn. Lines whose content exceeds maxLine bytes fail the
// read with bufio.ErrTooLong, which the session treats as a transport error.
func NewTCPConn(conn net.Conn, maxLine int, writeTimeout time.Duration) LineConn {
	// The scan buffer also holds the CRLF terminator.
	limit := maxLine + 2
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, min(limit, 4096)), limit)
	return &tcpConn{conn: conn, scanner: scanner, maxLine: maxLine, writeTimeout: writeTimeout}
}

func (c *tcpConn) ReadLine() (string, error) {
	if c.scanner.Scan() {
		line := strings.TrimRight(c.scanner.Text(), "\r\n")
		if len(line) > c.maxLine {
			return "", bufio.ErrTooLong
		}
		return line, nil
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (c *tcpConn) Send(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		return fmt.Errorf("write to %s: %w", c.RemoteAddr(), err)
	}
	return nil
}

func (c *tcpConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *tcpConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
