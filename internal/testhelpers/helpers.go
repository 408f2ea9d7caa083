// Package testhelpers provides common utilities and helper functions for testing the roomchat server.
//
// It offers a line-oriented TCP test client, an in-memory connection that
// satisfies the server's connection interface, and WebSocket dialing helpers
// so tests across packages share the same plumbing.
package testhelpers

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultTimeout bounds every expectation helper.
const DefaultTimeout = 2 * time.Second

// TestOrigin is the Origin header sent by WebSocket test clients.
const TestOrigin = "http://localhost:8080"

// LineClient is a raw TCP client speaking the newline-terminated protocol.
type LineClient struct {
	Conn   net.Conn
	reader *bufio.Reader
}

// DialTCP connects to addr and registers cleanup with t.
func DialTCP(t *testing.T, addr string) *LineClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, DefaultTimeout)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &LineClient{Conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes line followed by a newline.
func (c *LineClient) Send(t *testing.T, line string) {
	t.Helper()

	if err := c.Conn.SetWriteDeadline(time.Now().Add(DefaultTimeout)); err != nil {
		t.Fatalf("Failed to set write deadline: %v", err)
	}
	if _, err := c.Conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("Failed to send %q: %v", line, err)
	}
}

// ReadLine reads one line without its terminator, waiting at most timeout.
func (c *LineClient) ReadLine(timeout time.Duration) (string, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return line, err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ExpectLine fails the test unless the next line equals want.
func (c *LineClient) ExpectLine(t *testing.T, want string) {
	t.Helper()

	got, err := c.ReadLine(DefaultTimeout)
	if err != nil {
		t.Fatalf("Expected line %q, got error: %v", want, err)
	}
	if got != want {
		t.Fatalf("Expected line %q, got %q", want, got)
	}
}

// ExpectNoLine fails the test if any line arrives within d.
func (c *LineClient) ExpectNoLine(t *testing.T, d time.Duration) {
	t.Helper()

	line, err := c.ReadLine(d)
	if err == nil {
		t.Fatalf("Expected no line, got %q", line)
	}
	if !isTimeout(err) {
		t.Fatalf("Expected read timeout, got: %v", err)
	}
}

// ExpectClosed fails the test unless the server closes the connection.
func (c *LineClient) ExpectClosed(t *testing.T) {
	t.Helper()

	line, err := c.ReadLine(DefaultTimeout)
	if err == nil {
		t.Fatalf("Expected connection to be closed, got line %q", line)
	}
	if isTimeout(err) {
		t.Fatal("Expected connection to be closed, but read timed out")
	}
}

// Join connects, consumes the greeting, joins room, and consumes the join reply.
func Join(t *testing.T, addr string, id int, room string) *LineClient {
	t.Helper()

	c := DialTCP(t, addr)
	c.ExpectLine(t, "Welcome! Your client id is "+strconv.Itoa(id))
	c.ExpectLine(t, "Welcome! Enter room: A / B / C (example: A)")
	if room != "" {
		c.Send(t, room)
		c.ExpectLine(t, "You joined Room"+room)
	}
	return c
}

// ConnectWebSocket creates a WebSocket connection to the specified URL.
// It returns the connection or an error if connection fails.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin dials url sending origin (omitted when empty).
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// ExpectWSLine fails the test unless the next text frame equals want.
func ExpectWSLine(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(DefaultTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Expected frame %q, got error: %v", want, err)
	}
	if string(data) != want {
		t.Fatalf("Expected frame %q, got %q", want, string(data))
	}
}

// ToWebSocketURL converts an httptest server URL to its ws:// form.
func ToWebSocketURL(httpURL, path string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + path
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, os.ErrDeadlineExceeded)
}
