package testhelpers

import (
	"errors"
	"io"
	"net"
	"slices"
	"sync"
	"testing"
	"time"
)

// ErrSendFailed is returned by a FakeConn configured to fail sends.
var ErrSendFailed = errors.New("fake send failure")

// FakeConn is an in-memory connection. Lines fed with Feed are returned by
// ReadLine; lines the server sends are recorded for inspection.
type FakeConn struct {
	addr string
	in   chan string
	done chan struct{}

	mu         sync.Mutex
	sent       []string
	closeCount int
	failSends  bool
	hungUp     bool
}

// NewFakeConn returns an open FakeConn reporting addr as its remote address.
func NewFakeConn(addr string) *FakeConn {
	return &FakeConn{
		addr: addr,
		in:   make(chan string, 64),
		done: make(chan struct{}),
	}
}

// Feed queues a line for the next ReadLine.
func (c *FakeConn) Feed(line string) {
	c.in <- line
}

// HangUp makes ReadLine return io.EOF once queued lines are drained.
func (c *FakeConn) HangUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hungUp {
		c.hungUp = true
		close(c.in)
	}
}

// FailSends makes every later Send return ErrSendFailed.
func (c *FakeConn) FailSends() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSends = true
}

func (c *FakeConn) ReadLine() (string, error) {
	select {
	case line, ok := <-c.in:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-c.done:
		return "", net.ErrClosed
	}
}

func (c *FakeConn) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failSends {
		return ErrSendFailed
	}
	if c.closeCount > 0 {
		return net.ErrClosed
	}
	c.sent = append(c.sent, line)
	return nil
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeCount++
	if c.closeCount == 1 {
		close(c.done)
	}
	return nil
}

func (c *FakeConn) RemoteAddr() string {
	return c.addr
}

// Sent returns a copy of every line sent so far.
func (c *FakeConn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sent)
}

// CloseCount reports how many times Close was called.
func (c *FakeConn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

// Closed reports whether Close has been called.
func (c *FakeConn) Closed() bool {
	return c.CloseCount() > 0
}

// WaitForLine fails the test unless want has been sent within DefaultTimeout.
func (c *FakeConn) WaitForLine(t *testing.T, want string) {
	t.Helper()

	deadline := time.Now().Add(DefaultTimeout)
	for time.Now().Before(deadline) {
		if slices.Contains(c.Sent(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Line %q never sent; got %q", want, c.Sent())
}

// WaitForClose fails the test unless the connection is closed within DefaultTimeout.
func (c *FakeConn) WaitForClose(t *testing.T) {
	t.Helper()

	select {
	case <-c.done:
	case <-time.After(DefaultTimeout):
		t.Fatal("Connection was never closed")
	}
}
