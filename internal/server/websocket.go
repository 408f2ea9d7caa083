// Package server carries the line protocol over WebSocket so browser clients
// share the same registry and rooms as TCP clients.
package server

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// wsConn adapts a WebSocket connection to LineConn. Each text frame may hold
// several lines; each outbound line is sent as its own text frame.
type wsConn struct {
	ws           *websocket.Conn
	addr         string
	writeTimeout time.Duration
	pending      []string
	log          *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(ws *websocket.Conn, addr string, maxLine int, writeTimeout time.Duration, logger *slog.Logger) *wsConn {
	ws.SetReadLimit(int64(maxLine))
	c := &wsConn{
		ws:           ws,
		addr:         addr,
		writeTimeout: writeTimeout,
		log:          logger,
		done:         make(chan struct{}),
	}
	c.setupReadConnection()
	go c.pingLoop()
	return c
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *wsConn) setupReadConnection() {
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Debug("ws.read_deadline", "addr", c.addr, "err", err)
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
}

func (c *wsConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return "", err
		}
		text := strings.TrimRight(string(data), "\r\n")
		c.pending = append(c.pending, strings.Split(text, "\n")...)
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return strings.TrimRight(line, "\r"), nil
}

func (c *wsConn) Send(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("write to %s: %w", c.addr, err)
	}
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		if werr := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); werr != nil && !isExpectedCloseError(werr) {
			c.log.Debug("ws.close_message", "addr", c.addr, "err", werr)
		}
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) RemoteAddr() string {
	return c.addr
}

// pingLoop keeps idle connections alive until the connection is closed.
func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.log.Debug("ws.ping", "addr", c.addr, "err", err)
				return
			}
		}
	}
}
