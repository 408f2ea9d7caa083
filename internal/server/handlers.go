// Package server exposes HTTP handlers for the ops listener: health checks,
// the client listing, and the WebSocket gateway.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomchat server is running!")
}

type slotDTO struct {
	Slot    int    `json:"slot"`
	Active  bool   `json:"active"`
	ID      int    `json:"id"`
	Room    string `json:"room,omitempty"`
	Addr    string `json:"addr,omitempty"`
	Session string `json:"session,omitempty"`
}

// ClientsHandler serves the registry snapshot as JSON.
func (s *Server) ClientsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := s.reg.Snapshot()
	resp := make([]slotDTO, 0, len(snapshot))
	for _, info := range snapshot {
		dto := slotDTO{Slot: info.Index, Active: info.Active, ID: info.ID}
		if info.Active {
			dto.Addr = info.Addr
			dto.Session = info.Session
			if info.Room != RoomNone {
				dto.Room = info.Room.String()
			}
		}
		resp = append(resp, dto)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("ops.clients_encode", "err", err)
	}
}

// WebSocketHandler upgrades the request and admits the connection exactly as
// the TCP listener does, including the server-full rejection.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws.upgrade", "addr", r.RemoteAddr, "err", err)
		return
	}

	s.Accept(newWSConn(ws, r.RemoteAddr, s.cfg.MaxMessageSize, s.cfg.WriteTimeout, s.log))
}
