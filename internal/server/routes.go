// Package server wires ops HTTP handlers into a ServeMux wrapped with CORS.
package server

import (
	"net/http"

	"github.com/rs/cors"
)

// SetupRoutes returns the ops handler: health, metrics, client listing and
// the WebSocket gateway, with CORS applied for the configured origins.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", HealthHandler)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/clients", s.ClientsHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}
