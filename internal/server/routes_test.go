package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/Tyrowin/roomchat/internal/testhelpers"
)

// startOpsServer serves the ops routes on an httptest server.
func startOpsServer(t *testing.T, cfg *server.Config) (*server.Server, *httptest.Server) {
	t.Helper()

	srv := server.New(*cfg, discardLogger())
	ts := httptest.NewServer(srv.SetupRoutes())
	t.Cleanup(func() {
		_ = srv.Shutdown(testhelpers.DefaultTimeout)
		ts.Close()
	})
	return srv, ts
}

// dialWS connects to the gateway and consumes the greeting.
func dialWS(t *testing.T, ts *httptest.Server, id int) *websocket.Conn {
	t.Helper()

	conn, err := testhelpers.ConnectWebSocket(testhelpers.ToWebSocketURL(ts.URL, "/ws"))
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	testhelpers.ExpectWSLine(t, conn, "Welcome! Your client id is "+strconv.Itoa(id))
	testhelpers.ExpectWSLine(t, conn, "Welcome! Enter room: A / B / C (example: A)")
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("Failed to send %q: %v", text, err)
	}
}

// TestHealthHandler tests the health check endpoint.
func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	server.HealthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "roomchat server is running!" {
		t.Errorf("Unexpected body %q", body)
	}
}

// TestClientsHandler verifies the JSON registry listing.
func TestClientsHandler(t *testing.T) {
	srv, ts := startOpsServer(t, server.NewConfig())
	c := acceptFake(t, srv, 1)
	joinFake(t, c, "B")

	resp, err := http.Get(ts.URL + "/clients")
	if err != nil {
		t.Fatalf("GET /clients: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var slots []struct {
		Slot    int    `json:"slot"`
		Active  bool   `json:"active"`
		ID      int    `json:"id"`
		Room    string `json:"room"`
		Addr    string `json:"addr"`
		Session string `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&slots); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(slots) != server.MaxClients {
		t.Fatalf("Got %d slots, want %d", len(slots), server.MaxClients)
	}
	first := slots[0]
	if !first.Active || first.ID != 1 || first.Room != "B" || first.Addr != "192.0.2.1:4000" || first.Session == "" {
		t.Errorf("slot 0 = %+v", first)
	}
	for _, s := range slots[1:] {
		if s.Active || s.Addr != "" {
			t.Errorf("slot %d should be empty: %+v", s.Slot, s)
		}
	}
}

// TestClientsHandlerRejectsPost verifies non-GET methods are refused.
func TestClientsHandlerRejectsPost(t *testing.T) {
	srv := server.New(*server.NewConfig(), discardLogger())
	req := httptest.NewRequest(http.MethodPost, "/clients", nil)
	w := httptest.NewRecorder()

	srv.ClientsHandler(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

// TestMetricsEndpoint verifies relay counters are exported.
func TestMetricsEndpoint(t *testing.T) {
	srv, ts := startOpsServer(t, server.NewConfig())
	c1 := acceptFake(t, srv, 1)
	c2 := acceptFake(t, srv, 2)
	joinFake(t, c1, "A")
	joinFake(t, c2, "A")
	c2.Feed("hi")
	c2.Feed("B")
	c2.WaitForLine(t, "You joined RoomB")

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"roomchat_active_clients 2",
		`roomchat_chat_messages_total{room="A"} 1`,
		"roomchat_disconnects_total 0",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

// TestWebSocketJoinAndChat verifies WebSocket and TCP-style clients share rooms.
func TestWebSocketJoinAndChat(t *testing.T) {
	srv, ts := startOpsServer(t, server.NewConfig())

	fake := acceptFake(t, srv, 1)
	joinFake(t, fake, "A")

	ws := dialWS(t, ts, 2)
	sendWS(t, ws, "A")
	testhelpers.ExpectWSLine(t, ws, "You joined RoomA")
	fake.WaitForLine(t, "[Server] Client 2 joined RoomA.")

	sendWS(t, ws, "from the browser")
	fake.WaitForLine(t, "Client2@RoomA: from the browser")

	fake.Feed("from the terminal")
	testhelpers.ExpectWSLine(t, ws, "Client1@RoomA: from the terminal")
}

// TestWebSocketMultiLineFrame verifies one frame may carry several lines.
func TestWebSocketMultiLineFrame(t *testing.T) {
	srv, ts := startOpsServer(t, server.NewConfig())
	fake := acceptFake(t, srv, 1)
	joinFake(t, fake, "C")

	ws := dialWS(t, ts, 2)
	sendWS(t, ws, "C\r\nfirst\nsecond\n")
	testhelpers.ExpectWSLine(t, ws, "You joined RoomC")

	fake.WaitForLine(t, "Client2@RoomC: first")
	fake.WaitForLine(t, "Client2@RoomC: second")
}

// TestWebSocketExit verifies EXIT! over WebSocket says goodbye and closes.
func TestWebSocketExit(t *testing.T) {
	srv, ts := startOpsServer(t, server.NewConfig())
	ws := dialWS(t, ts, 1)

	sendWS(t, ws, "EXIT!")
	testhelpers.ExpectWSLine(t, ws, "Goodbye!")

	_ = ws.SetReadDeadline(time.Now().Add(testhelpers.DefaultTimeout))
	_, _, err := ws.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("Expected normal close, got %v", err)
	}
	waitUntil(t, "slot to be freed", func() bool { return srv.Registry().ActiveCount() == 0 })
}

// TestWebSocketServerFull verifies the gateway applies the same capacity limit.
func TestWebSocketServerFull(t *testing.T) {
	srv, ts := startOpsServer(t, server.NewConfig())
	for id := 1; id <= server.MaxClients; id++ {
		acceptFake(t, srv, id)
	}

	conn, err := testhelpers.ConnectWebSocket(testhelpers.ToWebSocketURL(ts.URL, "/ws"))
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer func() { _ = conn.Close() }()

	testhelpers.ExpectWSLine(t, conn, "Server is full!")
	if srv.Registry().ActiveCount() != server.MaxClients {
		t.Error("rejected WebSocket changed the registry")
	}
}

// TestWebSocketOriginPolicy verifies the Origin header is checked on upgrade.
func TestWebSocketOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		allowed bool
	}{
		{"listed origin", []string{"http://localhost:8080"}, "http://localhost:8080", true},
		{"listed origin case-insensitive", []string{"http://LOCALHOST:8080"}, "http://localhost:8080", true},
		{"unlisted origin", []string{"http://localhost:8080"}, "http://evil.example", false},
		{"missing origin", []string{"http://localhost:8080"}, "", false},
		{"wildcard", []string{"*"}, "http://anything.example", true},
		{"wildcard still needs origin", []string{"*"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := server.NewConfig()
			cfg.AllowedOrigins = tt.origins
			_, ts := startOpsServer(t, cfg)

			conn, err := testhelpers.ConnectWebSocketWithOrigin(testhelpers.ToWebSocketURL(ts.URL, "/ws"), tt.origin)
			if conn != nil {
				defer func() { _ = conn.Close() }()
			}
			if tt.allowed && err != nil {
				t.Errorf("Expected connection to succeed, got %v", err)
			}
			if !tt.allowed && err == nil {
				t.Error("Expected connection to be rejected")
			}
		})
	}
}

// TestWebSocketRejectsPost verifies the gateway only accepts GET.
func TestWebSocketRejectsPost(t *testing.T) {
	_, ts := startOpsServer(t, server.NewConfig())

	resp, err := http.Post(ts.URL+"/ws", "text/plain", strings.NewReader("hi"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", resp.StatusCode)
	}
}

// TestCORSPreflight verifies allowed origins get CORS headers on the ops routes.
func TestCORSPreflight(t *testing.T) {
	_, ts := startOpsServer(t, server.NewConfig())

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/clients", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", testhelpers.TestOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != testhelpers.TestOrigin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, testhelpers.TestOrigin)
	}
}
