package server_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Tyrowin/roomchat/internal/server"
)

// TestConsoleList verifies the listing shows every slot in index order.
func TestConsoleList(t *testing.T) {
	srv := newTestServer(t, server.Config{})
	acceptFake(t, srv, 1)
	c2 := acceptFake(t, srv, 2)
	acceptFake(t, srv, 3)
	joinFake(t, c2, "B")

	var out bytes.Buffer
	console := server.NewConsole(srv, &out)
	console.Exec("/list")

	want := "Client list:\n" +
		"  id=1 addr=192.0.2.1:4000 room=-\n" +
		"  id=2 addr=192.0.2.2:4000 room=B\n" +
		"  id=3 addr=192.0.2.3:4000 room=-\n" +
		"  slot 4 empty\n" +
		"  slot 5 empty\n"
	if out.String() != want {
		t.Errorf("listing =\n%s\nwant\n%s", out.String(), want)
	}
}

// TestConsoleAnnounce verifies announcements reach every client, roomless
// ones included.
func TestConsoleAnnounce(t *testing.T) {
	srv := newTestServer(t, server.Config{})
	c1 := acceptFake(t, srv, 1)
	c2 := acceptFake(t, srv, 2)
	joinFake(t, c2, "A")

	var out bytes.Buffer
	console := server.NewConsole(srv, &out)
	console.Exec("/announce server restarts at 5")

	c1.WaitForLine(t, "[ANNOUNCE] server restarts at 5")
	c2.WaitForLine(t, "[ANNOUNCE] server restarts at 5")
	if out.Len() != 0 {
		t.Errorf("announce printed %q to the console", out.String())
	}
}

// TestConsoleAnnounceCount verifies AnnounceAll reports its recipients.
func TestConsoleAnnounceCount(t *testing.T) {
	srv := newTestServer(t, server.Config{})
	console := server.NewConsole(srv, &bytes.Buffer{})

	if n := console.AnnounceAll("nobody home"); n != 0 {
		t.Errorf("AnnounceAll on empty server = %d", n)
	}

	acceptFake(t, srv, 1)
	acceptFake(t, srv, 2)
	if n := console.AnnounceAll("two"); n != 2 {
		t.Errorf("AnnounceAll = %d, want 2", n)
	}
}

// TestConsoleUsage verifies unknown commands print the usage hint.
func TestConsoleUsage(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"unknown command", "/kick 1", "Use /announce <msg> to broadcast to all clients, /list to view clients\n"},
		{"announce without space", "/announce", "Use /announce <msg> to broadcast to all clients, /list to view clients\n"},
		{"empty line", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, server.Config{})
			var out bytes.Buffer
			server.NewConsole(srv, &out).Exec(tt.line)
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

// TestConsoleRun verifies Run executes lines until input ends.
func TestConsoleRun(t *testing.T) {
	srv := newTestServer(t, server.Config{})
	c := acceptFake(t, srv, 1)

	var out bytes.Buffer
	input := strings.NewReader("/announce one\n\n/list\n")
	if err := server.NewConsole(srv, &out).Run(input); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	c.WaitForLine(t, "[ANNOUNCE] one")
	if !strings.HasPrefix(out.String(), "Client list:\n  id=1 addr=192.0.2.1:4000 room=-\n") {
		t.Errorf("unexpected listing: %q", out.String())
	}
}
