package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/roomchat/internal/client"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Printf("Usage: %s <server_ip> <port>\n", os.Args[0])
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := client.Dial(ctx, os.Args[1], os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	s := &client.Session{Conn: conn, In: os.Stdin, Out: os.Stdout}
	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, err)
	}

	fmt.Println("[Client] Exited.")
}
