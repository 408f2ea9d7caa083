package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Tyrowin/roomchat/internal/server"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s <port>\n", os.Args[0])
		os.Exit(1)
	}
	port, err := strconv.Atoi(os.Args[1])
	if err != nil || port <= 0 || port > 65535 {
		fmt.Printf("Usage: %s <port>\n", os.Args[0])
		os.Exit(1)
	}

	// Local .env is optional
	_ = godotenv.Load()

	cfg := server.NewConfigFromEnv()
	cfg.Port = fmt.Sprintf(":%d", port)
	logger := server.NewLogger(cfg.LogFormat, cfg.LogLevel, os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := server.New(*cfg, logger)

	// Operator console on stdin
	console := server.NewConsole(srv, os.Stdout)
	go func() {
		if err := console.Run(os.Stdin); err != nil {
			logger.Warn("console.stopped", "err", err)
		}
	}()

	var ops *http.Server
	if cfg.OpsAddr != "" {
		ops = server.CreateServer(cfg.OpsAddr, srv.SetupRoutes())
		go func() {
			if err := srv.StartServer(ops); err != nil {
				logger.Error("ops.crash", "err", err)
			}
		}()
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server.crash", "err", err)
		os.Exit(1)
	}

	if ops != nil {
		_ = srv.ShutdownServer(ops, 5*time.Second)
	}
	_ = srv.Shutdown(5 * time.Second)
}
