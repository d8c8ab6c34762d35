package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/config"
	"github.com/dward2nd/cscmu-chat-mini-project/internal/server"
	"github.com/dward2nd/cscmu-chat-mini-project/internal/transport/ws"
)

func main() {
	cfg := config.Load()
	host := flag.String("host", cfg.Host, "Host to listen on")
	port := flag.Int("port", cfg.Port, "Port to listen on for TCP clients")
	wsPort := flag.Int("ws-port", cfg.WSPort, "Port to listen on for WebSocket clients (0 disables)")
	quiet := flag.Bool("quiet", cfg.Quiet, "Suppress connection status logging")
	flag.Parse()
	cfg.Host, cfg.Port, cfg.WSPort, cfg.Quiet = *host, *port, *wsPort, *quiet

	// Typing "qt" on the server console triggers a graceful shutdown.
	srv := server.New(cfg.Addr(), cfg.Quiet, os.Stdin)

	var wsSrv *ws.Server
	if cfg.WSAddr() != "" {
		wsSrv = ws.New(cfg.WSAddr(), srv.Handle)
		wsSrv.Quiet = cfg.Quiet
		go func() {
			if err := wsSrv.Start(); err != nil {
				log.Fatalf("WebSocket server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		if err := srv.Stop(); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}

	if wsSrv != nil && wsSrv.Running() {
		if err := wsSrv.Stop(); err != nil {
			log.Printf("WebSocket server shutdown failed: %v", err)
		}
	}

	log.Println("Server stopped")
}
