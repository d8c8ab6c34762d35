package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/client"
	"github.com/dward2nd/cscmu-chat-mini-project/internal/client/ws"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9999", "Server address (e.g., 127.0.0.1:9999)")
	useWS := flag.Bool("ws", false, "Connect over WebSocket instead of plain TCP")
	flag.Parse()

	session := client.NewChatClient(os.Stdin, os.Stdout)

	var c *client.Client
	if *useWS {
		c = client.NewWithDialer(*serverAddr, session.Handle, ws.Dial)
	} else {
		c = client.New(*serverAddr, session.Handle)
	}
	c.Quiet = true

	if err := c.Run(); err != nil {
		if errors.Is(err, client.ErrRefused) {
			log.Fatalf("Failed to connect to %s: %v", *serverAddr, err)
		}
		log.Fatalf("Connection to server lost: %v", err)
	}

	log.Println("Disconnected from server")
}
