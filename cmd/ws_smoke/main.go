package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"blindbox/internal/logger"
	"blindbox/internal/service"

	"github.com/gorilla/websocket"
)

// Connects to a running server's /ws feed and prints events until -for elapses.
func main() {
	accountID := flag.Int64("account", 1, "account id to sign the token for")
	types := flag.String("types", "", "comma separated event types to subscribe to")
	duration := flag.Duration("for", 30*time.Second, "how long to listen")
	flag.Parse()
	defer logger.Sync()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	service.InitJWT(secret, time.Hour)
	token, err := service.GenerateJWT(*accountID)
	if err != nil {
		logger.Fatal("generate token", "error", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	url := fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, token)
	if *types != "" {
		url += "&types=" + *types
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		logger.Fatal("dial", "error", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(*duration)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Info("read stopped", "error", err)
			break
		}
		fmt.Println(string(msg))
	}
	logger.Info("smoke test finished")
}
