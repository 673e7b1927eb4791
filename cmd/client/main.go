package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the terminal client's environment variables.
type Config struct {
	ServerURL string `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	WSURL     string `envconfig:"WS_URL" default:"ws://localhost:8080/ws"`
	Username  string `envconfig:"USERNAME" required:"true"`
	Password  string `envconfig:"PASSWORD" required:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run logs in, opens the live connection, prints incoming events, and sends
// stdin lines as chat messages until interrupted.
func run() (int, error) {
	var config Config
	if err := envconfig.Process("chat", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := login(ctx, config)
	if err != nil {
		return exitRuntime, err
	}
	color.Green.Printf("Logged in as %s\n", config.Username)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.WSURL, header)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.WSURL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go receive(conn, done)
	go send(ctx, conn)

	select {
	case <-ctx.Done():
		color.Yellow.Println("\nDisconnecting...")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	case <-done:
		color.Yellow.Println("Server closed the connection")
	}
	return exitOK, nil
}

func login(ctx context.Context, config Config) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"username": config.Username,
		"password": config.Password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		config.ServerURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	var session struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", err
	}
	return session.Token, nil
}

// serverEvent is the superset of outbound event payloads; Type selects
// which fields are meaningful.
type serverEvent struct {
	Type      string    `json:"type"`
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Greeting  string    `json:"greeting"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func receive(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var evt serverEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			continue
		}
		printEvent(evt)
	}
}

func printEvent(evt serverEvent) {
	switch evt.Type {
	case "welcome":
		color.Green.Println(evt.Greeting)
	case "joined":
		color.Gray.Printf("* %s joined\n", evt.Username)
	case "left":
		color.Gray.Printf("* %s left\n", evt.Username)
	case "message":
		color.Cyan.Printf("[%s] ", evt.Username)
		fmt.Println(evt.Text)
	case "typing_start":
		color.Gray.Printf("… %s is typing\n", evt.Username)
	case "typing_stop":
		// Quiet; terminal output has no line to clear.
	case "error":
		color.Red.Printf("! %s\n", evt.Message)
	}
}

func send(ctx context.Context, conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		text := scanner.Text()
		if text == "" {
			continue
		}
		frame, _ := json.Marshal(map[string]string{"type": "message", "text": text})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}
