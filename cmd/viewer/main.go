package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"github.com/mrarman0786/chat-app/repositories"
)

// Config defines the viewer's environment variables. It reuses the server's
// store location but nothing else.
type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/chat"`
	LogLevel       string `env:"LOG_LEVEL,default=WARN"`
	Limit          int    `env:"VIEWER_LIMIT,default=50"`
	Offset         int    `env:"VIEWER_OFFSET,default=0"`
}

// The viewer renders stored history as a table without going through the
// server. Read-only mode plus BypassLockGuard allows inspection while the
// server holds the directory lock.
func main() {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repository, err := repositories.NewMessageRepository(db, logger)
	if err != nil {
		log.Fatalf("Failed to open message store: %v", err)
	}

	messages, err := repository.ListRecent(config.Limit, config.Offset)
	if err != nil {
		log.Fatalf("Failed to list messages: %v", err)
	}

	color.Cyan.Printf("chat-app history — %d message(s) from %s\n\n", len(messages), config.BadgerFilepath)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Author", "Sent at (UTC)", "Body"})
	table.SetAutoWrapText(false)
	for _, msg := range messages {
		table.Append([]string{
			fmt.Sprintf("%d", msg.ID),
			msg.Author,
			msg.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			msg.Body,
		})
	}
	table.Render()

	if len(messages) == 0 {
		color.Yellow.Println("No messages stored yet.")
	}
}
