// Package internal holds the server process configuration.
package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,default=./data/chat"`
	TokenSecret          string        `env:"TOKEN_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	MaxMessageLength     int           `env:"MAX_MESSAGE_LENGTH,default=1000"`
	HistoryDefaultLimit  int           `env:"HISTORY_DEFAULT_LIMIT,default=50"`
	HistoryMaxLimit      int           `env:"HISTORY_MAX_LIMIT,default=100"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`
	ReadLimitBytes       int64         `env:"READ_LIMIT_BYTES,default=8192"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	GCInterval           time.Duration `env:"GC_INTERVAL,default=5m"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
}

// CharacterRune validates that the configured replacement is one rune.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
