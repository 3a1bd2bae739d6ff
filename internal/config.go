package internal

import (
	"fmt"
	"time"
)

// Config is read from the environment by the server binary.
type Config struct {
	SubscriberBufferSize int           `env:"SUBSCRIBER_BUFFER_SIZE,default=256"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	StatsInterval        time.Duration `env:"STATS_INTERVAL,default=30s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`

	ArchiveEnabled bool   `env:"ARCHIVE_ENABLED,default=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,default=./data/bluge"`

	AuthRequired      bool          `env:"AUTH_REQUIRED,default=false"`
	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	ModerationEnabled bool   `env:"MODERATION_ENABLED,default=false"`
	CharReplacement   string `env:"CHARACTER_REPLACEMENT,default=*"`

	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=50051"`
	DebugPort int    `env:"DEBUG_PORT,default=0"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
