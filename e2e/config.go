package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_CHAT_ADDR points at a running server, the suites are skipped when empty
	ChatAddr string `envconfig:"E2E_CHAT_ADDR"`
	Username string `envconfig:"E2E_USERNAME" default:"Dulan"`
	Password string `envconfig:"E2E_PASSWORD" default:"12345"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
