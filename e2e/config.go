package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// PAIRCHAT_SERVER_URL points at a running server; tests skip when empty.
	ServerURL string `envconfig:"PAIRCHAT_SERVER_URL"`
	// E2E_DEBUG_JSON allows dumping full websocket envelopes as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
