package internal

import "time"

// Config is the server configuration, loaded from environment
// variables. The viewer shares it to locate the badger directory.
type Config struct {
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	// PresenceGracePeriod is how long a user keeps their online status
	// after their last connection drops, absorbing quick reconnects.
	PresenceGracePeriod time.Duration `env:"PRESENCE_GRACE_PERIOD,default=5s"`

	EventBufferSize      int           `env:"EVENT_BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=1s"`

	MaxContentLength          int    `env:"MAX_CONTENT_LENGTH,default=2000"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	TimelineCapacity int `env:"TIMELINE_CAPACITY,default=100"`

	DebugPort       int  `env:"DEBUG_PORT,default=8090"`
	EnableInspector bool `env:"ENABLE_INSPECTOR,default=false"`
}

// CensoredChar returns the replacement rune for censored content.
func (c Config) CensoredChar() rune {
	if c.ModerationCharReplacement == "" {
		return '*'
	}
	return []rune(c.ModerationCharReplacement)[0]
}
