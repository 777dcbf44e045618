package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "BOARDLY"
	defaultHTTPAddress       = "0.0.0.0:5000"
	defaultDatabasePath      = "boardly.db"
	defaultLogLevel          = "info"
	defaultHistoryDepth      = 50
	defaultChatLogLimit      = 100
	defaultRoomGracePeriod   = 30 * time.Second
	defaultTypingIdleTimeout = 3 * time.Second
)

// AppConfig captures runtime configuration for the whiteboard server.
type AppConfig struct {
	HTTPAddress       string
	DatabasePath      string
	LogLevel          string
	HistoryDepth      int
	ChatLogLimit      int
	RoomGracePeriod   time.Duration
	TypingIdleTimeout time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("history.depth", defaultHistoryDepth)
	configViper.SetDefault("chat.log_limit", defaultChatLogLimit)
	configViper.SetDefault("room.grace_period", defaultRoomGracePeriod)
	configViper.SetDefault("typing.idle_timeout", defaultTypingIdleTimeout)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		HistoryDepth:      configViper.GetInt("history.depth"),
		ChatLogLimit:      configViper.GetInt("chat.log_limit"),
		RoomGracePeriod:   configViper.GetDuration("room.grace_period"),
		TypingIdleTimeout: configViper.GetDuration("typing.idle_timeout"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.HistoryDepth < 0 {
		return fmt.Errorf("history.depth must not be negative")
	}
	if c.ChatLogLimit < 0 {
		return fmt.Errorf("chat.log_limit must not be negative")
	}
	if c.RoomGracePeriod < 0 {
		return fmt.Errorf("room.grace_period must not be negative")
	}
	if c.TypingIdleTimeout < 0 {
		return fmt.Errorf("typing.idle_timeout must not be negative")
	}
	return nil
}
