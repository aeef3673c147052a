package client

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the file- and environment-loadable client configuration.
type Config struct {
	ServerURL  string `yaml:"server_url" env:"LIVECHAT_SERVER_URL"`
	APIBaseURL string `yaml:"api_base_url" env:"LIVECHAT_API_BASE_URL"`
	APIKey     string `yaml:"api_key" env:"LIVECHAT_API_KEY"`

	UserID   string `yaml:"user_id" env:"LIVECHAT_USER_ID"`
	Username string `yaml:"username" env:"LIVECHAT_USERNAME"`
	RoomID   string `yaml:"room_id" env:"LIVECHAT_ROOM_ID"`
	Role     string `yaml:"role" env:"LIVECHAT_ROLE"`
	Avatar   string `yaml:"avatar" env:"LIVECHAT_AVATAR"`
	Color    string `yaml:"color" env:"LIVECHAT_COLOR"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"LIVECHAT_HEARTBEAT_INTERVAL" envDefault:"30s"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay" env:"LIVECHAT_RECONNECT_DELAY" envDefault:"3s"`
}

// LoadFile reads a YAML config file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Config{
		HeartbeatInterval: defaultHeartbeatInterval,
		ReconnectDelay:    defaultReconnectDelay,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv reads the configuration from LIVECHAT_* environment
// variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields every session needs.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("config: server_url is required")
	}
	if c.UserID == "" {
		return fmt.Errorf("config: user_id is required")
	}
	if c.RoomID == "" {
		return fmt.Errorf("config: room_id is required")
	}
	return nil
}

// Identity builds the session identity from the config.
func (c Config) Identity() Identity {
	return Identity{
		UserID:   c.UserID,
		Username: c.Username,
		RoomID:   c.RoomID,
		Role:     c.Role,
		Avatar:   c.Avatar,
		Color:    c.Color,
	}
}

// Options builds the client options implied by the config.
func (c Config) Options() []Option {
	opts := []Option{
		WithHeartbeatInterval(c.HeartbeatInterval),
	}
	if c.APIKey != "" {
		opts = append(opts, WithAPIKey(c.APIKey))
	}
	if c.ReconnectDelay > 0 {
		opts = append(opts, WithReconnectPolicy(ReconnectPolicy{Delay: c.ReconnectDelay}))
	}
	return opts
}
