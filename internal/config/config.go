package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig locates the agent server.
type ServerConfig struct {
	// URL is the websocket base, e.g. ws://localhost:8000.
	URL string `yaml:"url"`
	// UserID identifies this client on the /ws/{user_id} endpoint. A random
	// ID is generated when empty.
	UserID string `yaml:"user_id"`
	// IdleTimeoutSeconds ends the session when no frame of any kind arrives
	// for this long. Zero disables the watchdog.
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`
}

// AudioConfig tunes the streaming pipeline. Sample rates are never configured
// here: they are negotiated from the devices at session start.
type AudioConfig struct {
	// MaxBufferSeconds sizes the playback ring as rate×seconds, large
	// enough to absorb worst-case network delay.
	MaxBufferSeconds int `yaml:"max_buffer_seconds"`
	// SendQueueDepth bounds the outbound capture frame queue; frames are
	// dropped, never blocked on, when it fills.
	SendQueueDepth int `yaml:"send_queue_depth"`
}

// Config stores the application configuration.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Audio    AudioConfig  `yaml:"audio"`
	LogLevel string       `yaml:"log_level"`
}

const (
	defaultMaxBufferSeconds = 120
	defaultSendQueueDepth   = 256
)

// LoadConfig loads the configuration from the given file path and applies
// defaults for unset tuning knobs.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.URL == "" {
		return nil, fmt.Errorf("config: server.url is required")
	}
	if cfg.Audio.MaxBufferSeconds <= 0 {
		cfg.Audio.MaxBufferSeconds = defaultMaxBufferSeconds
	}
	if cfg.Audio.SendQueueDepth <= 0 {
		cfg.Audio.SendQueueDepth = defaultSendQueueDepth
	}

	return &cfg, nil
}
