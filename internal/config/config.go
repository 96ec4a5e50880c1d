package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all client configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Chat      ChatConfig      `mapstructure:"chat"`
	State     StateConfig     `mapstructure:"state"`
}

// ServerConfig holds backend endpoint configuration
type ServerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	WSURL   string `mapstructure:"ws_url"`
	WSPath  string `mapstructure:"ws_path"`
}

// WSEndpoint returns the full websocket endpoint
func (c *ServerConfig) WSEndpoint() string {
	return c.WSURL + c.WSPath
}

// WebSocketConfig holds real-time channel configuration
type WebSocketConfig struct {
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	WriteWait         time.Duration `mapstructure:"write_wait"`
	PongWait          time.Duration `mapstructure:"pong_wait"`
	PingPeriod        time.Duration `mapstructure:"ping_period"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	WriteChannelSize  int           `mapstructure:"write_channel_size"`
}

// ChatConfig holds conversation/timeline tuning
type ChatConfig struct {
	PageSize          int           `mapstructure:"page_size"`
	HighlightDuration time.Duration `mapstructure:"highlight_duration"`
	ReconcileWindow   time.Duration `mapstructure:"reconcile_window"`
}

// StateConfig holds local on-device state configuration
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a config with all defaults applied, without reading a file
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-valued fields
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:5000"
	}
	if cfg.Server.WSURL == "" {
		cfg.Server.WSURL = "ws://localhost:5000"
	}
	if cfg.Server.WSPath == "" {
		cfg.Server.WSPath = "/ws"
	}
	if cfg.WebSocket.MaxMessageSize == 0 {
		cfg.WebSocket.MaxMessageSize = 51200
	}
	if cfg.WebSocket.WriteWait == 0 {
		cfg.WebSocket.WriteWait = 10 * time.Second
	}
	if cfg.WebSocket.PongWait == 0 {
		cfg.WebSocket.PongWait = 30 * time.Second
	}
	if cfg.WebSocket.PingPeriod == 0 {
		cfg.WebSocket.PingPeriod = (cfg.WebSocket.PongWait * 9) / 10
	}
	if cfg.WebSocket.ReconnectAttempts == 0 {
		cfg.WebSocket.ReconnectAttempts = 5
	}
	if cfg.WebSocket.ReconnectDelay == 0 {
		cfg.WebSocket.ReconnectDelay = 2 * time.Second
	}
	if cfg.WebSocket.RequestTimeout == 0 {
		cfg.WebSocket.RequestTimeout = 10 * time.Second
	}
	if cfg.WebSocket.WriteChannelSize == 0 {
		cfg.WebSocket.WriteChannelSize = 256
	}
	if cfg.Chat.PageSize == 0 {
		cfg.Chat.PageSize = 20
	}
	if cfg.Chat.HighlightDuration == 0 {
		cfg.Chat.HighlightDuration = time.Second
	}
	if cfg.Chat.ReconcileWindow == 0 {
		cfg.Chat.ReconcileWindow = 10 * time.Second
	}
}
