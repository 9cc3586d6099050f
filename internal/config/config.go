// Package config loads the demo server's settings. Configuration
// parsing is deliberately kept out of the core library, but every real
// embedder still needs one, so the demo binary carries a normal one: a
// YAML/env-overlaid settings file read with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerSettings configures cmd/ipscd.
type ServerSettings struct {
	Port          uint16
	MaxQueue      int
	RecvTimeoutMs int
	Lite          bool
	IdleTimeout   time.Duration
	LogLevel      string
	MetricsAddr   string
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", 7700)
	v.SetDefault("max_queue", 16)
	v.SetDefault("recv_timeout_ms", 5000)
	v.SetDefault("lite", false)
	v.SetDefault("idle_timeout", "30m")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
}

// Load reads settings from configPath (if non-empty), environment
// variables prefixed IPSCD_, and falls back to built-in defaults.
func Load(configPath string) (ServerSettings, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("ipscd")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return ServerSettings{}, fmt.Errorf("config: %w", err)
		}
	}

	idle, err := time.ParseDuration(v.GetString("idle_timeout"))
	if err != nil {
		return ServerSettings{}, fmt.Errorf("config: idle_timeout: %w", err)
	}

	port := v.GetUint("port")
	if port == 0 || port > 65535 {
		return ServerSettings{}, fmt.Errorf("config: port %d out of range", port)
	}

	return ServerSettings{
		Port:          uint16(port),
		MaxQueue:      v.GetInt("max_queue"),
		RecvTimeoutMs: v.GetInt("recv_timeout_ms"),
		Lite:          v.GetBool("lite"),
		IdleTimeout:   idle,
		LogLevel:      v.GetString("log_level"),
		MetricsAddr:   v.GetString("metrics_addr"),
	}, nil
}
