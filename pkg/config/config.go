// Copyright 2026 Manifold Works
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads server configuration.
// Priority: CLI flags > config file > env vars > defaults.
package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is the base name of the optional config file
// (manifold.yaml).
const DefaultConfigFileName = "manifold"

// Config holds all configuration for the server.
type Config struct {
	// Name is the server identity reported to clients.
	Name string `mapstructure:"name"`

	// Version is the server version reported to clients.
	Version string `mapstructure:"version"`

	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR (case-insensitive).
	LogLevel string `mapstructure:"log_level"`

	CORSEnabled bool     `mapstructure:"cors_enabled"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// MCPEndpoint is the JSON-RPC POST path.
	MCPEndpoint string `mapstructure:"mcp_endpoint"`

	// WSEndpoint is the WebSocket upgrade path.
	WSEndpoint string `mapstructure:"ws_endpoint"`
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load reads configuration from the given file (optional), the
// environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/manifold/")
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
		// No config file; defaults + env vars + flags apply.
	}

	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "manifold")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "INFO")
	v.SetDefault("cors_enabled", false)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("mcp_endpoint", "/mcp")
	v.SetDefault("ws_endpoint", "/ws")
}

// bindEnv maps the flat environment variable names onto config keys.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("name", "SERVER_NAME")
	_ = v.BindEnv("version", "SERVER_VERSION")
	_ = v.BindEnv("host", "SERVER_HOST")
	_ = v.BindEnv("port", "SERVER_PORT")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("cors_enabled", "CORS_ENABLED")
	_ = v.BindEnv("cors_origins", "CORS_ORIGINS")
	_ = v.BindEnv("mcp_endpoint", "MCP_ENDPOINT")
	_ = v.BindEnv("ws_endpoint", "WS_ENDPOINT")
}
