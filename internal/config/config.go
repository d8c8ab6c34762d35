// Package config loads process configuration from an optional .env file
// and the environment. Command-line flags override these values.
package config

import (
	"net"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults used when neither the environment nor flags say otherwise.
const (
	DefaultHost   = "127.0.0.1"
	DefaultPort   = 9999
	DefaultWSPort = 0 // disabled
)

// Config holds the process boundary settings: listen addresses and the
// operator quiet-mode flag.
type Config struct {
	Host   string
	Port   int
	WSPort int
	Quiet  bool
}

// Load reads the .env file if one exists, then fills the Config from the
// environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Host:   DefaultHost,
		Port:   DefaultPort,
		WSPort: DefaultWSPort,
	}
	if v := os.Getenv("CHAT_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("CHAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("CHAT_WS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.WSPort = port
		}
	}
	if v := os.Getenv("CHAT_QUIET"); v != "" {
		if quiet, err := strconv.ParseBool(v); err == nil {
			cfg.Quiet = quiet
		}
	}
	return cfg
}

// Addr returns the TCP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WSAddr returns the WebSocket listen address, or "" when disabled.
func (c Config) WSAddr() string {
	if c.WSPort == 0 {
		return ""
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.WSPort))
}
