// Package config provides configuration helpers for dronedeck commands.
package config

import (
	"fmt"
	"os"
)

// Default simulator and web configuration.
const (
	DefaultSimHost   = "127.0.0.1"
	DefaultSimPort   = "23050"
	DefaultWebPort   = "8080"
	DefaultTransport = "http"
)

// SimHost returns the simulator bridge host from SIM_HOST.
// Falls back to the default if not set.
func SimHost() string {
	if host := os.Getenv("SIM_HOST"); host != "" {
		return host
	}
	return DefaultSimHost
}

// SimPort returns the simulator bridge port from SIM_PORT or the default.
func SimPort() string {
	if port := os.Getenv("SIM_PORT"); port != "" {
		return port
	}
	return DefaultSimPort
}

// SimAPIURL returns the simulator bridge HTTP API URL.
func SimAPIURL() string {
	return fmt.Sprintf("http://%s:%s", SimHost(), SimPort())
}

// SimWSURL returns the simulator bridge WebSocket URL.
func SimWSURL() string {
	return fmt.Sprintf("ws://%s:%s/ws", SimHost(), SimPort())
}

// SimTransport returns "http" or "ws" from SIM_TRANSPORT or the default.
func SimTransport() string {
	if t := os.Getenv("SIM_TRANSPORT"); t != "" {
		return t
	}
	return DefaultTransport
}

// WebPort returns the dashboard listen port from WEB_PORT or the default.
func WebPort() string {
	if port := os.Getenv("WEB_PORT"); port != "" {
		return port
	}
	return DefaultWebPort
}

// GoogleAPIKey returns the speech API key from GOOGLE_API_KEY.
// Returns an empty string when voice control is unavailable.
func GoogleAPIKey() string {
	return os.Getenv("GOOGLE_API_KEY")
}
