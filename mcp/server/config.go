package server

import "log/slog"

// Config holds configuration for the MiniSafe MCP server
type Config struct {
	// Name and Version are reported to MCP clients during initialization
	Name    string
	Version string

	// ReadOnly registers only the tools that do not submit transactions
	ReadOnly bool

	// Logger receives one entry per tool call. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with default settings
func DefaultConfig() *Config {
	return &Config{
		Name:    "minisafe",
		Version: "0.1.0",
		Logger:  slog.Default(),
	}
}
