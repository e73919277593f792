package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds MCP server configuration
type Config struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	Transport TransportConfig `json:"transport"`
	Security  SecurityConfig  `json:"security"`
	Tools     ToolsConfig     `json:"tools"`
}

// TransportConfig defines how the MCP server communicates. Only "stdio"
// is served.
type TransportConfig struct {
	Type string `json:"type"`
}

// SecurityConfig bounds tool execution
type SecurityConfig struct {
	// Log every tool call with its arguments
	AuditLog bool `json:"audit_log"`

	// Maximum execution time for one tool call
	TimeoutSeconds int `json:"timeout_seconds"`
}

// ToolsConfig defines which cobra commands to expose as MCP tools
type ToolsConfig struct {
	// Auto-expose all commands that are not excluded
	AutoExpose bool `json:"auto_expose"`

	// Include patterns (regular expressions) for command paths
	Include []string `json:"include"`

	// Exclude patterns, checked first
	Exclude []string `json:"exclude"`

	// Override descriptions for specific commands
	Descriptions map[string]string `json:"descriptions,omitempty"`
}

// DefaultConfig exposes every tool command except the server's own
// management commands.
func DefaultConfig() *Config {
	return &Config{
		Name:        "svgdeck",
		Description: "Places SVG graphics onto PowerPoint slides",
		Version:     "1.0.0",
		Transport: TransportConfig{
			Type: "stdio",
		},
		Security: SecurityConfig{
			AuditLog:       true,
			TimeoutSeconds: 120,
		},
		Tools: ToolsConfig{
			Include: []string{".*"},
			Exclude: []string{"^mcp", "^version$", "^completion", "^help$", "^init-config$"},
		},
	}
}

// LoadConfig loads configuration from file, creating default if not found
func LoadConfig(configPath string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Transport.Type != "stdio" {
		return nil, fmt.Errorf("unsupported transport type: %s", config.Transport.Type)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "svgdeck", "mcp-config.json")
}
