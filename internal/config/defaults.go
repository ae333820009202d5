package config

import "github.com/bobmcallan/voice-mcp-agent/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8080,
			Host:      "",
			StaticDir: "./frontend",
		},
		Agent: AgentConfig{
			Port:        8081,
			Host:        "localhost",
			ServersFile: "mcp_servers.yaml",
			EnvFile:     ".env",
			Timeout:     "10s",
		},
		Service: ServiceConfig{
			Mode: "unified",
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Outputs: []string{"console"},
		},
	}
}
