package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/voice-mcp-agent/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig         `toml:"server"`
	Agent   AgentConfig          `toml:"agent"`
	Service ServiceConfig        `toml:"service"`
	Logging common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains settings for the companion web service.
type ServerConfig struct {
	Port      int    `toml:"port"`
	Host      string `toml:"host"`
	StaticDir string `toml:"static_dir"`
}

// AgentConfig contains settings for the agent runtime and its integrations.
type AgentConfig struct {
	Port        int          `toml:"port"`
	Host        string       `toml:"host"`
	ServersFile string       `toml:"servers_file"`
	EnvFile     string       `toml:"env_file"`
	Timeout     string       `toml:"timeout"`
	Peers       []PeerConfig `toml:"peers"`
}

// PeerConfig names a remote agent reachable over the task protocol.
type PeerConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// ServiceConfig selects which services this process runs.
type ServiceConfig struct {
	Mode string `toml:"mode"`
}

// GetTimeout parses and returns the network ceiling for discovery and task calls.
func (c *AgentConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Peer returns the configured peer with the given name.
func (c *AgentConfig) Peer(name string) (PeerConfig, bool) {
	for _, p := range c.Peers {
		if p.Name == name {
			return p, true
		}
	}
	return PeerConfig{}, false
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// PORT and RAILWAY_SERVICE_TYPE keep the names used by the hosting platform.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("AGENT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Agent.Port = p
		}
	}
	if file := os.Getenv("AGENT_SERVERS_FILE"); file != "" {
		config.Agent.ServersFile = file
	}
	if timeout := os.Getenv("AGENT_TIMEOUT"); timeout != "" {
		config.Agent.Timeout = timeout
	}
	if mode := os.Getenv("SERVICE_TYPE"); mode != "" {
		config.Service.Mode = mode
	}
	if mode := os.Getenv("RAILWAY_SERVICE_TYPE"); mode != "" {
		config.Service.Mode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host, mode string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if mode != "" {
		config.Service.Mode = mode
	}
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks mandatory settings and returns one issue per problem found.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}
	if c.Agent.Port <= 0 || c.Agent.Port > 65535 {
		issues = append(issues, fmt.Sprintf("agent.port must be between 1 and 65535 (got %d)", c.Agent.Port))
	}
	if strings.TrimSpace(c.Agent.ServersFile) == "" {
		issues = append(issues, "agent.servers_file is required")
	}
	if c.Agent.Timeout != "" {
		if d, err := time.ParseDuration(c.Agent.Timeout); err != nil || d <= 0 {
			issues = append(issues, fmt.Sprintf("agent.timeout must be a positive duration (got %q)", c.Agent.Timeout))
		}
	}
	seen := make(map[string]bool, len(c.Agent.Peers))
	for i, p := range c.Agent.Peers {
		if p.Name == "" {
			issues = append(issues, fmt.Sprintf("agent.peers[%d].name is required", i))
		} else if seen[p.Name] {
			issues = append(issues, fmt.Sprintf("agent.peers[%d].name %q is duplicated", i, p.Name))
		}
		seen[p.Name] = true
		if p.URL == "" {
			issues = append(issues, fmt.Sprintf("agent.peers[%d].url is required", i))
		}
	}
	if level := strings.ToLower(c.Logging.Level); level != "" && !validLogLevels[level] {
		issues = append(issues, fmt.Sprintf("logging.level %q is not one of trace, debug, info, warn, error", c.Logging.Level))
	}

	return issues
}
