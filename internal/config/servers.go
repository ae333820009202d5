package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ToolServerEntry is one record of the tool-server list file.
type ToolServerEntry struct {
	Name         string            `yaml:"name"`
	URL          string            `yaml:"url"`
	Type         string            `yaml:"type"`
	Headers      map[string]string `yaml:"headers"`
	AllowedTools []string          `yaml:"allowed_tools"`

	// HasAllowList distinguishes an absent allowed_tools key (allow all)
	// from an explicitly empty list (allow none).
	HasAllowList bool `yaml:"-"`
}

type serversFile struct {
	Servers *[]rawServerEntry `yaml:"servers"`
}

type rawServerEntry struct {
	Name         string            `yaml:"name"`
	URL          string            `yaml:"url"`
	Type         string            `yaml:"type"`
	Headers      map[string]string `yaml:"headers"`
	AllowedTools *[]string         `yaml:"allowed_tools"`
}

var envRef = regexp.MustCompile(`\$\{(\w+)\}`)

// ExpandEnv replaces every ${NAME} in value with the environment value of
// NAME. Unset variables expand to the empty string; bare $NAME is left alone.
func ExpandEnv(value string) string {
	return envRef.ReplaceAllStringFunc(value, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadToolServers reads the YAML tool-server list at path. Header values are
// expanded with ExpandEnv and a missing name defaults to the url.
func LoadToolServers(path string) ([]ToolServerEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool server config %s: %w", path, err)
	}

	var file serversFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tool server config %s: %w", path, err)
	}
	if file.Servers == nil {
		return nil, fmt.Errorf("tool server config %s: missing servers list", path)
	}

	entries := make([]ToolServerEntry, 0, len(*file.Servers))
	seen := make(map[string]bool, len(*file.Servers))
	for i, raw := range *file.Servers {
		if raw.URL == "" {
			return nil, fmt.Errorf("tool server config %s: servers[%d] has no url", path, i)
		}
		entry := ToolServerEntry{
			Name: raw.Name,
			URL:  raw.URL,
			Type: raw.Type,
		}
		if entry.Name == "" {
			entry.Name = raw.URL
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("tool server config %s: duplicate server name %q", path, entry.Name)
		}
		seen[entry.Name] = true

		if len(raw.Headers) > 0 {
			entry.Headers = make(map[string]string, len(raw.Headers))
			for k, v := range raw.Headers {
				entry.Headers[k] = ExpandEnv(v)
			}
		}
		if raw.AllowedTools != nil {
			entry.HasAllowList = true
			entry.AllowedTools = append([]string{}, *raw.AllowedTools...)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
