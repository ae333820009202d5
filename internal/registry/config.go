package registry

import (
	"fmt"
	"net/url"

	"github.com/bobmcallan/voice-mcp-agent/internal/config"
)

// Transport names how a tool server is reached.
type Transport string

const (
	// TransportSSE is MCP over server-sent events.
	TransportSSE Transport = "sse"
	// TransportHTTP is MCP over streamable HTTP.
	TransportHTTP Transport = "http"
	// TransportA2A exposes a remote agent's skills as tools.
	TransportA2A Transport = "a2a"
)

// ToolServerConfig describes one configured tool server. Name is its identity.
// A nil AllowedPatterns allows every tool; a non-nil empty slice allows none.
type ToolServerConfig struct {
	Name            string
	Endpoint        string
	Transport       Transport
	Headers         map[string]string
	AllowedPatterns []string
}

// Allows reports whether the tool name passes this server's allow-list.
func (c *ToolServerConfig) Allows(tool string) (bool, error) {
	if c.AllowedPatterns == nil {
		return true, nil
	}
	return MatchAny(c.AllowedPatterns, tool)
}

// FromConfig converts tool-server file entries into validated server configs,
// preserving their order.
func FromConfig(entries []config.ToolServerEntry) ([]ToolServerConfig, error) {
	servers := make([]ToolServerConfig, 0, len(entries))
	for _, e := range entries {
		u, err := url.Parse(e.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("server %q: invalid url %q", e.Name, e.URL)
		}

		transport := Transport(e.Type)
		switch transport {
		case "":
			transport = TransportSSE
		case TransportSSE, TransportHTTP, TransportA2A:
		default:
			return nil, fmt.Errorf("server %q: unknown type %q (want sse, http or a2a)", e.Name, e.Type)
		}

		sc := ToolServerConfig{
			Name:      e.Name,
			Endpoint:  e.URL,
			Transport: transport,
			Headers:   e.Headers,
		}
		if e.HasAllowList {
			for _, p := range e.AllowedTools {
				if err := ValidatePattern(p); err != nil {
					return nil, fmt.Errorf("server %q: %w", e.Name, err)
				}
			}
			sc.AllowedPatterns = append([]string{}, e.AllowedTools...)
		}
		servers = append(servers, sc)
	}
	return servers, nil
}
