package supervisor

import "strings"

// Mode selects which services the process runs.
type Mode string

const (
	// ModeFrontend runs only the companion web service.
	ModeFrontend Mode = "frontend"
	// ModeAgent runs only the agent runtime.
	ModeAgent Mode = "voice_agent"
	// ModeUnified runs both, each in its own process.
	ModeUnified Mode = "unified"
)

// Service names used by the modes.
const (
	ServiceFrontend = "frontend"
	ServiceAgent    = "voice_agent"
)

// ResolveMode maps an external selector to a Mode. Matching ignores case and
// surrounding space, and "agent" is accepted for the agent runtime. An empty
// or unknown selector resolves to ModeUnified with ok=false so the caller can
// warn; it is never an error.
func ResolveMode(selector string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "frontend":
		return ModeFrontend, true
	case "voice_agent", "agent":
		return ModeAgent, true
	case "unified":
		return ModeUnified, true
	default:
		return ModeUnified, false
	}
}

// Services returns the service names the mode runs, in start order.
func (m Mode) Services() []string {
	switch m {
	case ModeFrontend:
		return []string{ServiceFrontend}
	case ModeAgent:
		return []string{ServiceAgent}
	default:
		return []string{ServiceFrontend, ServiceAgent}
	}
}

// Isolated reports whether the mode's services need separate processes.
func (m Mode) Isolated() bool {
	return len(m.Services()) > 1
}
