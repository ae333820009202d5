package registry

import "fmt"

// DiscoveryError reports that one server could not be listed or filtered.
// Tools from other servers are unaffected.
type DiscoveryError struct {
	Server string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover tools from %q: %v", e.Server, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// ToolPreparationError reports a discovered tool that could not be adapted
// into an InvokableTool. Only that tool is dropped.
type ToolPreparationError struct {
	Server string
	Tool   string
	Err    error
}

func (e *ToolPreparationError) Error() string {
	return fmt.Sprintf("prepare tool %q from %q: %v", e.Tool, e.Server, e.Err)
}

func (e *ToolPreparationError) Unwrap() error {
	return e.Err
}
