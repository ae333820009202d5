package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xeipuuv/gojsonschema"
)

// emptyObjectSchema is used for tools that publish no input schema.
var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// ToolDescriptor is a tool as reported by its server. Server points at the
// owning entry of the active configuration set.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Server      *ToolServerConfig
}

// Caller invokes a named tool on the server that listed it.
type Caller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// InvokableTool is a descriptor adapted to the runtime's calling convention:
// an mcp-go tool definition plus a compiled argument schema.
type InvokableTool struct {
	Descriptor ToolDescriptor
	Definition mcp.Tool

	schema *gojsonschema.Schema
	caller Caller
}

// Name returns the tool name exposed to the runtime.
func (t *InvokableTool) Name() string {
	return t.Descriptor.Name
}

// Server returns the owning server name.
func (t *InvokableTool) Server() string {
	if t.Descriptor.Server == nil {
		return ""
	}
	return t.Descriptor.Server.Name
}

// Invoke validates args against the tool's input schema and calls the tool
// on its owning server.
func (t *InvokableTool) Invoke(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := t.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, fmt.Errorf("tool %q: validate arguments: %w", t.Name(), err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("tool %q: invalid arguments: %s", t.Name(), strings.Join(msgs, "; "))
	}
	return t.caller.CallTool(ctx, t.Name(), args)
}

// Wrap adapts a descriptor into an InvokableTool. A descriptor whose schema
// cannot be translated fails with *ToolPreparationError.
func Wrap(desc ToolDescriptor, caller Caller) (*InvokableTool, error) {
	fail := func(err error) (*InvokableTool, error) {
		server := ""
		if desc.Server != nil {
			server = desc.Server.Name
		}
		return nil, &ToolPreparationError{Server: server, Tool: desc.Name, Err: err}
	}

	if strings.TrimSpace(desc.Name) == "" {
		return fail(errors.New("tool has empty name"))
	}
	if caller == nil {
		return fail(errors.New("no caller for tool"))
	}

	raw := desc.Schema
	if len(raw) == 0 || string(raw) == "null" {
		raw = emptyObjectSchema
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fail(fmt.Errorf("input schema is not a JSON object: %w", err))
	}
	if typ, ok := obj["type"]; ok && typ != "object" {
		return fail(fmt.Errorf("input schema type must be object, got %v", typ))
	}
	if _, ok := obj["type"]; !ok {
		obj["type"] = "object"
		b, err := json.Marshal(obj)
		if err != nil {
			return fail(fmt.Errorf("re-encode input schema: %w", err))
		}
		raw = b
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fail(fmt.Errorf("compile input schema: %w", err))
	}

	desc.Schema = raw
	return &InvokableTool{
		Descriptor: desc,
		Definition: mcp.NewToolWithRawSchema(desc.Name, desc.Description, raw),
		schema:     schema,
		caller:     caller,
	}, nil
}
