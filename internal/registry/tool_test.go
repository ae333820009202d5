package registry

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestWrap_DefaultsMissingSchema(t *testing.T) {
	tool, err := Wrap(ToolDescriptor{Name: "ping"}, &fakeSource{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(tool.Descriptor.Schema); got != `{"type":"object","properties":{}}` {
		t.Errorf("expected empty object schema, got %s", got)
	}
	if tool.Definition.Name != "ping" {
		t.Errorf("expected definition name ping, got %s", tool.Definition.Name)
	}
}

func TestWrap_AddsObjectType(t *testing.T) {
	schema := json.RawMessage(`{"properties":{"q":{"type":"string"}}}`)
	tool, err := Wrap(ToolDescriptor{Name: "search", Schema: schema}, &fakeSource{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(tool.Descriptor.Schema, &got); err != nil {
		t.Fatalf("failed to unmarshal schema: %v", err)
	}
	if got["type"] != "object" {
		t.Errorf("expected type object, got %v", got["type"])
	}
}

func TestWrap_PreparationErrors(t *testing.T) {
	tests := []struct {
		name   string
		desc   ToolDescriptor
		caller Caller
	}{
		{"empty name", ToolDescriptor{Name: " "}, &fakeSource{}},
		{"nil caller", ToolDescriptor{Name: "x"}, nil},
		{"non-object schema", ToolDescriptor{Name: "x", Schema: json.RawMessage(`{"type":"array"}`)}, &fakeSource{}},
		{"not json", ToolDescriptor{Name: "x", Schema: json.RawMessage(`{not json`)}, &fakeSource{}},
		{"schema is a list", ToolDescriptor{Name: "x", Schema: json.RawMessage(`[1,2]`)}, &fakeSource{}},
		{"uncompilable", ToolDescriptor{Name: "x", Schema: json.RawMessage(`{"type":"object","required":"q"}`)}, &fakeSource{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := tt.desc
			desc.Server = &ToolServerConfig{Name: "srv"}
			_, err := Wrap(desc, tt.caller)

			var perr *ToolPreparationError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ToolPreparationError, got %v", err)
			}
			if perr.Server != "srv" {
				t.Errorf("expected server srv, got %s", perr.Server)
			}
		})
	}
}

func TestInvoke_ValidatesArguments(t *testing.T) {
	src := &fakeSource{}
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"q": {"type": "string"}},
		"required": ["q"]
	}`)
	tool, err := Wrap(ToolDescriptor{Name: "search", Schema: schema}, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, args := range []map[string]any{{}, {"q": 42}} {
		_, err := tool.Invoke(context.Background(), args)
		if err == nil || !strings.Contains(err.Error(), "invalid arguments") {
			t.Errorf("args %v: expected invalid arguments, got %v", args, err)
		}
	}
	if len(src.calls) != 0 {
		t.Fatalf("expected invalid calls not forwarded, got %v", src.calls)
	}

	res, err := tool.Invoke(context.Background(), map[string]any{"q": "go"})
	if err != nil {
		t.Fatalf("unexpected invoke error: %v", err)
	}
	if got := resultText(t, res); got != "called search" {
		t.Errorf("expected 'called search', got %q", got)
	}
	if want := []map[string]any{{"q": "go"}}; !reflect.DeepEqual(src.args, want) {
		t.Errorf("expected forwarded args %v, got %v", want, src.args)
	}
}

func TestInvoke_NilArgs(t *testing.T) {
	src := &fakeSource{}
	tool, err := Wrap(ToolDescriptor{Name: "ping"}, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := tool.Invoke(context.Background(), nil); err != nil {
		t.Fatalf("unexpected invoke error: %v", err)
	}
	if !reflect.DeepEqual(src.calls, []string{"ping"}) {
		t.Errorf("expected [ping], got %v", src.calls)
	}
}
