package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/voice-mcp-agent/internal/a2a"
	"github.com/bobmcallan/voice-mcp-agent/internal/config"
	"github.com/bobmcallan/voice-mcp-agent/internal/registry"
)

// hangingCaller never answers until the call's context ends.
type hangingCaller struct{}

func (hangingCaller) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// echoCaller answers with the tool name.
type echoCaller struct{}

func (echoCaller) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if _, ok := ctx.Deadline(); !ok {
		return mcp.NewToolResultError("expected a deadline on the call"), nil
	}
	return mcp.NewToolResultText(name + " ok"), nil
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func wrapTool(t *testing.T, name string, caller registry.Caller) *registry.InvokableTool {
	t.Helper()
	tool, err := registry.Wrap(registry.ToolDescriptor{Name: name}, caller)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	return tool
}

func TestInventoryToolHandler_TimeoutIsToolError(t *testing.T) {
	handler := InventoryToolHandler(wrapTool(t, "hang", hangingCaller{}), 50*time.Millisecond, testLogger())

	done := make(chan *mcp.CallToolResult, 1)
	go func() {
		res, err := handler(context.Background(), toolRequest("hang", nil))
		if err != nil {
			t.Errorf("expected tool error result, got error %v", err)
		}
		done <- res
	}()

	select {
	case res := <-done:
		if res == nil || !res.IsError {
			t.Fatalf("expected an error result, got %+v", res)
		}
		if text := resultText(t, res); !strings.Contains(text, "deadline exceeded") {
			t.Errorf("expected deadline exceeded, got %q", text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tool call was not bounded by the timeout")
	}
}

func TestInventoryToolHandler_ForwardsWithDeadline(t *testing.T) {
	handler := InventoryToolHandler(wrapTool(t, "echo", echoCaller{}), time.Second, testLogger())

	res, err := handler(context.Background(), toolRequest("echo", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("expected success, got %q", resultText(t, res))
	}
	if text := resultText(t, res); text != "echo ok" {
		t.Errorf("expected 'echo ok', got %q", text)
	}
}

func TestDelegateToolHandler_ResolvesConfiguredPeer(t *testing.T) {
	peer := newPeer(t, "booked")
	agentCfg := &config.AgentConfig{Peers: []config.PeerConfig{{Name: "planner", URL: peer.URL}}}
	handler := DelegateToolHandler(agentCfg, a2a.NewClient(), testLogger())

	res, err := handler(context.Background(), toolRequest(DelegateToolName,
		map[string]any{"agent": "planner", "message": "book a flight"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, res); text != "booked" {
		t.Errorf("expected 'booked', got %q", text)
	}

	res, err = handler(context.Background(), toolRequest(DelegateToolName,
		map[string]any{"agent": "nobody", "message": "hi"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), `unknown agent "nobody"`) {
		t.Errorf("expected unknown agent error, got %+v", res)
	}
}
