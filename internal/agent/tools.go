package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/voice-mcp-agent/internal/a2a"
	"github.com/bobmcallan/voice-mcp-agent/internal/common"
	"github.com/bobmcallan/voice-mcp-agent/internal/config"
	"github.com/bobmcallan/voice-mcp-agent/internal/registry"
)

// DelegateToolName is the built-in tool that hands a request to a peer agent.
const DelegateToolName = "delegate_task"

// DelegateArgs is the input of the delegate_task tool.
type DelegateArgs struct {
	Agent   string `json:"agent" jsonschema:"required,description=Name of the peer agent"`
	Message string `json:"message" jsonschema:"required,description=Request to send to the peer agent"`
}

var delegateSchema = registry.ReflectSchema(&DelegateArgs{})

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// RegisterInventory adds every discovered tool to s and returns the count.
func RegisterInventory(s *server.MCPServer, inv *registry.Inventory, timeout time.Duration, logger *common.Logger) int {
	for _, t := range inv.Tools {
		s.AddTool(t.Definition, InventoryToolHandler(t, timeout, logger))
	}
	return len(inv.Tools)
}

// InventoryToolHandler forwards a call to the tool's owning server, bounded by
// timeout when it is positive. Failures become tool errors so the model sees them.
func InventoryToolHandler(t *registry.InvokableTool, timeout time.Duration, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		res, err := t.Invoke(ctx, r.GetArguments())
		if err != nil {
			logger.Warn().
				Str("tool", t.Name()).
				Str("server", t.Server()).
				Str("error", err.Error()).
				Msg("tool call failed")
			return errorResult(err.Error()), nil
		}
		return res, nil
	}
}

// DelegateTool returns the delegate_task definition listing the peers.
func DelegateTool(peers []config.PeerConfig) mcp.Tool {
	names := make([]string, len(peers))
	for i, p := range peers {
		names[i] = p.Name
	}
	desc := fmt.Sprintf("Delegate a request to a peer agent and return its reply. Available agents: %s.",
		strings.Join(names, ", "))
	return mcp.NewToolWithRawSchema(DelegateToolName, desc, delegateSchema)
}

// DelegateToolHandler sends the message to the named peer as one task. A task
// that did not complete still returns its status text; protocol failures are
// tool errors.
func DelegateToolHandler(agentCfg *config.AgentConfig, tasks *a2a.Client, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := r.GetString("agent", "")
		message := r.GetString("message", "")
		if message == "" {
			return errorResult("message is required"), nil
		}
		peer, ok := agentCfg.Peer(name)
		if !ok {
			return errorResult(fmt.Sprintf("unknown agent %q", name)), nil
		}

		res, err := tasks.Send(ctx, peer.URL, message)
		if err != nil {
			logger.Warn().
				Str("agent", name).
				Str("error", err.Error()).
				Msg("delegated task failed")
			return errorResult(err.Error()), nil
		}

		logger.Info().
			Str("agent", name).
			Str("task_id", res.TaskID).
			Str("outcome", res.Outcome.String()).
			Msg("delegated task returned")
		return mcp.NewToolResultText(res.Text()), nil
	}
}

// inventoryEntry is one row of the gateway's tool listing.
type inventoryEntry struct {
	Name        string          `json:"name"`
	Server      string          `json:"server"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"input_schema"`
}
