package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/voice-mcp-agent/internal/a2a"
)

// SkillArgs is the input accepted by every tool derived from an agent skill.
type SkillArgs struct {
	Message string `json:"message" jsonschema:"required,description=Request to send to the remote agent"`
}

var skillSchema = ReflectSchema(&SkillArgs{})

// ReflectSchema renders the struct type of v as an inline object schema
// without $schema or $id. It panics if the schema cannot be encoded, so it is
// meant for package-level values.
func ReflectSchema(v any) json.RawMessage {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(v)
	s.Version = ""
	s.ID = ""
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("reflect schema for %T: %v", v, err))
	}
	return b
}

// a2aSource exposes a remote agent's skills as tools. There is no handshake;
// the listing comes from the agent card and each call is sent as a task.
type a2aSource struct {
	cfg    *ToolServerConfig
	client *a2a.Client

	mu    sync.Mutex
	tools []ToolDescriptor
}

func newA2ASource(cfg *ToolServerConfig, c *a2a.Client) *a2aSource {
	return &a2aSource{cfg: cfg, client: c}
}

func (s *a2aSource) Connect(context.Context) error {
	return nil
}

func (s *a2aSource) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tools != nil {
		return s.tools, nil
	}

	card, err := s.client.FetchCard(ctx, s.cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	tools := make([]ToolDescriptor, 0, len(card.Skills))
	for _, skill := range card.Skills {
		tools = append(tools, ToolDescriptor{
			Name:        skillToolName(skill),
			Description: skill.Description,
			Schema:      skillSchema,
			Server:      s.cfg,
		})
	}
	s.tools = tools
	return tools, nil
}

func (s *a2aSource) CallTool(ctx context.Context, _ string, args map[string]any) (*mcp.CallToolResult, error) {
	msg, _ := args["message"].(string)
	res, err := s.client.Send(ctx, s.cfg.Endpoint, msg)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(res.Text()), nil
}

func (s *a2aSource) Close() error {
	return nil
}

// skillToolName prefers the skill id, which is identifier-shaped, over the
// display name.
func skillToolName(skill a2a.AgentSkill) string {
	if skill.ID != "" {
		return skill.ID
	}
	return skill.Name
}
