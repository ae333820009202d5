package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxListPages bounds tools/list pagination against a misbehaving server.
const maxListPages = 100

// Source is a connection to one tool server.
type Source interface {
	Caller
	// Connect performs any handshake the transport needs. It is idempotent.
	Connect(ctx context.Context) error
	// ListTools returns the server's tools in server order. The listing is
	// cached after the first success.
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	Close() error
}

// Dialer creates the Source for a server config.
type Dialer func(cfg *ToolServerConfig) (Source, error)

// mcpSource talks MCP to a server over SSE or streamable HTTP.
type mcpSource struct {
	cfg    *ToolServerConfig
	client *client.Client
	info   mcp.Implementation

	// life scopes the long-lived transport stream, not individual calls.
	life   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	initialized bool
	tools       []ToolDescriptor
}

func newMCPSource(cfg *ToolServerConfig, timeout time.Duration, info mcp.Implementation) (*mcpSource, error) {
	var (
		c   *client.Client
		err error
	)
	switch cfg.Transport {
	case TransportHTTP:
		c, err = client.NewStreamableHttpClient(cfg.Endpoint,
			transport.WithHTTPHeaders(cfg.Headers),
			transport.WithHTTPTimeout(timeout),
		)
	default:
		c, err = client.NewSSEMCPClient(cfg.Endpoint,
			transport.WithHeaders(cfg.Headers),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("create mcp client: %w", err)
	}

	life, cancel := context.WithCancel(context.Background())
	return &mcpSource{
		cfg:    cfg,
		client: c,
		info:   info,
		life:   life,
		cancel: cancel,
	}, nil
}

func (s *mcpSource) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	started := make(chan error, 1)
	go func() { started <- s.client.Start(s.life) }()
	select {
	case err := <-started:
		if err != nil {
			return fmt.Errorf("start transport: %w", err)
		}
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("start transport: %w", ctx.Err())
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = s.info
	if _, err := s.client.Initialize(ctx, req); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.initialized = true
	return nil
}

func (s *mcpSource) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tools != nil {
		return s.tools, nil
	}

	var (
		req   mcp.ListToolsRequest
		tools []ToolDescriptor
	)
	for page := 0; ; page++ {
		if page == maxListPages {
			return nil, fmt.Errorf("tools/list exceeded %d pages", maxListPages)
		}
		res, err := s.client.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("tools/list: %w", err)
		}
		for _, t := range res.Tools {
			schema, err := inputSchema(t)
			if err != nil {
				return nil, fmt.Errorf("tools/list: tool %q: %w", t.Name, err)
			}
			tools = append(tools, ToolDescriptor{
				Name:        t.Name,
				Description: t.Description,
				Schema:      schema,
				Server:      s.cfg,
			})
		}
		if res.NextCursor == "" {
			break
		}
		req.Params.Cursor = res.NextCursor
	}

	if tools == nil {
		tools = []ToolDescriptor{}
	}
	s.tools = tools
	return tools, nil
}

func (s *mcpSource) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return s.client.CallTool(ctx, req)
}

func (s *mcpSource) Close() error {
	s.cancel()
	return s.client.Close()
}

// inputSchema returns the tool's input schema as raw JSON.
func inputSchema(t mcp.Tool) (json.RawMessage, error) {
	if len(t.RawInputSchema) > 0 {
		return t.RawInputSchema, nil
	}
	b, err := json.Marshal(t.InputSchema)
	if err != nil {
		return nil, err
	}
	return b, nil
}
