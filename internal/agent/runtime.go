// Package agent hosts the agent runtime's integration boundary. It discovers
// the filtered tool inventory once, re-exposes it as an MCP endpoint and adds
// a delegate_task tool backed by the agent task client.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/voice-mcp-agent/internal/a2a"
	"github.com/bobmcallan/voice-mcp-agent/internal/common"
	"github.com/bobmcallan/voice-mcp-agent/internal/config"
	"github.com/bobmcallan/voice-mcp-agent/internal/registry"
)

const shutdownTimeout = 10 * time.Second

// LoadServers reads the .env file and the tool-server list named by cfg and
// validates it. Any error here is a configuration error.
func LoadServers(cfg *config.Config) ([]registry.ToolServerConfig, error) {
	if err := config.LoadEnvFile(cfg.Agent.EnvFile); err != nil {
		return nil, err
	}
	entries, err := config.LoadToolServers(cfg.Agent.ServersFile)
	if err != nil {
		return nil, err
	}
	servers, err := registry.FromConfig(entries)
	if err != nil {
		return nil, fmt.Errorf("tool servers file %s: %w", cfg.Agent.ServersFile, err)
	}
	return servers, nil
}

// Runtime is the agent service.
type Runtime struct {
	cfg      *config.Config
	logger   *common.Logger
	servers  []registry.ToolServerConfig
	registry *registry.Registry
	tasks    *a2a.Client

	once      sync.Once
	inventory *registry.Inventory
	handler   http.Handler

	mu       sync.Mutex
	listener net.Listener
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithServers uses the given servers instead of reading the servers file.
func WithServers(servers []registry.ToolServerConfig) Option {
	return func(r *Runtime) { r.servers = servers }
}

// WithRegistry sets the tool registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Runtime) { r.registry = reg }
}

// WithTaskClient sets the client used by delegate_task.
func WithTaskClient(c *a2a.Client) Option {
	return func(r *Runtime) { r.tasks = c }
}

// New creates the runtime. Unless WithServers is given the tool-server list is
// loaded from cfg, and failures are returned before anything is started.
func New(cfg *config.Config, logger *common.Logger, opts ...Option) (*Runtime, error) {
	r := &Runtime{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(r)
	}

	if r.servers == nil {
		servers, err := LoadServers(cfg)
		if err != nil {
			return nil, err
		}
		r.servers = servers
	}

	timeout := cfg.Agent.GetTimeout()
	if r.registry == nil {
		r.registry = registry.New(registry.WithTimeout(timeout), registry.WithLogger(logger))
	}
	if r.tasks == nil {
		r.tasks = a2a.NewClient(a2a.WithTimeout(timeout), a2a.WithLogger(logger))
	}

	logger.Info().
		Int("servers", len(r.servers)).
		Int("peers", len(cfg.Agent.Peers)).
		Str("timeout", timeout.String()).
		Msg("agent runtime configured")
	return r, nil
}

// Prepare discovers tools and builds the MCP endpoint. It runs once; later
// calls return the cached inventory. Unreachable servers are logged and left
// out rather than failing the runtime.
func (r *Runtime) Prepare(ctx context.Context) *registry.Inventory {
	r.once.Do(func() {
		inv, err := r.registry.Discover(ctx, r.servers)
		if err != nil {
			for name, ferr := range inv.Failures {
				r.logger.Warn().Str("server", name).Str("error", ferr.Error()).Msg("tool server unavailable")
			}
		}
		r.inventory = inv
		r.handler = r.buildHandler(inv)
	})
	return r.inventory
}

func (r *Runtime) buildHandler(inv *registry.Inventory) http.Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"voice-mcp-agent",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	count := RegisterInventory(mcpSrv, inv, r.cfg.Agent.GetTimeout(), r.logger)

	if peers := r.cfg.Agent.Peers; len(peers) > 0 {
		if _, taken := inv.Lookup(DelegateToolName); taken {
			r.logger.Warn().Msg("a discovered tool is named delegate_task; built-in delegation disabled")
		} else {
			mcpSrv.AddTool(DelegateTool(peers), DelegateToolHandler(&r.cfg.Agent, r.tasks, r.logger))
			count++
		}
	}

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamable)
	mux.HandleFunc("/tools", r.handleTools)
	mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.logger.Info().
		Int("tools", count).
		Int("failed_servers", len(inv.Failures)).
		Msg("MCP gateway initialized")
	return mux
}

func (r *Runtime) handleTools(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := make([]inventoryEntry, 0, len(r.inventory.Tools))
	for _, t := range r.inventory.Tools {
		entries = append(entries, inventoryEntry{
			Name:        t.Name(),
			Server:      t.Server(),
			Description: t.Descriptor.Description,
			Schema:      t.Descriptor.Schema,
		})
	}
	failures := make(map[string]string, len(r.inventory.Failures))
	for name, err := range r.inventory.Failures {
		failures[name] = err.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":    entries,
		"failures": failures,
	})
}

// Handler returns the runtime's HTTP handler, preparing it if needed.
func (r *Runtime) Handler(ctx context.Context) http.Handler {
	r.Prepare(ctx)
	return r.handler
}

// Addr returns the listening address once Run has bound it.
func (r *Runtime) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Run discovers tools, serves the MCP endpoint and blocks until ctx is done.
func (r *Runtime) Run(ctx context.Context) error {
	handler := r.Handler(ctx)

	addr := net.JoinHostPort(r.cfg.Agent.Host, strconv.Itoa(r.cfg.Agent.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("agent listen on %s: %w", addr, err)
	}
	r.mu.Lock()
	r.listener = ln
	r.mu.Unlock()

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	r.logger.Info().Str("addr", ln.Addr().String()).Msg("agent runtime listening")

	select {
	case err := <-errCh:
		_ = r.registry.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("agent server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Error().Str("error", err.Error()).Msg("agent server shutdown failed")
	}
	if err := r.registry.Close(); err != nil {
		r.logger.Warn().Str("error", err.Error()).Msg("closing tool server connections")
	}
	r.logger.Info().Msg("agent runtime stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
