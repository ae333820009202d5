// Package registry discovers tools from configured tool servers, applies each
// server's allow-list and adapts the survivors into an invokable inventory.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/voice-mcp-agent/internal/a2a"
	"github.com/bobmcallan/voice-mcp-agent/internal/common"
	"github.com/bobmcallan/voice-mcp-agent/internal/config"
)

// DefaultTimeout bounds connecting to and listing one server.
const DefaultTimeout = 10 * time.Second

// Registry owns the connections to tool servers. Sources are created once per
// server name and their listings cached, so repeated discovery does not go
// back to the network.
type Registry struct {
	dial    Dialer
	timeout time.Duration
	logger  *common.Logger
	info    mcp.Implementation

	mu      sync.Mutex
	sources map[string]Source
}

// Option configures a Registry.
type Option func(*Registry)

// WithDialer replaces the transport used to reach servers.
func WithDialer(d Dialer) Option {
	return func(r *Registry) { r.dial = d }
}

// WithTimeout sets the per-server discovery ceiling.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *common.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates a Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		timeout: DefaultTimeout,
		logger:  common.NewSilentLogger(),
		info:    mcp.Implementation{Name: "voice-mcp-agent", Version: config.GetVersion()},
		sources: make(map[string]Source),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dial == nil {
		r.dial = r.defaultDial
	}
	return r
}

func (r *Registry) defaultDial(cfg *ToolServerConfig) (Source, error) {
	switch cfg.Transport {
	case TransportA2A:
		c := a2a.NewClient(
			a2a.WithTimeout(r.timeout),
			a2a.WithHeaders(cfg.Headers),
			a2a.WithLogger(r.logger),
		)
		return newA2ASource(cfg, c), nil
	case TransportSSE, TransportHTTP, "":
		return newMCPSource(cfg, r.timeout, r.info)
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}

// source returns the cached Source for cfg, dialing on first use.
func (r *Registry) source(cfg *ToolServerConfig) (Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sources[cfg.Name]; ok {
		return s, nil
	}
	s, err := r.dial(cfg)
	if err != nil {
		return nil, err
	}
	r.sources[cfg.Name] = s
	return s, nil
}

// evict drops a source that failed to connect so the next discovery dials
// afresh.
func (r *Registry) evict(name string) {
	r.mu.Lock()
	s, ok := r.sources[name]
	delete(r.sources, name)
	r.mu.Unlock()

	if ok {
		if err := s.Close(); err != nil {
			r.logger.Debug().Err(err).Str("server", name).Msg("close failed source")
		}
	}
}

// Inventory is the result of one discovery pass. Tools hold servers in
// configured order, each server's tools contiguous and in server order.
type Inventory struct {
	Tools []*InvokableTool
	// Descriptors are the allowed descriptors that were wrapped into Tools.
	Descriptors []ToolDescriptor
	// Failures maps server name to the *DiscoveryError that removed it.
	Failures map[string]error
	// PrepErrors lists tools dropped because they could not be wrapped.
	PrepErrors []*ToolPreparationError
}

// Lookup returns the tool with the given name.
func (inv *Inventory) Lookup(name string) (*InvokableTool, bool) {
	for _, t := range inv.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Names returns the tool names in inventory order.
func (inv *Inventory) Names() []string {
	names := make([]string, len(inv.Tools))
	for i, t := range inv.Tools {
		names[i] = t.Name()
	}
	return names
}

type serverResult struct {
	tools []*InvokableTool
	descs []ToolDescriptor
	prep  []*ToolPreparationError
	err   error
}

// Discover lists every server concurrently and merges the results in
// configured order. A failing server is omitted and recorded in Failures; the
// returned error joins every *DiscoveryError and is nil when all servers were
// listed. The inventory is never nil.
func (r *Registry) Discover(ctx context.Context, servers []ToolServerConfig) (*Inventory, error) {
	cfgs := append([]ToolServerConfig(nil), servers...)
	results := make([]serverResult, len(cfgs))

	var g errgroup.Group
	for i := range cfgs {
		g.Go(func() error {
			results[i] = r.discoverServer(ctx, &cfgs[i])
			return nil
		})
	}
	_ = g.Wait()

	inv := &Inventory{
		Tools:       []*InvokableTool{},
		Descriptors: []ToolDescriptor{},
		Failures:    make(map[string]error),
	}
	owner := make(map[string]string)
	var errs []error

	for i, res := range results {
		name := cfgs[i].Name
		if res.err != nil {
			derr := &DiscoveryError{Server: name, Err: res.err}
			inv.Failures[name] = derr
			errs = append(errs, derr)
			r.logger.Warn().Err(res.err).Str("server", name).Msg("tool discovery failed; server omitted")
			continue
		}
		inv.PrepErrors = append(inv.PrepErrors, res.prep...)
		for j, tool := range res.tools {
			if prev, dup := owner[tool.Name()]; dup {
				perr := &ToolPreparationError{
					Server: name,
					Tool:   tool.Name(),
					Err:    fmt.Errorf("duplicate tool name, already provided by %q", prev),
				}
				r.logger.Error().Str("server", name).Str("tool", tool.Name()).Msg(perr.Error())
				inv.PrepErrors = append(inv.PrepErrors, perr)
				continue
			}
			owner[tool.Name()] = name
			inv.Tools = append(inv.Tools, tool)
			inv.Descriptors = append(inv.Descriptors, res.descs[j])
		}
	}

	r.logger.Info().
		Int("servers", len(cfgs)).
		Int("tools", len(inv.Tools)).
		Int("failed", len(inv.Failures)).
		Int("dropped", len(inv.PrepErrors)).
		Msg("tool discovery complete")

	return inv, errors.Join(errs...)
}

func (r *Registry) discoverServer(ctx context.Context, cfg *ToolServerConfig) serverResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	src, err := r.source(cfg)
	if err != nil {
		return serverResult{err: err}
	}
	if err := src.Connect(ctx); err != nil {
		r.evict(cfg.Name)
		return serverResult{err: fmt.Errorf("connect: %w", err)}
	}
	listed, err := src.ListTools(ctx)
	if err != nil {
		return serverResult{err: err}
	}

	var res serverResult
	filtered := 0
	for _, desc := range listed {
		ok, err := cfg.Allows(desc.Name)
		if err != nil {
			return serverResult{err: fmt.Errorf("filter tools: %w", err)}
		}
		if !ok {
			filtered++
			continue
		}
		desc.Server = cfg
		tool, err := Wrap(desc, src)
		if err != nil {
			var perr *ToolPreparationError
			if errors.As(err, &perr) {
				res.prep = append(res.prep, perr)
			}
			r.logger.Error().Err(err).Str("server", cfg.Name).Str("tool", desc.Name).Msg("tool dropped")
			continue
		}
		res.tools = append(res.tools, tool)
		res.descs = append(res.descs, tool.Descriptor)
	}

	r.logger.Info().
		Str("server", cfg.Name).
		Str("transport", string(cfg.Transport)).
		Int("listed", len(listed)).
		Int("filtered", filtered).
		Int("tools", len(res.tools)).
		Msg("server discovered")
	return res
}

// Close releases every cached source.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, s := range r.sources {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	r.sources = make(map[string]Source)
	return errors.Join(errs...)
}
