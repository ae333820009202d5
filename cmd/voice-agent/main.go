package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobmcallan/voice-mcp-agent/internal/agent"
	"github.com/bobmcallan/voice-mcp-agent/internal/app"
	"github.com/bobmcallan/voice-mcp-agent/internal/common"
	"github.com/bobmcallan/voice-mcp-agent/internal/config"
	"github.com/bobmcallan/voice-mcp-agent/internal/server"
	"github.com/bobmcallan/voice-mcp-agent/internal/supervisor"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "Frontend port (overrides config)")
	serverPortP = flag.Int("p", 0, "Frontend port (shorthand)")
	serverHost  = flag.String("host", "", "Frontend host (overrides config)")
	serviceMode = flag.String("mode", "", "Service mode: frontend, voice_agent or unified (overrides config)")
	serviceName = flag.String("service", "", "Run a single supervised service (used by the supervisor)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if err := checkPositional(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("voice-agent version %s\n", config.GetFullVersion())
		os.Exit(0)
	}

	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	if len(configFiles) == 0 {
		for _, path := range configSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				configFiles = append(configFiles, path)
				break
			}
		}
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	config.ApplyFlagOverrides(cfg, finalPort, *serverHost, *serviceMode)

	if issues := cfg.Validate(); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Configuration error: mandatory fields are missing or invalid:")
		fmt.Fprintln(os.Stderr, "")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Values can be set via TOML file, environment variables, or CLI flags.")
		fmt.Fprintln(os.Stderr, "")
		os.Exit(1)
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)

	if *serviceName != "" {
		os.Exit(runChild(cfg, logger, *serviceName))
	}

	mode, known := supervisor.ResolveMode(cfg.Service.Mode)
	if !known {
		logger.Warn().
			Str("selector", cfg.Service.Mode).
			Str("mode", string(mode)).
			Msg("unknown service mode, falling back to unified")
	}

	logger.Info().
		Str("mode", string(mode)).
		Int("frontend_port", cfg.Server.Port).
		Int("agent_port", cfg.Agent.Port).
		Str("config_files", fmt.Sprintf("%v", configFiles)).
		Str("version", config.GetVersion()).
		Msg("configuration loaded")

	specs, err := buildSpecs(cfg, logger, mode.Services())
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize services")
		os.Exit(1)
	}

	var executor supervisor.Executor = supervisor.InProcess{}
	if mode.Isolated() {
		executor = supervisor.ChildProcess{Args: os.Args[1:]}
	}

	sup := supervisor.New(logger, executor, specs...)
	if err := supervisor.RunUntilSignal(context.Background(), sup); err != nil {
		logger.Error().Err(err).Msg("supervisor exited with errors")
		os.Exit(1)
	}

	logger.Info().Msg("all services stopped")
}

// checkPositional rejects non-flag arguments. Flag parsing stops at the
// first one, so anything after it would be silently ignored.
func checkPositional(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments %q: all options are flags", args)
	}
	return nil
}

// runChild runs one service as a supervised child and returns its exit code.
func runChild(cfg *config.Config, logger *common.Logger, name string) int {
	logger = logger.WithService(name)

	specs, err := buildSpecs(cfg, logger, []string{name})
	if err != nil {
		logger.Error().Err(err).Str("service", name).Msg("failed to initialize service")
		return 1
	}

	if err := supervisor.RunService(context.Background(), specs[0]); err != nil {
		logger.Error().Err(err).Str("service", name).Msg("service failed")
		return 1
	}
	return 0
}

// buildSpecs constructs the named services. Construction errors surface here,
// before any service starts.
func buildSpecs(cfg *config.Config, logger *common.Logger, names []string) ([]supervisor.ServiceSpec, error) {
	specs := make([]supervisor.ServiceSpec, 0, len(names))
	for _, name := range names {
		switch name {
		case supervisor.ServiceFrontend:
			application, err := app.New(cfg, logger)
			if err != nil {
				return nil, fmt.Errorf("frontend: %w", err)
			}
			srv := server.New(application)
			specs = append(specs, supervisor.ServiceSpec{
				Name: name,
				Run: func(ctx context.Context) error {
					defer application.Close()
					return srv.Run(ctx)
				},
			})
		case supervisor.ServiceAgent:
			rt, err := agent.New(cfg, logger)
			if err != nil {
				return nil, fmt.Errorf("voice agent: %w", err)
			}
			specs = append(specs, supervisor.ServiceSpec{Name: name, Run: rt.Run})
		default:
			return nil, fmt.Errorf("unknown service %q", name)
		}
	}
	return specs, nil
}

// configSearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths are tried before the working directory.
func configSearchPaths() []string {
	candidates := []string{
		"voice-agent.toml",
		filepath.Join("config", "voice-agent.toml"),
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)

	paths := []string{
		filepath.Join(binDir, "voice-agent.toml"),
		filepath.Join(binDir, "config", "voice-agent.toml"),
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}
