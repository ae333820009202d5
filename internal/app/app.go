// Package app wires the companion web service's handlers from configuration.
package app

import (
	"github.com/bobmcallan/voice-mcp-agent/internal/common"
	"github.com/bobmcallan/voice-mcp-agent/internal/config"
	"github.com/bobmcallan/voice-mcp-agent/internal/handlers"
)

// App holds all frontend components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	StatusHandler  *handlers.StatusHandler
	TestHandler    *handlers.TestHandler
	EchoHandler    *handlers.EchoHandler
	StaticHandler  *handlers.StaticHandler
}

// New initializes the frontend with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	a.initHandlers()

	logger.Info().
		Str("static_dir", cfg.Server.StaticDir).
		Msg("frontend initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Logger, a.Config.Server.Port)
	a.TestHandler = handlers.NewTestHandler(a.Logger)
	a.EchoHandler = handlers.NewEchoHandler(a.Logger)
	a.StaticHandler = handlers.NewStaticHandler(a.Logger, a.Config.Server.StaticDir)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}
