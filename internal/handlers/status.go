package handlers

import (
	"net/http"
	"time"

	"github.com/bobmcallan/voice-mcp-agent/internal/common"
)

// ServerName identifies the companion web service in diagnostics.
const ServerName = "Voice MCP Agent Frontend"

// Endpoints lists the routes the frontend advertises in /api/status.
var Endpoints = map[string]string{
	"main":   "/",
	"debug":  "/debug.html",
	"test":   "/test",
	"status": "/api/status",
}

// StatusHandler reports that the frontend is running and where.
type StatusHandler struct {
	logger *common.Logger
	port   int
	now    func() time.Time
}

// NewStatusHandler creates a status handler for a server on port.
func NewStatusHandler(logger *common.Logger, port int) *StatusHandler {
	return &StatusHandler{logger: logger, port: port, now: time.Now}
}

// ServeHTTP handles GET /api/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	h.logger.Debug().Msg("status endpoint accessed")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"frontend_server": "running",
		"timestamp":       Timestamp(h.now()),
		"port":            h.port,
		"endpoints":       Endpoints,
	})
}

// TestHandler answers the frontend's connectivity check.
type TestHandler struct {
	logger *common.Logger
	now    func() time.Time
}

// NewTestHandler creates a test-endpoint handler.
func NewTestHandler(logger *common.Logger) *TestHandler {
	return &TestHandler{logger: logger, now: time.Now}
}

// ServeHTTP handles GET /test.
func (h *TestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	h.logger.Debug().Msg("test endpoint accessed")
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"message":   "Test endpoint working",
		"timestamp": Timestamp(h.now()),
		"server":    ServerName,
	})
}
