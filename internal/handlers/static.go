package handlers

import (
	"net/http"
	"os"

	"github.com/bobmcallan/voice-mcp-agent/internal/common"
)

// StaticHandler serves the browser frontend from a directory.
type StaticHandler struct {
	logger *common.Logger
	dir    string
	files  http.Handler
}

// NewStaticHandler creates a handler serving files under dir. A missing
// directory is logged and every request then gets 404.
func NewStaticHandler(logger *common.Logger, dir string) *StaticHandler {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		logger.Warn().Str("dir", dir).Msg("static directory not found; frontend assets unavailable")
	}
	return &StaticHandler{
		logger: logger,
		dir:    dir,
		files:  http.FileServer(http.Dir(dir)),
	}
}

// ServeHTTP handles GET for files under the static directory.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	h.files.ServeHTTP(w, r)
}
