package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/voice-mcp-agent/internal/common"
)

// maxLoggedBody caps how much of a JSON body is echoed into the log.
const maxLoggedBody = 200

// EchoHandler acknowledges POSTed data, such as voice payloads from the
// browser, and logs what arrived.
type EchoHandler struct {
	logger *common.Logger
	now    func() time.Time
}

// NewEchoHandler creates an echo handler.
func NewEchoHandler(logger *common.Logger) *EchoHandler {
	return &EchoHandler{logger: logger, now: time.Now}
}

// ServeHTTP handles POST to any path.
func (h *EchoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	contentType := r.Header.Get("Content-Type")
	data := ""
	if strings.Contains(contentType, "json") && json.Valid(body) {
		data = truncate(string(body), maxLoggedBody)
	}
	h.logger.Info().
		Str("path", r.URL.Path).
		Str("content_type", contentType).
		Int("bytes", len(body)).
		Str("data", data).
		Msg("post received")

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "received",
		"timestamp": Timestamp(h.now()),
		"path":      r.URL.Path,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
