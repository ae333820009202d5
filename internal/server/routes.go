package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Static frontend for GET, acknowledgement for POST on any path
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{
			http.MethodGet:  s.app.StaticHandler.ServeHTTP,
			http.MethodHead: s.app.StaticHandler.ServeHTTP,
			http.MethodPost: s.app.EchoHandler.ServeHTTP,
		})
	})

	// Connectivity probe used by the browser client
	mux.HandleFunc("/test", s.withEcho(s.app.TestHandler.ServeHTTP))

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)
	mux.HandleFunc("/api/status", s.withEcho(s.app.StatusHandler.ServeHTTP))

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// withEcho keeps POST acknowledged on paths that have their own GET handler.
func (s *Server) withEcho(get RouteHandler) RouteHandler {
	return func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{
			http.MethodGet:  get,
			http.MethodHead: get,
			http.MethodPost: s.app.EchoHandler.ServeHTTP,
		})
	}
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.app.EchoHandler.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
