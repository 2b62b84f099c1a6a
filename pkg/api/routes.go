package api

import "net/http"

// RegisterRoutes attaches the JSON API endpoints to mux. The HTML routes are
// owned by the web command; only machine-readable surfaces live here.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/events/ws", s.handleEventsWS)
	mux.HandleFunc("GET /health", s.handleHealth)
}
