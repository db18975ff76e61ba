package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abramin/callmap/internal/store"
)

// Server serves the stored call graph over HTTP.
type Server struct {
	store      *store.Store
	httpServer *http.Server
	port       int
}

// Config holds server configuration.
type Config struct {
	Port       int
	ProjectDir string
}

// New creates a new server instance.
func New(cfg Config) (*Server, error) {
	st, err := store.Open(cfg.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s := &Server{
		store: st,
		port:  cfg.Port,
	}

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/callables", s.corsMiddleware(s.handleCallables))
	mux.HandleFunc("/api/callables/", s.corsMiddleware(s.handleCallableByID))
	mux.HandleFunc("/api/roots", s.corsMiddleware(s.handleRoots))
	mux.HandleFunc("/api/edges", s.corsMiddleware(s.handleEdges))
	mux.HandleFunc("/api/graph/", s.corsMiddleware(s.handleGraph))
	mux.HandleFunc("/api/stats", s.corsMiddleware(s.handleStats))

	// Health check
	mux.HandleFunc("/api/health", s.corsMiddleware(s.handleHealth))

	// Index page
	mux.HandleFunc("/", s.handleStatic)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start() error {
	// Setup graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on http://localhost:%d", s.port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// corsMiddleware adds CORS headers for local development.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats returns call-graph statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.store.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleCallables handles GET /api/callables?query=xxx&limit=n
func (s *Server) handleCallables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("query")

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	results, err := s.store.SearchCallables(query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []store.Callable{}
	}

	writeJSON(w, http.StatusOK, results)
}

// handleRoots handles GET /api/roots?limit=n
// Roots are callables with no callers, the entry points into the graph.
func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	roots, err := s.store.GetRoots(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get roots")
		return
	}
	if roots == nil {
		roots = []store.Callable{}
	}

	writeJSON(w, http.StatusOK, roots)
}

// nodeResponse describes one node of the graph. An ID can name a callable,
// a method declaration, or both when a declaration carries a default body.
type nodeResponse struct {
	Callable     *store.Callable    `json:"callable,omitempty"`
	Decl         *store.MethodDecl  `json:"decl,omitempty"`
	Implements   []store.MethodDecl `json:"implements,omitempty"`
	Implementers []store.Callable   `json:"implementers,omitempty"`
	Callees      []store.EdgeRow    `json:"callees,omitempty"`
	Callers      []store.EdgeRow    `json:"callers,omitempty"`
}

// handleCallableByID handles GET /api/callables/:id
func (s *Server) handleCallableByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Extract ID from path: /api/callables/123
	path := strings.TrimPrefix(r.URL.Path, "/api/callables/")
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid callable ID")
		return
	}

	nodeID := store.NodeID(id)
	resp := nodeResponse{}

	c, err := s.store.GetCallable(nodeID)
	switch {
	case err == nil:
		resp.Callable = c
	case errors.Is(err, sql.ErrNoRows):
		// Fall through to the declaration lookup
	default:
		writeError(w, http.StatusInternalServerError, "failed to get callable")
		return
	}

	if d, err := s.store.GetMethodDecl(nodeID); err == nil {
		resp.Decl = d
		resp.Implementers, _ = s.store.GetImplementers(nodeID)
	}

	if resp.Callable == nil && resp.Decl == nil {
		writeError(w, http.StatusNotFound, "callable not found")
		return
	}

	if resp.Callable != nil {
		resp.Implements, _ = s.store.GetImplementedDecls(nodeID)
		resp.Callees, _ = s.store.GetCallees(nodeID)
		resp.Callers, _ = s.store.GetCallers(nodeID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleEdges handles GET /api/edges?kind=definite|potential&limit=n
func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	kind := store.EdgeKind(r.URL.Query().Get("kind"))
	switch kind {
	case "", store.EdgeKindDefinite, store.EdgeKindPotential:
	default:
		writeError(w, http.StatusBadRequest, "invalid edge kind")
		return
	}

	limit := 200
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	edges, err := s.store.GetEdges(kind, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get edges")
		return
	}
	if edges == nil {
		edges = []store.EdgeRow{}
	}

	writeJSON(w, http.StatusOK, edges)
}

// handleGraph handles GET /api/graph/:id?depth=n&kind=definite|potential
// It returns the neighborhood reachable from the callable.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/graph/")
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid callable ID")
		return
	}

	depth := 3
	if depthStr := r.URL.Query().Get("depth"); depthStr != "" {
		if d, err := strconv.Atoi(depthStr); err == nil && d > 0 {
			depth = d
		}
	}

	filter := DefaultGraphFilter()
	filter.Kind = store.EdgeKind(r.URL.Query().Get("kind"))
	switch filter.Kind {
	case "", store.EdgeKindDefinite, store.EdgeKindPotential:
	default:
		writeError(w, http.StatusBadRequest, "invalid edge kind")
		return
	}

	gb := NewGraphBuilder(s.store, filter)
	resp, err := gb.BuildFromRoot(store.NodeID(id), depth)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "callable not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to build graph")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStatic serves a small index page listing the API endpoints.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>callmap</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
               max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .api-list { background: #f5f5f5; padding: 20px; border-radius: 8px; }
        .api-list a { display: block; margin: 10px 0; color: #0066cc; }
        pre { background: #f0f0f0; padding: 10px; border-radius: 4px; overflow-x: auto; }
    </style>
</head>
<body>
    <h1>callmap API Server</h1>
    <p>Use the API endpoints below to browse the call graph:</p>
    <div class="api-list">
        <h3>Available Endpoints:</h3>
        <a href="/api/stats">GET /api/stats</a> - Call-graph statistics
        <a href="/api/callables">GET /api/callables</a> - List callables
        <a href="/api/callables?query=main">GET /api/callables?query=main</a> - Search callables
        <a href="/api/roots">GET /api/roots</a> - Callables with no callers
        <a href="/api/edges?kind=potential">GET /api/edges?kind=potential</a> - Dispatch candidate edges
        <a href="/api/health">GET /api/health</a> - Health check
    </div>
    <h3>Example Usage:</h3>
    <pre>
# Search callables
curl http://localhost:` + strconv.Itoa(s.port) + `/api/callables?query=Handler

# Get callable details
curl http://localhost:` + strconv.Itoa(s.port) + `/api/callables/1

# Get definite call edges
curl http://localhost:` + strconv.Itoa(s.port) + `/api/edges?kind=definite

# Get the neighborhood around a callable
curl http://localhost:` + strconv.Itoa(s.port) + `/api/graph/1?depth=2
    </pre>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(html))
}
