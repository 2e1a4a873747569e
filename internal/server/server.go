// Package server provides the HTTP API over the learning service
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/shivavenkatesh/voodoo/internal/classify"
	"github.com/shivavenkatesh/voodoo/internal/learning"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"go.uber.org/zap"
)

// Version is reported by /health
const Version = "0.3.0"

const maxBodyBytes = 10 << 20

// Server is the HTTP API server
type Server struct {
	svc    learning.Service
	config Config
	logger *zap.Logger
	server *http.Server
}

// Config configures the server
type Config struct {
	Host   string
	Port   int
	Logger *zap.Logger
}

// New creates a new server
func New(svc learning.Service, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Server{
		svc:    svc,
		config: cfg,
		logger: cfg.Logger.Named("server"),
	}
}

// Handler returns the routed API handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/patterns", s.handlePatterns)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/classify", s.handleClassify)
	mux.HandleFunc("/enhance", s.handleEnhance)
	mux.HandleFunc("/learn", s.handleLearn)

	return corsMiddleware(mux)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for browser-based tooling
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClassifyResponse is returned by POST /classify
type ClassifyResponse struct {
	Classification types.EffectClassification `json:"classification"`
	TestPlan       []types.TestPhase          `json:"test_plan"`
}

// HistoryEntry is one row of GET /history
type HistoryEntry struct {
	Plugin         string    `json:"plugin_name"`
	LastSeen       time.Time `json:"timestamp"`
	ParameterCount int       `json:"parameter_count"`
	EffectType     string    `json:"effect_type,omitempty"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "version": Version}, http.StatusOK)
}

// handleStats handles GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.svc.Stats(), http.StatusOK)
}

// handlePatterns handles GET /patterns
func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.svc.Patterns(), http.StatusOK)
}

// handleHistory handles GET /history, most recent first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.svc.Patterns()
	entries := make([]HistoryEntry, 0, len(snap.PluginHistory))
	for plugin, rec := range snap.PluginHistory {
		entries = append(entries, HistoryEntry{
			Plugin:         plugin,
			LastSeen:       rec.LastSeen,
			ParameterCount: rec.ParameterCount,
			EffectType:     snap.EffectSignatures[plugin],
		})
	}
	SortHistory(entries)

	writeJSON(w, map[string][]HistoryEntry{"plugins": entries}, http.StatusOK)
}

// SortHistory orders entries most recent first, then by name
func SortHistory(entries []HistoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.After(entries[j].LastSeen)
		}
		return entries[i].Plugin < entries[j].Plugin
	})
}

// handleClassify handles POST /classify
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	dm, ok := s.decodeDiscovery(w, r)
	if !ok {
		return
	}

	ec := s.svc.Classify(pluginName(r, dm), s.svc.Enhance(dm))
	writeJSON(w, ClassifyResponse{Classification: ec, TestPlan: classify.TestPlan(ec)}, http.StatusOK)
}

// handleEnhance handles POST /enhance
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	dm, ok := s.decodeDiscovery(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.svc.Enhance(dm), http.StatusOK)
}

// handleLearn handles POST /learn
func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	dm, ok := s.decodeDiscovery(w, r)
	if !ok {
		return
	}

	name := pluginName(r, dm)
	if name == "" {
		writeError(w, "plugin name required", http.StatusBadRequest)
		return
	}

	delta, err := s.svc.Learn(r.Context(), name, dm)
	if errors.Is(err, learning.ErrNoParameters) {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.Error("learn failed", zap.String("plugin", name), zap.Error(err))
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, delta, http.StatusOK)
}

// decodeDiscovery reads a DiscoveryMap body from a POST request
func (s *Server) decodeDiscovery(w http.ResponseWriter, r *http.Request) (*types.DiscoveryMap, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	var dm types.DiscoveryMap
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&dm); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if dm.Parameters == nil {
		dm.Parameters = make(map[string]types.ParameterFact)
	}
	return &dm, true
}

// pluginName prefers the ?plugin= query parameter over the discovery metadata
func pluginName(r *http.Request, dm *types.DiscoveryMap) string {
	if name := r.URL.Query().Get("plugin"); name != "" {
		return name
	}
	return dm.Metadata.PluginName
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
