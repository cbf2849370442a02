package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/models"
	"github.com/IQAIcom/mcp-near-agent/internal/tools"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex returns basic agent information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "NEAR Agent",
		"version":     "1.0.0",
		"description": "Watches NEAR contract events and responds on-chain through AI sampling",
		"endpoints": map[string]string{
			"GET /":         "This page - Service information",
			"GET /health":   "Health check endpoint",
			"GET /metrics":  "Prometheus metrics for monitoring",
			"GET /watch":    "List watched events (supports ?include_stats=true)",
			"POST /watch":   "Start watching a contract event",
			"DELETE /watch": "Stop watching (supports ?contract_id=&event_name=)",
			"GET /stats":    "Aggregate watcher statistics",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "near-agent",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleStartWatch starts a new subscription
// POST /watch - Body: {contract_id, event_name, response_method_name?, cron_expression?}
func (s *Server) handleStartWatch(w http.ResponseWriter, r *http.Request) {
	var params tools.StartWatchParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	message, err := s.tools.StartWatch(r.Context(), params)
	if err != nil {
		slog.Error("Failed to start watch",
			"contract_id", params.ContractID,
			"event_name", params.EventName,
			"error", err,
		)
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// handleStopWatch removes a subscription
// DELETE /watch?contract_id=c.testnet&event_name=ping
func (s *Server) handleStopWatch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := tools.StopWatchParams{
		ContractID: query.Get("contract_id"),
		EventName:  query.Get("event_name"),
	}

	message, err := s.tools.StopWatch(r.Context(), params)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// handleListWatches lists current subscriptions
// GET /watch?include_stats=true
func (s *Server) handleListWatches(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"subscriptions": s.watcher.GetWatchingStatus(),
	}
	if r.URL.Query().Get("include_stats") == "true" {
		response["stats"] = s.watcher.GetStats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleStats returns aggregate watcher statistics
// GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.watcher.GetStats())
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
