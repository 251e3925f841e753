// Package api exposes the collector over net/http.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// Collector handles one ingestion request in the API Gateway proxy shape.
type Collector interface {
	Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

// Server wires HTTP routes for the collection API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	collectHandler *CollectHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(collector Collector, statsProvider StatsProvider, opts ...Option) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		collectHandler: NewCollectHandler(collector, opts...),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/collect", MetricsMiddleware(s.collectHandler.HandleCollect, "collect"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
