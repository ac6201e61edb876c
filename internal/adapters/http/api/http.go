// Package api exposes the hot items use cases over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/hotitems/internal/domain/model"
	"github.com/okian/hotitems/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Service is the set of use cases the handlers call.
type Service interface {
	Create(ctx context.Context, content, ownerID string) (model.Item, error)
	Like(ctx context.Context, id string) (model.Item, error)
	TopHot(ctx context.Context, n int) ([]model.Item, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	health *HealthHandler
	items  *ItemsHandler
	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(svc Service) *Server {
	l := logger.Named("http")
	return &Server{
		health: NewHealthHandler(),
		items:  NewItemsHandler(svc, l),
		logger: l,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("POST /items", MetricsMiddleware(s.items.HandleCreate, "create"))
	mux.HandleFunc("POST /items/{id}/like", MetricsMiddleware(s.items.HandleLike, "like"))
	mux.HandleFunc("GET /items/hot", MetricsMiddleware(s.items.HandleHot, "hot"))
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
