package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/norrisp90/geneticai/pkg/models"
)

// Server is the headless chat gateway.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(addr string, settings *models.Settings, handler *ChatHandler, logger *slog.Logger) *Server {
	r := mux.NewRouter()
	handler.RegisterRoutes(r)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(settings.Project.AllowOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      corsHandler,
			ReadTimeout:  5 * time.Minute,
			WriteTimeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting chat gateway", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down chat gateway")
	return s.srv.Shutdown(ctx)
}
