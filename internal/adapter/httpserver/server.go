package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	http   *http.Server
	logger *slog.Logger
}

func NewServer(addr string, api *API, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(api, logger),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{http: s, logger: logger}
}

// NewRouter builds the gin engine serving api.
func NewRouter(api *API, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.CustomRecovery(requestRecoveryWithLog(logger)))
	router.Use(requestLogger(logger))
	api.RegisterRoutes(router)
	return router
}

func (s *Server) Run() error {
	s.logger.Info("activation endpoint listening", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
