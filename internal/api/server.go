package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vidredact/internal/blobstore"
	"vidredact/internal/config"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/workflow"
)

// Enqueuer accepts work IDs for processing.
type Enqueuer interface {
	Enqueue(workID string)
}

// StatusProvider reports worker diagnostics.
type StatusProvider interface {
	Status(ctx context.Context) workflow.StatusSummary
}

// Deps are the collaborators the handlers use.
type Deps struct {
	Store    jobs.Repository
	Blobs    blobstore.Store
	Queue    Enqueuer
	Status   StatusProvider
	Gatherer prometheus.Gatherer
}

// Server owns the gin engine and its HTTP listener.
type Server struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
	engine *gin.Engine

	listener net.Listener
	server   *http.Server
}

// New builds a server with every route registered. It does not listen.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "api"),
		engine: gin.New(),
	}
	s.engine.MaxMultipartMemory = 32 << 20
	s.engine.Use(requestContext(), accessLog(s.logger), recoverPanics(s.logger))

	s.engine.POST("/mp-editvideo/", s.handleEditVideo)
	s.engine.GET("/mp-downloadvideo/", s.handleDownloadVideo)
	s.engine.GET("/mp-findlist/", s.handleFindList)
	s.engine.GET("/mp-status/", s.handleStatus)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured bind address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Paths.APIBind)
	if bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.listener = listener
	s.server = srv

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdown(srv)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdown(s.server)
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
