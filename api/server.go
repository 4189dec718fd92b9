package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"listing-fraud-detector/services"
	"listing-fraud-detector/storage"
	"listing-fraud-detector/utils"
)

const (
	serviceName  = "listing-fraud-detector"
	maxBatchSize = 1000
)

// Options configures a Server.
type Options struct {
	Scorer      *services.Scorer
	Store       storage.VerdictWriter
	ModelLoaded bool
	RPS         float64
	Burst       int
	Logger      *utils.Logger
}

// Server is the HTTP inference API.
type Server struct {
	engine      *gin.Engine
	scorer      *services.Scorer
	store       storage.VerdictWriter
	modelLoaded bool
	metrics     *Metrics
	logger      *utils.Logger
}

// NewServer wires routes and middleware. Store may be nil.
func NewServer(opts Options) *Server {
	s := &Server{
		engine:      gin.New(),
		scorer:      opts.Scorer,
		store:       opts.Store,
		modelLoaded: opts.ModelLoaded,
		metrics:     NewMetrics(),
		logger:      opts.Logger,
	}

	s.engine.Use(gin.Recovery(), cors(), instrument(s.metrics), requestLogger(s.logger))

	s.engine.GET("/", s.root)
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	scoring := s.engine.Group("/")
	if opts.RPS > 0 {
		scoring.Use(rateLimit(newClientRateLimiter(opts.RPS, max(opts.Burst, 1)), s.metrics))
	}
	scoring.POST("/infer", s.infer)
	scoring.POST("/batch-infer", s.batchInfer)
	scoring.GET("/api/verdicts", s.recentVerdicts)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[api] Listening on %s (model %s)", addr, s.scorer.ModelVersion())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("[api] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
