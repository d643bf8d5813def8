package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/logging"
	"NewsCollector/internal/usecase"
)

const (
	defaultLogLimit = 20
	maxLogLimit     = 200
	shutdownTimeout = 10 * time.Second
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Collector runs one collection on demand.
type Collector interface {
	RunCollection(ctx context.Context, opts usecase.RunOptions) (domain.RunResult, error)
}

// Store is the read side the API needs from storage.
type Store interface {
	Ping(ctx context.Context) error
	ListRunLogs(ctx context.Context, sourceID string, limit uint64) ([]domain.CollectionRunLog, error)
}

// Server exposes health, metrics and the manual collection trigger.
type Server struct {
	collector Collector
	store     Store
	metrics   http.Handler
	logger    *slog.Logger
	engine    *gin.Engine
}

// NewServer builds the gin engine. metrics may be nil.
func NewServer(collector Collector, store Store, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		collector: collector,
		store:     store,
		metrics:   metrics,
		logger:    logger.With("component", "httpapi"),
		engine:    gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := s.engine.Group("/api")
	{
		api.POST("/collect", s.collect)
		api.GET("/sources/:id/logs", s.runLogs)
	}
}

// Handler returns the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	if s.store != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type collectRequest struct {
	SourceIDs []string `json:"sourceIds"`
	Limit     int      `json:"limit"`
	// Now pins the run clock, RFC3339.
	Now *time.Time `json:"now"`
}

func (s *Server) collect(c *gin.Context) {
	var req collectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must not be negative"})
		return
	}

	opts := usecase.RunOptions{SourceIDs: req.SourceIDs, Limit: req.Limit}
	if req.Now != nil {
		opts.Now = *req.Now
	}

	result, err := s.collector.RunCollection(c.Request.Context(), opts)
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		s.logger.Error("manual collection failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
	default:
		c.JSON(http.StatusOK, result)
	}
}

type runLogResponse struct {
	ID            string           `json:"id"`
	Status        domain.RunStatus `json:"status"`
	ArticlesCount int              `json:"articlesCount"`
	ErrorMessage  string           `json:"errorMessage,omitempty"`
	StartedAt     time.Time        `json:"startedAt"`
	FinishedAt    time.Time        `json:"finishedAt"`
}

func (s *Server) runLogs(c *gin.Context) {
	limit := uint64(defaultLogLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLogLimit)
	}

	logs, err := s.store.ListRunLogs(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]runLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, runLogResponse{
			ID:            l.ID,
			Status:        l.Status,
			ArticlesCount: l.ArticlesCount,
			ErrorMessage:  l.ErrorMessage,
			StartedAt:     l.StartedAt,
			FinishedAt:    l.FinishedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sourceId": c.Param("id"), "logs": out})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(started),
			"client", c.ClientIP(),
		)
	}
}
