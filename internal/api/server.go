package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botlens/botlens/internal/config"
	"github.com/botlens/botlens/internal/db"
	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/scheduler"
	"github.com/botlens/botlens/internal/trending"
)

// Server exposes the trending set, bot history, and the manual snapshot
// trigger over HTTP.
type Server struct {
	router     *gin.Engine
	aggregator *trending.Aggregator
	store      db.HistoryStore
	sched      *scheduler.Scheduler
	cfg        *config.Config
}

// NewServer creates the API server and registers all routes.
func NewServer(aggregator *trending.Aggregator, store db.HistoryStore, sched *scheduler.Scheduler, cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:     gin.New(),
		aggregator: aggregator,
		store:      store,
		sched:      sched,
		cfg:        cfg,
	}

	s.router.Use(gin.Recovery())
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/trending", s.getTrending)
		v1.GET("/bots/:id/history", s.getBotHistory)
		v1.GET("/topn", s.getTopN)
		v1.POST("/snapshot", s.triggerSnapshot)
		v1.GET("/health", s.healthCheck)
	}
}

// Run starts the HTTP server on the given address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthCheck handles GET /api/v1/health
func (s *Server) healthCheck(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, models.APIResponse{
			Success: false,
			Error:   "Database connection failed",
		})
		return
	}

	s.successResponse(c, map[string]interface{}{
		"status":          "healthy",
		"scheduler_state": s.sched.State(),
	})
}

func (s *Server) successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    data,
	})
}

func (s *Server) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

// currentSet returns the cached trending set, aggregating on demand when
// no cycle has completed yet or when the caller asked for a fresh one.
func (s *Server) currentSet(ctx context.Context, fresh bool) (*models.TrendingSet, error) {
	if !fresh {
		if set := s.aggregator.Cached(s.cfg.Search.BaseFilter); set != nil {
			return set, nil
		}
	}
	return s.aggregator.Aggregate(ctx, s.cfg.Search.BaseFilter)
}
