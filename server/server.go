// Package server exposes the webhook intake over HTTP. One endpoint receives
// alert payloads and runs them synchronously through the executor; health and
// metrics endpoints sit beside it for operations.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeflow/config"
	"tradeflow/logger"
	"tradeflow/models"
)

// Trader is the slice of the executor the handlers need.
type Trader interface {
	Execute(ctx context.Context, intent *models.OrderIntent) (*models.PositionAttempt, error)
}

type Server struct {
	cfg      *config.Config
	trader   Trader
	log      *logger.Log
	validate *validator.Validate
	engine   *gin.Engine
}

func New(cfg *config.Config, trader Trader) *Server {
	if !config.IsDevelopment(config.AppEnvironment()) {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		trader:   trader,
		log:      logger.GetLogger(),
		validate: validator.New(),
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.POST("/webhook", s.handleWebhook)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer builds the net/http server the caller owns the lifecycle of.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.Tradeflow.Name,
		"version": s.cfg.Tradeflow.Version,
	})
}
