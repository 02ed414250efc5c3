package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"phackdemo/app"
	"phackdemo/internal"
	"phackdemo/ports"
)

// Server exposes the demo wizard, run history and calibration over HTTP
type Server struct {
	engine      *gin.Engine
	demo        *app.DemoService
	calibration *app.CalibrationService
	ledger      ports.RunLedgerReaderPort
	hub         *SSEHub
	sampleSize  int
	logger      *internal.Logger
	httpServer  *http.Server
}

// ServerDeps groups what the server needs; Ledger may be nil
type ServerDeps struct {
	Demo        *app.DemoService
	Calibration *app.CalibrationService
	Ledger      ports.RunLedgerReaderPort
	Hub         *SSEHub
	SampleSize  int
	GinMode     string
	Logger      *internal.Logger
}

// NewServer builds the gin engine and registers every route
func NewServer(deps ServerDeps) *Server {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}

	s := &Server{
		engine:      gin.New(),
		demo:        deps.Demo,
		calibration: deps.Calibration,
		ledger:      deps.Ledger,
		hub:         deps.Hub,
		sampleSize:  deps.SampleSize,
		logger:      logger.With("API"),
	}
	s.engine.Use(gin.Logger(), gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	api.GET("/explanation", s.handleExplanation)
	api.GET("/calibration", s.handleCalibration)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)

	d := api.Group("/demo")
	d.POST("", s.handleCreateSession)
	d.GET("/:id", s.handleGetSession)
	d.GET("/:id/batch", s.handleGetBatch)
	d.POST("/:id/begin", s.handleBegin)
	d.POST("/:id/run", s.handleStartRun)
	d.GET("/:id/events", s.handleEvents)
	d.POST("/:id/explanation", s.handleShowExplanation)
	d.POST("/:id/reset", s.handleReset)
}

// Handler returns the HTTP handler, used by tests and embedding servers
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes open event streams
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
