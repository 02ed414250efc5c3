package container

import (
	"context"
	"fmt"

	"phackdemo/adapters/db"
	"phackdemo/adapters/memory"
	"phackdemo/adapters/rng"
	"phackdemo/adapters/stats/pseudo"
	"phackdemo/app"
	"phackdemo/internal"
	"phackdemo/internal/api"
	"phackdemo/internal/config"
	"phackdemo/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Adapters
	RNG       *rng.SeededAdapter
	Generator *pseudo.Generator
	Ledger    ports.RunLedgerPort

	// Services
	Simulator   *app.Simulator
	Calibration *app.CalibrationService
	Demo        *app.DemoService
	SSEHub      *api.SSEHub
}

// New creates a container with the adapters every entry point needs. The
// ledger is opened separately by InitLedger.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:    cfg,
		Logger:    internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
		RNG:       rng.NewSeededAdapter(),
		Generator: pseudo.NewGenerator(),
	}
	c.Simulator = app.NewSimulator(c.Logger)
	c.Calibration = app.NewCalibrationService(c.Generator, c.RNG, c.Logger)
	return c, nil
}

// InitLedger opens the configured run ledger
func (c *Container) InitLedger(ctx context.Context) error {
	if c.Ledger != nil {
		return nil
	}
	if c.Config.Ledger.Driver == "memory" {
		c.Ledger = memory.NewRunLedgerAdapter()
		c.Logger.Info("using in-memory run ledger")
		return nil
	}

	conn, err := db.Open(ctx, c.Config.Ledger.Driver, c.Config.Ledger.DSN)
	if err != nil {
		return err
	}
	c.DB = conn
	c.Ledger = db.NewRunLedgerAdapter(conn)
	c.Logger.Info("using %s run ledger", c.Config.Ledger.Driver)
	return nil
}

// InitDemo wires the demo service to publisher; a nil publisher creates the
// SSE hub used by the HTTP server
func (c *Container) InitDemo(publisher ports.UpdatePublisher) error {
	if publisher == nil {
		c.SSEHub = api.NewSSEHub(c.Logger)
		publisher = c.SSEHub
	}

	sim := c.Config.Simulation
	demo, err := app.NewDemoService(app.DemoDeps{
		Generator: c.Generator,
		RNG:       c.RNG,
		Ledger:    c.Ledger,
		Publisher: publisher,
		Logger:    c.Logger,
	}, app.DemoSettings{
		BatchSize:     sim.BatchSize,
		SampleSize:    sim.SampleSize,
		TrialCap:      sim.TrialCap,
		Seed:          sim.Seed,
		TrialInterval: c.Config.Pacing.TrialInterval,
		RevealDelay:   c.Config.Pacing.RevealDelay,
		CodeVersion:   sim.CodeVersion,
		SessionTTL:    c.Config.Server.SessionTTL,
	})
	if err != nil {
		return err
	}
	c.Demo = demo
	return nil
}

// Server builds the HTTP API over the container's services
func (c *Container) Server() (*api.Server, error) {
	if c.Demo == nil {
		if err := c.InitDemo(nil); err != nil {
			return nil, err
		}
	}
	return api.NewServer(api.ServerDeps{
		Demo:        c.Demo,
		Calibration: c.Calibration,
		Ledger:      c.Ledger,
		Hub:         c.SSEHub,
		SampleSize:  c.Config.Simulation.SampleSize,
		GinMode:     c.Config.Server.GinMode,
		Logger:      c.Logger,
	}), nil
}

// Shutdown aborts running demos, then releases the hub and the database
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Demo != nil {
		c.Demo.Close()
	}
	if c.SSEHub != nil {
		c.SSEHub.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
