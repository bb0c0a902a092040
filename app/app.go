package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/searchktools/fast-static/config"
	"github.com/searchktools/fast-static/core"
	"github.com/searchktools/fast-static/core/observability"
	"github.com/searchktools/fast-static/core/pools"
)

// App wires configuration, process signals and the event loop together
type App struct {
	cfg    *config.Config
	engine *core.Engine
}

// New creates an application instance from a validated configuration
func New(cfg *config.Config) (*App, error) {
	engine, err := core.NewEngine(cfg.ServerConfig())
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		engine: engine,
	}, nil
}

// Run listens, serves until SIGINT/SIGTERM and reports final statistics
func (a *App) Run() error {
	gc := pools.ApplyGCConfig(pools.GCConfig{
		GOGC:        a.cfg.GCPercent,
		MemoryLimit: a.cfg.MemoryLimit,
	})
	defer gc.Restore()

	// Broken pipes surface as EPIPE from write instead of killing the process
	signal.Ignore(syscall.SIGPIPE)

	if err := a.engine.Listen(); err != nil {
		return err
	}

	stop := a.awaitSignal()
	defer stop()

	err := a.engine.Serve()
	if rerr := a.report(a.engine.Stats()); err == nil {
		err = rerr
	}
	return err
}

// Stop asks the event loop to exit
func (a *App) Stop() {
	a.engine.Stop()
}

// awaitSignal stops the engine on the first SIGINT or SIGTERM. The returned
// func unregisters the handler.
func (a *App) awaitSignal() func() {
	quit := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-quit:
			log.Printf("Signal received: %v. Shutting down...", sig)
			a.engine.Stop()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(quit)
		close(done)
	}
}

func (a *App) report(s observability.Snapshot) error {
	log.Printf("📊 Uptime %s, %d closed (%d aborted), responses %v",
		s.Uptime.Round(time.Millisecond), s.Closed, s.Aborted, s.Responses)

	if a.cfg.StatsFile == "" {
		return nil
	}
	if err := s.WriteFile(a.cfg.StatsFile); err != nil {
		log.Printf("Failed to write statistics: %v", err)
		return err
	}
	log.Printf("Statistics written to %s", a.cfg.StatsFile)
	return nil
}
