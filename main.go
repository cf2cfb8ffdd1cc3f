// main.go - Entry point and dependency injection
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/sstent/activity-lookup/internal/config"
	"github.com/sstent/activity-lookup/internal/database"
	"github.com/sstent/activity-lookup/internal/logger"
	"github.com/sstent/activity-lookup/internal/parser"
	"github.com/sstent/activity-lookup/internal/service"
	"github.com/sstent/activity-lookup/internal/web"
)

type App struct {
	cfg      *config.Config
	db       *database.SQLiteDB
	cron     *cron.Cron
	server   *http.Server
	lookups  *service.LookupService
	shutdown chan os.Signal
}

func main() {
	// A missing .env is fine; the process environment still applies.
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.IsDev())
	if envErr != nil {
		logger.Log.Debug().Msg("no .env file found, using system environment variables")
	}

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("invalid configuration")
	}

	app := &App{
		cfg:      cfg,
		shutdown: make(chan os.Signal, 1),
	}

	if err := app.init(); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to initialize app")
	}

	app.start()

	signal.Notify(app.shutdown, os.Interrupt, syscall.SIGTERM)
	<-app.shutdown

	app.stop()
}

func (app *App) init() error {
	var lookupLog service.LookupLog
	var history web.LookupHistory

	app.cron = cron.New()

	if app.cfg.DBPath != "" {
		db, err := database.NewSQLiteDB(app.cfg.DBPath)
		if err != nil {
			return err
		}
		app.db = db
		lookupLog = db
		history = db

		job := service.NewPruneJob(db, app.cfg.LookupRetention)
		if _, err := job.Schedule(app.cron, app.cfg.PruneSchedule); err != nil {
			return err
		}
	}

	factory := parser.NewFactory(parser.NewHTTPClient(app.cfg.OutboundTimeout), app.cfg.GarminAuthURL)
	app.lookups = service.NewLookupService(factory, lookupLog)

	if app.cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := web.NewWebHandler(app.lookups, history)
	limiter := web.NewRateLimiter(app.cfg.RateLimitPerMinute, app.cfg.RateLimitBurst)

	app.server = &http.Server{
		Addr:              ":" + app.cfg.Port,
		Handler:           web.NewRouter(handler, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

func (app *App) start() {
	if app.db != nil {
		app.cron.Start()
		logger.Log.Info().
			Str("db", app.cfg.DBPath).
			Dur("retention", app.cfg.LookupRetention).
			Str("schedule", app.cfg.PruneSchedule).
			Msg("lookup log enabled")
	}

	go func() {
		logger.Log.Info().Str("addr", app.server.Addr).Msg("server starting")
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error().Err(err).Msg("server error")
			app.shutdown <- syscall.SIGTERM
		}
	}()
}

func (app *App) stop() {
	logger.Log.Info().Msg("shutting down")

	// Wait for a running prune before closing the database under it.
	<-app.cron.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("server shutdown error")
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			logger.Log.Error().Err(err).Msg("database close error")
		}
	}

	logger.Log.Info().Msg("shutdown complete")
}
