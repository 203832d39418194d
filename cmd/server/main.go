// Package main is the entry point of the application
package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/maze-server/pkg/clock"
	"github.com/tecu23/maze-server/pkg/config"
	"github.com/tecu23/maze-server/pkg/events"
	"github.com/tecu23/maze-server/pkg/game"
	"github.com/tecu23/maze-server/pkg/jobs"
	"github.com/tecu23/maze-server/pkg/repository"
	"github.com/tecu23/maze-server/pkg/repository/sqlite"
	"github.com/tecu23/maze-server/pkg/server"
	"github.com/tecu23/maze-server/pkg/telemetry"
)

const serviceName = "maze-server"

// App encapsulates global dependencies
type application struct {
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Hub       *server.Hub
	Services  *server.Services
	Store     repository.Store
	Jobs      *jobs.Pool
	Server    *http.Server
	Upgrader  websocket.Upgrader

	shutdownTracing func(context.Context) error

	StartTime time.Time
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.String("port", "", "server port (overrides MAZE_PORT)")
	flag.Parse()

	// A missing .env file is fine; the environment may already be set.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if *debug {
		cfg.Debug = true
	}
	if *port != "" {
		cfg.Port = *port
	}

	// Initialize logger
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	if envErr != nil {
		logger.Debug("no .env file loaded", zap.Error(envErr))
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		logger.Fatal("initialize tracing error", zap.Error(err))
	}

	// Initialize event publisher
	publisher := events.NewPublisher()
	publisher.SubscribeAll(func(e events.Event) {
		logger.Debug("event",
			zap.String("type", string(e.Type)),
			zap.String("session_id", e.SessionID),
			zap.Any("payload", e.Payload),
		)
	})

	// Initialize repository
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initialize store error", zap.Error(err))
	}

	// Initialize job pool
	pool := jobs.NewPool(jobs.Options{
		Workers:    cfg.SaveWorkers,
		JobTimeout: cfg.JobTimeout,
	}, logger)

	// Initialize game manager
	gm := game.NewManager(clock.System, publisher, logger)

	hub := server.NewHub(publisher, logger)

	app := &application{
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Hub:       hub,
		Store:     store,
		Jobs:      pool,
		Services: &server.Services{
			Manager:         gm,
			Store:           store,
			Jobs:            pool,
			Publisher:       publisher,
			Clock:           clock.System,
			Settings:        cfg.SoloSettings(),
			LeaderboardSize: cfg.LeaderboardSize,
			TickInterval:    cfg.TickInterval,
			Logger:          logger,
		},
		Upgrader:        newUpgrader(cfg.FrontendOrigin),
		shutdownTracing: shutdownTracing,
		StartTime:       time.Now(),
	}

	go app.Hub.Run()

	err = app.serve()
	if err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	if cfg.DBPath == "" {
		logger.Warn("MAZE_DB_PATH not set, runs are kept in memory")
		return repository.NewInMemoryRepository(logger), nil
	}
	store, err := sqlite.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown(ctx context.Context) {
	// Shut down hub
	if app.Hub != nil {
		app.Hub.Shutdown()
	}

	if app.Jobs != nil {
		if err := app.Jobs.Shutdown(ctx); err != nil {
			app.Logger.Error("job pool shutdown error", zap.Error(err))
		}
	}

	// Wait for session teardown handlers before closing the store.
	app.Publisher.Wait()

	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Error("store close error", zap.Error(err))
		}
	}

	if app.shutdownTracing != nil {
		if err := app.shutdownTracing(ctx); err != nil {
			app.Logger.Error("tracing shutdown error", zap.Error(err))
		}
	}

	app.Logger.Info("All components shut down successfully")
}
