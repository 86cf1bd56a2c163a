package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mathboard/backend/config"
	"mathboard/backend/events"
	"mathboard/backend/gamification"
	"mathboard/backend/middleware"
	"mathboard/backend/routes"
	"mathboard/backend/services"
	"mathboard/backend/store"
	"mathboard/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{
		Format: cfg.LogFormat,
		Output: os.Stdout,
		Level:  cfg.LogLevel,
	})

	calendar := gamification.NewCalendar(cfg.ReferenceTimezone, logger)

	levels, err := gamification.LoadLevelTable(cfg.LevelTablePath)
	if err != nil {
		log.Fatalf("Error loading level table: %v", err)
	}

	progressStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Error initializing store: %v", err)
	}

	svc, err := services.NewProgressService(progressStore, levels, calendar, services.Options{
		Bus:       events.NewBus(),
		CacheSize: cfg.ProfileCacheSize,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Error initializing progress service: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          utils.ErrorHandler,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Accept-Language, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	if err := routes.SetupRoutes(app, svc, cfg, logger); err != nil {
		log.Fatalf("Error setting up routes: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server started",
			slog.String("type", "sys"),
			slog.String("port", cfg.ServerPort),
			slog.String("timezone", calendar.Location().String()),
			slog.Int("levels", levels.Len()),
		)
		return app.Listen(":" + cfg.ServerPort)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down", slog.String("type", "sys"))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (store.ProgressStore, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		return store.NewMemoryStore(), nil
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(db, cfg.StoreMaxRetries), nil
}
