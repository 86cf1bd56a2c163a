package routes

import (
	"log/slog"

	"mathboard/backend/config"
	"mathboard/backend/controllers"
	"mathboard/backend/middleware"
	"mathboard/backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, svc *services.ProgressService, cfg *config.Config, logger *slog.Logger) error {
	api := app.Group("/api")

	// Health
	healthController := controllers.NewHealthController(svc)
	api.Get("/health", healthController.Health)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)

	// Levels routes
	levelsController, err := controllers.NewLevelsController(svc, cfg.DefaultLanguage, cfg.LocalizedLanguage)
	if err != nil {
		return err
	}
	api.Get("/levels", authMiddleware, levelsController.ListLevels)

	// Progress routes
	progressController := controllers.NewProgressController(svc, logger)
	progress := api.Group("/progress", authMiddleware)
	progress.Get("/", progressController.GetProgress)
	progress.Post("/completions", progressController.RecordCompletion)

	return nil
}
