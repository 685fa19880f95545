package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/arman-d/ConsultLinkBack/internal/config"
	"github.com/arman-d/ConsultLinkBack/internal/database"
	"github.com/arman-d/ConsultLinkBack/internal/routes"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var slogger *slog.Logger
	if cfg.AppEnv == "development" {
		slogger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	} else {
		slogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	// 3. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	sweeper, err := routes.RegisterRoutes(app, cfg, database.DB, slogger)
	if err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// 4. Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	// 5. Start Server
	slogger.Info("server starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
