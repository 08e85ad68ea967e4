package main

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"issuehub/config"
	"issuehub/middleware"
	"issuehub/models"
	"issuehub/routes"
	"issuehub/utils"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}
	utils.SetJWTSecret(cfg.JWTSecret)

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to initialize sentry")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate schema: %v", err)
	}

	app := fiber.New()

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		MaxAge:           3600,
	}))

	// Credential endpoints get their own limiter
	limiterStorage := middleware.NewRateLimitStorage(cfg.Redis)
	app.Use("/login", middleware.AuthRateLimiter(cfg.RateLimitAuth, limiterStorage))
	app.Use("/signup", middleware.AuthRateLimiter(cfg.RateLimitAuth, limiterStorage))

	mailer := utils.NewMailer(cfg.SMTP)

	routes.SetupRoutes(app, db, mailer, logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "running"})
	})

	logger.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
