package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"

	"filedrop/internal/config"
	"filedrop/internal/database"
	"filedrop/internal/handlers"
	"filedrop/internal/middleware"
	"filedrop/internal/storage"
	"filedrop/internal/types"

	_ "filedrop/docs/api" // Swagger docs
)

// @title Filedrop API
// @version 1.0.0
// @description Authenticated file sharing with per-user download grants
// @termsOfService http://swagger.io/terms/

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name session_token

func main() {
	// Load .env when present; real environments set variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed the initial admin account
	if err := database.SeedAdmin(db, cfg); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	// Open the blob store
	store, err := storage.New(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}

	sessions := middleware.NewSessionStore(time.Duration(cfg.SessionTTL) * time.Minute)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("filedrop")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health probe
	healthHandler := &handlers.HealthHandler{Cfg: cfg, DB: db}
	app.Get("/health", healthHandler.Health)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	authHandler := &handlers.AuthHandler{DB: db, Sessions: sessions}
	fileHandler := &handlers.FileHandler{DB: db, Store: store}
	adminHandler := &handlers.AdminHandler{DB: db}

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)

	// File routes (authenticated; upload and delete admin-only)
	files := api.Group("/files", middleware.RequireAuth(sessions))
	files.Get("/", fileHandler.List)
	files.Post("/", middleware.RequireAdmin(db), fileHandler.Upload)
	files.Get("/:id/download", fileHandler.Download)
	files.Delete("/:id", middleware.RequireAdmin(db), fileHandler.Delete)

	// Admin grant management
	admin := api.Group("/admin", middleware.RequireAuth(sessions), middleware.RequireAdmin(db))
	admin.Get("/permissions", adminHandler.GetPermissions)
	admin.Post("/permissions", adminHandler.SetPermissions)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Errors raised by the auth middleware carry status and category
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
		errorType = appErr.Type
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
