package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"flippa/internal/database"
	"flippa/internal/gateway"
	"flippa/internal/handlers"
	"flippa/internal/repository"
	"flippa/internal/routes"
	"flippa/internal/services"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Connect to database and run migrations
	db, err := database.Connect()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Wire repositories and services
	store := repository.New(db)
	repos := store.Repos()

	audit := services.NewAuditService(repos)
	notifier := services.NewNotificationService()
	config := services.NewConfigService(repos, audit)

	registry := gateway.NewRegistry(
		gateway.NewPayNowAdapter(config),
		gateway.NewPayPalAdapter(config),
		gateway.NewStripeAdapter(config),
	)

	escrows := services.NewEscrowService(repos, store, audit, notifier)
	payments := services.NewPaymentService(repos, store, registry, config, escrows, audit)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Flippa API v1.0",
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	// Health check
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "flippa",
		})
	})

	// Setup application routes
	routes.SetupEscrowRoutes(app, handlers.NewEscrowHandler(escrows))
	routes.SetupPaymentRoutes(app, handlers.NewPaymentHandler(payments, escrows))
	routes.SetupAdminRoutes(app, handlers.NewAdminHandler(escrows, payments, config))

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on http://localhost:%s", port)
	log.Fatal(app.Listen(":" + port))
}
