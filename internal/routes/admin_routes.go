package routes

import (
	"github.com/gofiber/fiber/v2"

	"flippa/internal/handlers"
	"flippa/internal/middleware"
)

func SetupAdminRoutes(app *fiber.App, h *handlers.AdminHandler) {
	admin := app.Group("/api/admin", middleware.Protected(), middleware.AdminOnly())

	// Dispute queue
	admin.Get("/disputes", h.GetDisputes)
	admin.Post("/disputes/:id/resolve", h.ResolveDispute)

	// Manual payment confirmation (bank transfers)
	admin.Post("/payments/confirm", h.ConfirmPayment)

	// System configuration
	admin.Get("/configs", h.GetConfigs)
	admin.Put("/configs", h.UpdateConfig)
	admin.Patch("/configs/toggle", h.ToggleConfig)
}
