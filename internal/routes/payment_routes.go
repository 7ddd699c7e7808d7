package routes

import (
	"github.com/gofiber/fiber/v2"

	"flippa/internal/handlers"
	"flippa/internal/middleware"
)

func SetupPaymentRoutes(app *fiber.App, h *handlers.PaymentHandler) {
	// Gateway callback is unauthenticated: PayNow posts it server-to-server.
	app.Post("/api/payments/callback", h.Callback)
	app.Get("/api/payments/callback", h.Callback)

	payment := app.Group("/api/payments", middleware.Protected())

	// Start a payment on a gateway (buyer)
	payment.Post("/initiate", h.InitiatePayment)

	// Get all my payments
	payment.Get("/my-payments", h.GetMyPayments)

	// Payments attached to an escrow
	payment.Get("/escrow/:id", h.GetEscrowPayments)

	// Get specific payment (reconciles PROCESSING PayNow payments)
	payment.Get("/:id", h.GetPaymentByID)
}
