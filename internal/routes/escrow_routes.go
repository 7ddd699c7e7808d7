package routes

import (
	"github.com/gofiber/fiber/v2"

	"flippa/internal/handlers"
	"flippa/internal/middleware"
)

func SetupEscrowRoutes(app *fiber.App, h *handlers.EscrowHandler) {
	escrow := app.Group("/api/escrows", middleware.Protected())

	// Create new escrow (buyer)
	escrow.Post("/", h.CreateEscrow)

	// Get all my escrows (?role=buyer|seller)
	escrow.Get("/my-escrows", h.GetMyEscrows)

	// Get specific escrow
	escrow.Get("/:id", h.GetEscrowByID)

	// Raise a dispute (buyer or seller)
	escrow.Post("/:id/dispute", h.RaiseDispute)

	// Complete the asset transfer (seller or admin)
	escrow.Post("/:id/complete-transfer", h.CompleteTransfer)
}
