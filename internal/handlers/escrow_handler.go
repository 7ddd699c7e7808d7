package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"flippa/internal/models"
	"flippa/internal/services"
)

type EscrowHandler struct {
	escrows *services.EscrowService
}

func NewEscrowHandler(escrows *services.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrows: escrows}
}

type CreateEscrowRequest struct {
	ListingID      uint   `json:"listing_id" validate:"required"`
	PaymentGateway string `json:"payment_gateway" validate:"required,oneof=PAYPAL PAYNOW_ZIM STRIPE BANK_TRANSFER"`
	BuyerNotes     string `json:"buyer_notes"`
}

type RaiseDisputeRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CreateEscrow opens an escrow against a listing for the authenticated buyer
func (h *EscrowHandler) CreateEscrow(c *fiber.Ctx) error {
	req := new(CreateEscrowRequest)
	if err := parseBody(c, req); err != nil {
		return fail(c, err)
	}

	buyerID := currentUserID(c)

	escrow, err := h.escrows.CreateEscrow(req.ListingID, buyerID, models.PaymentGateway(req.PaymentGateway), req.BuyerNotes, requestContext(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Escrow created successfully. Proceed to payment.",
		"escrow":  escrow,
	})
}

// GetMyEscrows retrieves the authenticated user's escrows, optionally
// filtered by role (?role=buyer|seller)
func (h *EscrowHandler) GetMyEscrows(c *fiber.Ctx) error {
	userID := currentUserID(c)
	role := c.Query("role")

	var escrows []models.Escrow
	var err error

	switch role {
	case "seller":
		escrows, err = h.escrows.FindBySellerID(userID)
	case "buyer":
		escrows, err = h.escrows.FindByBuyerID(userID)
	default:
		var asSeller []models.Escrow
		escrows, err = h.escrows.FindByBuyerID(userID)
		if err == nil {
			asSeller, err = h.escrows.FindBySellerID(userID)
			escrows = append(escrows, asSeller...)
		}
	}
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"escrows": escrows,
		"count":   len(escrows),
	})
}

// GetEscrowByID retrieves a specific escrow for one of its parties
func (h *EscrowHandler) GetEscrowByID(c *fiber.Ctx) error {
	escrowID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid escrow id",
		})
	}
	userID := currentUserID(c)

	escrow, err := h.escrows.FindByID(uint(escrowID))
	if err != nil {
		return fail(c, err)
	}

	role, _ := c.Locals("role").(string)
	if escrow.BuyerID != userID && escrow.SellerID != userID && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this escrow",
		})
	}

	return c.JSON(fiber.Map{
		"escrow": escrow,
	})
}

// RaiseDispute flags the escrow for admin review
func (h *EscrowHandler) RaiseDispute(c *fiber.Ctx) error {
	escrowID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid escrow id",
		})
	}

	req := new(RaiseDisputeRequest)
	if err := parseBody(c, req); err != nil {
		return fail(c, err)
	}

	if err := h.escrows.RaiseDispute(uint(escrowID), req.Reason, currentUserID(c), requestContext(c)); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Dispute raised. An administrator will review it.",
	})
}

// CompleteTransfer marks the asset handover done (seller or admin)
func (h *EscrowHandler) CompleteTransfer(c *fiber.Ctx) error {
	escrowID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid escrow id",
		})
	}

	if err := h.escrows.CompleteTransfer(uint(escrowID), currentUserID(c), requestContext(c)); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Transfer completed. The listing has been marked as sold.",
	})
}
