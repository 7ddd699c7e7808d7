package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"flippa/internal/models"
	"flippa/internal/services"
)

type AdminHandler struct {
	escrows  *services.EscrowService
	payments *services.PaymentService
	config   *services.ConfigService
}

func NewAdminHandler(escrows *services.EscrowService, payments *services.PaymentService, config *services.ConfigService) *AdminHandler {
	return &AdminHandler{escrows: escrows, payments: payments, config: config}
}

type ResolveDisputeRequest struct {
	Resolution  string `json:"resolution" validate:"required"`
	Notes       string `json:"notes"`
	FinalStatus string `json:"final_status" validate:"required,oneof=TRANSFER_COMPLETED CANCELLED REFUNDED PAYMENT_RECEIVED"`
}

type UpdateConfigRequest struct {
	ConfigKey   string `json:"config_key" validate:"required"`
	ConfigValue string `json:"config_value"`
	Description string `json:"description"`
}

type ToggleConfigRequest struct {
	ConfigKey string `json:"config_key" validate:"required"`
	Enabled   *bool  `json:"enabled" validate:"required"`
}

type ConfirmPaymentRequest struct {
	EscrowID      uint   `json:"escrow_id" validate:"required"`
	TransactionID string `json:"transaction_id"`
}

// GetDisputes lists every escrow with an open dispute
func (h *AdminHandler) GetDisputes(c *fiber.Ctx) error {
	disputes, err := h.escrows.Disputes()
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"disputes": disputes,
		"count":    len(disputes),
	})
}

// ResolveDispute records the admin decision and moves the escrow to the
// chosen final status
func (h *AdminHandler) ResolveDispute(c *fiber.Ctx) error {
	escrowID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid escrow id",
		})
	}

	req := new(ResolveDisputeRequest)
	if err := parseBody(c, req); err != nil {
		return fail(c, err)
	}

	err = h.escrows.ResolveDispute(uint(escrowID), req.Resolution, req.Notes,
		models.EscrowStatus(req.FinalStatus), currentUserID(c), requestContext(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Dispute resolved",
	})
}

// ConfirmPayment settles a manual (bank transfer) payment for an escrow
func (h *AdminHandler) ConfirmPayment(c *fiber.Ctx) error {
	req := new(ConfirmPaymentRequest)
	if err := parseBody(c, req); err != nil {
		return fail(c, err)
	}

	err := h.payments.ProcessCallbackByReference(services.MerchantReference(req.EscrowID),
		req.TransactionID, models.GatewayBankTransfer, true, "", requestContext(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Payment confirmed",
	})
}

// GetConfigs lists all system configuration rows
func (h *AdminHandler) GetConfigs(c *fiber.Ctx) error {
	configs, err := h.config.AllConfigs()
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"configs": configs,
		"count":   len(configs),
	})
}

// UpdateConfig upserts a configuration value
func (h *AdminHandler) UpdateConfig(c *fiber.Ctx) error {
	req := new(UpdateConfigRequest)
	if err := parseBody(c, req); err != nil {
		return fail(c, err)
	}

	config, err := h.config.UpdateConfig(req.ConfigKey, req.ConfigValue, req.Description, currentUserID(c), requestContext(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Config updated",
		"config":  config,
	})
}

// ToggleConfig flips a configuration row's enabled flag, e.g. disabling a
// payment gateway
func (h *AdminHandler) ToggleConfig(c *fiber.Ctx) error {
	req := new(ToggleConfigRequest)
	if err := parseBody(c, req); err != nil {
		return fail(c, err)
	}

	if err := h.config.ToggleConfig(req.ConfigKey, *req.Enabled, currentUserID(c), requestContext(c)); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Config toggled",
	})
}
