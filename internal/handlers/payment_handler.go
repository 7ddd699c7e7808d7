package handlers

import (
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"flippa/internal/models"
	"flippa/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
	escrows  *services.EscrowService
}

func NewPaymentHandler(payments *services.PaymentService, escrows *services.EscrowService) *PaymentHandler {
	return &PaymentHandler{payments: payments, escrows: escrows}
}

type InitiatePaymentRequest struct {
	EscrowID uint   `json:"escrow_id" validate:"required"`
	Gateway  string `json:"gateway" validate:"required,oneof=PAYPAL PAYNOW_ZIM STRIPE BANK_TRANSFER"`
}

// InitiatePayment starts a payment for an escrow on the chosen gateway
func (h *PaymentHandler) InitiatePayment(c *fiber.Ctx) error {
	req := new(InitiatePaymentRequest)
	if err := parseBody(c, req); err != nil {
		return fail(c, err)
	}

	payment, err := h.payments.InitiatePayment(req.EscrowID, models.PaymentGateway(req.Gateway), currentUserID(c), requestContext(c))
	if err != nil {
		return fail(c, err)
	}

	if payment.Status == models.PaymentFailed {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "Payment initiation failed. Try again or pick another gateway.",
			"payment": payment,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Payment initiated",
		"payment":      payment,
		"redirect_url": payment.CallbackURL,
	})
}

// GetPaymentByID retrieves a payment for its owner. A PROCESSING PayNow
// payment is reconciled against the gateway first, so the caller sees the
// settled status without waiting for the server-to-server callback.
func (h *PaymentHandler) GetPaymentByID(c *fiber.Ctx) error {
	paymentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payment id",
		})
	}

	payment, err := h.payments.FindByID(uint(paymentID))
	if err != nil {
		return fail(c, err)
	}

	role, _ := c.Locals("role").(string)
	if payment.UserID != currentUserID(c) && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this payment",
		})
	}

	if payment.Status == models.PaymentProcessing && payment.Gateway == models.GatewayPayNowZim {
		// Best effort: a poll failure must not break the read.
		if err := h.payments.CheckPayNowPaymentStatus(payment.ID); err != nil {
			log.Printf("PayNow reconciliation failed for payment %d: %v", payment.ID, err)
		} else if refreshed, err := h.payments.FindByID(payment.ID); err == nil {
			payment = refreshed
		}
	}

	return c.JSON(fiber.Map{
		"payment": payment,
	})
}

// GetMyPayments lists the authenticated user's payments
func (h *PaymentHandler) GetMyPayments(c *fiber.Ctx) error {
	payments, err := h.payments.FindByUserID(currentUserID(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"payments": payments,
		"count":    len(payments),
	})
}

// GetEscrowPayments lists the payments attached to an escrow the caller is
// party to
func (h *PaymentHandler) GetEscrowPayments(c *fiber.Ctx) error {
	escrowID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid escrow id",
		})
	}

	escrow, err := h.escrows.FindByID(uint(escrowID))
	if err != nil {
		return fail(c, err)
	}

	userID := currentUserID(c)
	role, _ := c.Locals("role").(string)
	if escrow.BuyerID != userID && escrow.SellerID != userID && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this escrow",
		})
	}

	payments, err := h.payments.FindByEscrowID(escrow.ID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"payments": payments,
		"count":    len(payments),
	})
}

// Callback is the unauthenticated server-to-server settlement endpoint.
// PayNow posts url-encoded fields (reference, paynowreference, pollurl,
// status); other gateways use the generic gateway/status/transaction_id
// parameters. The payment is located by gateway token when one is present,
// otherwise by the ESCROW_<id> merchant reference.
func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	gw := models.PaymentGateway(strings.ToUpper(callbackParam(c, "gateway")))
	pollToken := callbackParam(c, "pollurl", "gateway_transaction_id")
	reference := callbackParam(c, "reference")
	transactionID := callbackParam(c, "paynowreference", "transaction_id")
	status := callbackParam(c, "status")

	if gw == "" && callbackParam(c, "paynowreference") != "" {
		gw = models.GatewayPayNowZim
	}

	success := callbackSuccess(status)
	responseData := string(c.Body())

	var err error
	if pollToken != "" {
		err = h.payments.ProcessPaymentCallback(transactionID, pollToken, gw, success, responseData, requestContext(c))
	} else {
		err = h.payments.ProcessCallbackByReference(reference, transactionID, gw, success, responseData, requestContext(c))
	}
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Callback processed",
	})
}

// callbackParam reads the first non-empty value among names from the form
// body, then the query string.
func callbackParam(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if v := c.FormValue(name); v != "" {
			return v
		}
		if v := c.Query(name); v != "" {
			return v
		}
	}
	return ""
}

func callbackSuccess(status string) bool {
	switch strings.ToLower(status) {
	case "paid", "awaiting delivery", "delivered", "success", "completed", "true", "1":
		return true
	}
	return false
}
