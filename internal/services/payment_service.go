package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"flippa/internal/errs"
	"flippa/internal/gateway"
	"flippa/internal/models"
	"flippa/internal/repository"
)

// PaymentService owns the payment state machine:
//
//	PENDING -> PROCESSING -> COMPLETED
//	PENDING | PROCESSING -> FAILED
//
// A COMPLETED payment cascades its escrow to PAYMENT_RECEIVED inside the same
// transaction, so a reader can never observe one without the other.
type PaymentService struct {
	repos    repository.Repos
	tx       repository.Transactor
	registry *gateway.Registry
	config   *ConfigService
	escrows  *EscrowService
	audit    *AuditService
}

func NewPaymentService(repos repository.Repos, tx repository.Transactor, registry *gateway.Registry,
	config *ConfigService, escrows *EscrowService, audit *AuditService) *PaymentService {
	return &PaymentService{
		repos:    repos,
		tx:       tx,
		registry: registry,
		config:   config,
		escrows:  escrows,
		audit:    audit,
	}
}

// configName maps the gateway enum to the identifier used in system-config
// keys ("payment.gateway.<name>.*").
func configName(g models.PaymentGateway) string {
	switch g {
	case models.GatewayPayPal:
		return "paypal"
	case models.GatewayPayNowZim:
		return "paynow-zim"
	case models.GatewayStripe:
		return "stripe"
	case models.GatewayBankTransfer:
		return "bank-transfer"
	}
	return string(g)
}

// MerchantReference builds the reference embedded in gateway requests and
// parsed back out of inbound callbacks.
func MerchantReference(escrowID uint) string {
	return fmt.Sprintf("ESCROW_%d", escrowID)
}

// ParseMerchantReference extracts the escrow id from an "ESCROW_<id>"
// reference. ok is false for anything else, including trailing garbage.
func ParseMerchantReference(reference string) (uint, bool) {
	digits, found := strings.CutPrefix(reference, "ESCROW_")
	if !found {
		return 0, false
	}
	id, err := strconv.ParseUint(digits, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// InitiatePayment creates a payment for the escrow's buyer and starts it on
// the chosen gateway. Pre-check failures (unknown escrow, wrong payer,
// disabled gateway) abort before any row exists. A gateway failure after that
// point does NOT fail the call: the payment is persisted as FAILED with the
// reason recorded, and returned for the caller to inspect.
func (s *PaymentService) InitiatePayment(escrowID uint, gw models.PaymentGateway, payerUserID uint, rc *RequestContext) (*models.Payment, error) {
	escrow, err := s.repos.Escrows.FindByID(escrowID)
	if err != nil {
		return nil, err
	}
	if escrow == nil {
		return nil, errs.NotFound("escrow", escrowID)
	}

	if escrow.BuyerID != payerUserID {
		return nil, errs.Unauthorized("Unauthorized to initiate payment")
	}

	if !s.config.IsGatewayEnabled(configName(gw)) {
		return nil, errs.GatewayDisabled(string(gw))
	}

	payment := &models.Payment{
		EscrowID:      escrow.ID,
		UserID:        payerUserID,
		Amount:        escrow.Amount,
		Gateway:       gw,
		Status:        models.PaymentPending,
		TransactionID: uuid.NewString(),
	}
	if err := s.repos.Payments.Create(payment); err != nil {
		return nil, err
	}

	adapter, ok := s.registry.Lookup(gw)
	if !ok {
		// Manual gateway (bank transfer): nothing to call, settlement
		// arrives via the generic callback.
		payment.Status = models.PaymentProcessing
		if err := s.repos.Payments.Save(payment); err != nil {
			return nil, err
		}
	} else {
		description := s.paymentDescription(escrow)
		payerEmail := ""
		if payer, err := s.repos.Users.FindByID(payerUserID); err == nil && payer != nil {
			payerEmail = payer.Email
		}

		result, gwErr := adapter.Initiate(context.Background(), escrow.Amount, MerchantReference(escrow.ID), payerEmail, description)
		if gwErr != nil {
			log.Printf("Failed to initiate payment with gateway %s: %v", gw, gwErr)
			payment.Status = models.PaymentFailed
			payment.FailureReason = gwErr.Error()
			s.audit.RecordError(&payerUserID, "PAYMENT_INITIATION_FAILED", "Payment", fmt.Sprintf("%d", payment.ID),
				fmt.Sprintf("Gateway %s rejected initiation: %v", gw, gwErr), rc)
		} else {
			payment.GatewayTransactionID = result.PollToken
			payment.CallbackURL = result.RedirectURL
			payment.Status = models.PaymentProcessing
		}
		if err := s.repos.Payments.Save(payment); err != nil {
			return nil, err
		}
	}

	s.audit.Record(&payerUserID, "PAYMENT_INITIATED", "Payment", fmt.Sprintf("%d", payment.ID),
		fmt.Sprintf("Payment initiated via %s", gw), rc)

	log.Printf("Payment initiated: %d for escrow: %d (status %s)", payment.ID, escrowID, payment.Status)
	return payment, nil
}

func (s *PaymentService) paymentDescription(escrow *models.Escrow) string {
	if listing, err := s.repos.Listings.FindByID(escrow.ListingID); err == nil && listing != nil {
		return "Payment for listing: " + listing.Title
	}
	return fmt.Sprintf("Payment for escrow #%d", escrow.ID)
}

// ProcessPaymentCallback settles or fails a payment from an inbound gateway
// notification. The gateway transaction id is the idempotency key: the
// payment is looked up by it, and a callback for a payment already in a
// terminal status is a no-op. On success the payment and its escrow move
// together in one transaction.
func (s *PaymentService) ProcessPaymentCallback(transactionID, gatewayTransactionID string, gw models.PaymentGateway, success bool, responseData string, rc *RequestContext) error {
	payment, err := s.repos.Payments.FindByGatewayTransactionID(gatewayTransactionID)
	if err != nil {
		return err
	}
	if payment == nil {
		return errs.NotFound("payment", gatewayTransactionID)
	}

	return s.applyCallback(payment, transactionID, gw, success, responseData, rc)
}

// ProcessCallbackByReference settles a payment located through the merchant
// reference instead of a gateway token. Manual gateways (bank transfer) carry
// no token, so their confirmations arrive this way. The newest non-terminal
// payment on the escrow is the one being settled.
func (s *PaymentService) ProcessCallbackByReference(reference, transactionID string, gw models.PaymentGateway, success bool, responseData string, rc *RequestContext) error {
	escrowID, ok := ParseMerchantReference(reference)
	if !ok {
		return errs.Unsupported(fmt.Sprintf("Unrecognized payment reference %q", reference))
	}

	payments, err := s.repos.Payments.FindByEscrowID(escrowID)
	if err != nil {
		return err
	}

	var payment *models.Payment
	for i := range payments {
		p := &payments[i]
		if p.Status.IsTerminal() {
			continue
		}
		if payment == nil || p.ID > payment.ID {
			payment = p
		}
	}
	if payment == nil {
		return errs.NotFound("payment", reference)
	}

	return s.applyCallback(payment, transactionID, gw, success, responseData, rc)
}

func (s *PaymentService) applyCallback(payment *models.Payment, transactionID string, gw models.PaymentGateway, success bool, responseData string, rc *RequestContext) error {
	if payment.Status.IsTerminal() {
		log.Printf("Payment %d already at %s, ignoring callback", payment.ID, payment.Status)
		return nil
	}

	if success {
		if transactionID == "" {
			transactionID = payment.TransactionID
		}
		if err := s.completePayment(payment.ID, transactionID, responseData); err != nil {
			return err
		}

		s.audit.Record(&payment.UserID, "PAYMENT_COMPLETED", "Payment", fmt.Sprintf("%d", payment.ID),
			fmt.Sprintf("Payment completed via %s", gw), rc)
		log.Printf("Payment completed: %d", payment.ID)
		return nil
	}

	payment.Status = models.PaymentFailed
	payment.FailureReason = "Payment failed"
	payment.GatewayResponse = responseData
	if err := s.repos.Payments.Save(payment); err != nil {
		return err
	}

	s.audit.RecordError(&payment.UserID, "PAYMENT_FAILED", "Payment", fmt.Sprintf("%d", payment.ID),
		fmt.Sprintf("Payment failed via %s", gw), rc)
	log.Printf("Payment failed: %d", payment.ID)
	return nil
}

// completePayment marks the payment COMPLETED and cascades the escrow, both
// inside one transaction.
func (s *PaymentService) completePayment(paymentID uint, transactionID, responseData string) error {
	return s.tx.Transaction(func(r repository.Repos) error {
		payment, err := r.Payments.FindByID(paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return errs.NotFound("payment", paymentID)
		}

		now := time.Now()
		payment.Status = models.PaymentCompleted
		payment.CompletedAt = &now
		if responseData != "" {
			payment.GatewayResponse = responseData
		}
		if err := r.Payments.Save(payment); err != nil {
			return err
		}

		return s.escrows.ApplyPaymentReceived(r, payment.EscrowID, transactionID)
	})
}

// CheckPayNowPaymentStatus is the reconciliation primitive for the poll-based
// gateway. Safe to call repeatedly: a terminal payment or a payment with no
// poll token yet is a no-op, an unpaid poll result mutates nothing, and only
// a paid result runs the completion path.
func (s *PaymentService) CheckPayNowPaymentStatus(paymentID uint) error {
	payment, err := s.repos.Payments.FindByID(paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return errs.NotFound("payment", paymentID)
	}

	if payment.Gateway != models.GatewayPayNowZim {
		return errs.Unsupported("Payment is not a PayNow payment")
	}

	if payment.Status.IsTerminal() {
		log.Printf("Payment %d already at %s, skipping status check", paymentID, payment.Status)
		return nil
	}

	pollToken := payment.GatewayTransactionID
	if pollToken == "" {
		log.Printf("No poll URL found for PayNow payment: %d", paymentID)
		return nil
	}

	adapter, ok := s.registry.Lookup(models.GatewayPayNowZim)
	if !ok {
		return errs.Unsupported("PayNow gateway is not configured")
	}

	status, err := adapter.CheckStatus(context.Background(), pollToken)
	if err != nil {
		return errs.Gateway("PayNow status check failed", err)
	}

	if !status.Paid {
		log.Printf("PayNow payment %d not yet paid", paymentID)
		return nil
	}

	if err := s.completePayment(payment.ID, payment.TransactionID, ""); err != nil {
		return err
	}

	s.audit.Record(nil, "PAYMENT_COMPLETED", "Payment", fmt.Sprintf("%d", payment.ID),
		"Payment confirmed via PayNow poll", nil)
	log.Printf("PayNow payment confirmed as paid: %d", paymentID)
	return nil
}

func (s *PaymentService) FindByID(id uint) (*models.Payment, error) {
	payment, err := s.repos.Payments.FindByID(id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errs.NotFound("payment", id)
	}
	return payment, nil
}

func (s *PaymentService) FindByTransactionID(transactionID string) (*models.Payment, error) {
	payment, err := s.repos.Payments.FindByTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errs.NotFound("payment", transactionID)
	}
	return payment, nil
}

func (s *PaymentService) FindByEscrowID(escrowID uint) ([]models.Payment, error) {
	return s.repos.Payments.FindByEscrowID(escrowID)
}

func (s *PaymentService) FindByUserID(userID uint) ([]models.Payment, error) {
	return s.repos.Payments.FindByUserID(userID)
}
