package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flippa/internal/errs"
	"flippa/internal/gateway"
	"flippa/internal/models"
)

func TestMerchantReference(t *testing.T) {
	assert.Equal(t, "ESCROW_42", MerchantReference(42))

	id, ok := ParseMerchantReference("ESCROW_42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"", "ESCROW_", "ORDER_42", "42", "ESCROW_42abc", "ESCROW_-1", "ESCROW_0"} {
		_, ok := ParseMerchantReference(bad)
		assert.False(t, ok, "reference %q", bad)
	}
}

func TestInitiatePayment_PayNow(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)

	payment, err := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)
	require.NoError(t, err)
	require.NotNil(t, payment)

	assert.Equal(t, models.PaymentProcessing, payment.Status)
	assert.Equal(t, escrow.Amount, payment.Amount)
	assert.NotEmpty(t, payment.TransactionID)
	assert.Equal(t, "https://paynow.test/poll/1", payment.GatewayTransactionID)
	assert.Equal(t, "https://paynow.test/pay", payment.CallbackURL)
	assert.Equal(t, 1, f.paynow.initiateCalls)

	assert.Contains(t, f.store.auditActions(), "PAYMENT_INITIATED")
}

func TestInitiatePayment_BankTransfer(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayBankTransfer, "", nil)

	// No adapter is registered for bank transfers: the payment goes straight
	// to PROCESSING and waits for manual settlement.
	payment, err := f.payments.InitiatePayment(escrow.ID, models.GatewayBankTransfer, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentProcessing, payment.Status)
	assert.Empty(t, payment.GatewayTransactionID)
	assert.Empty(t, payment.CallbackURL)
}

func TestInitiatePayment_DisabledGateway(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)

	f.disableGateway("paynow-zim")

	_, err := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)
	assert.Equal(t, errs.KindGatewayDisabled, errs.KindOf(err))

	// Rejected before any row is written.
	assert.Empty(t, f.store.payments)
	assert.Equal(t, 0, f.paynow.initiateCalls)
}

func TestInitiatePayment_NotBuyer(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)

	for _, userID := range []uint{1, 3} {
		_, err := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, userID, nil)
		assert.Equal(t, errs.KindUnauthorized, errs.KindOf(err), "user %d", userID)
	}
	assert.Empty(t, f.store.payments)
}

func TestInitiatePayment_EscrowNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.payments.InitiatePayment(404, models.GatewayPayNowZim, 2, nil)
	assert.True(t, errs.IsNotFound(err))
}

func TestInitiatePayment_GatewayFailure(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)

	f.paynow.initResult = nil
	f.paynow.initErr = fmt.Errorf("paynow unreachable")

	// The failed attempt is kept as a FAILED row rather than surfaced as an
	// error, so the buyer can retry with another gateway.
	payment, err := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, payment.Status)
	assert.Equal(t, "paynow unreachable", payment.FailureReason)
	assert.Empty(t, payment.GatewayTransactionID)
	assert.Contains(t, f.store.auditActions(), "PAYMENT_INITIATION_FAILED")
}

func TestProcessPaymentCallback_Success(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayPal, "", nil)
	require.Equal(t, 1000.00, escrow.Amount)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayPal, 2, nil)

	err := f.payments.ProcessPaymentCallback("PP-CAPTURE-1", payment.GatewayTransactionID, models.GatewayPayPal, true, `{"status":"COMPLETED"}`, nil)
	require.NoError(t, err)

	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, `{"status":"COMPLETED"}`, got.GatewayResponse)

	// Settlement cascades to the escrow in the same transaction.
	gotEscrow, _ := f.escrows.FindByID(escrow.ID)
	assert.Equal(t, models.EscrowPaymentReceived, gotEscrow.Status)
	assert.Equal(t, "PP-CAPTURE-1", gotEscrow.PaymentTransactionID)

	assert.Contains(t, f.store.auditActions(), "PAYMENT_COMPLETED")
}

func TestProcessPaymentCallback_Failure(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	err := f.payments.ProcessPaymentCallback("", payment.GatewayTransactionID, models.GatewayPayNowZim, false, "status=Cancelled", nil)
	require.NoError(t, err)

	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentFailed, got.Status)
	assert.Equal(t, "Payment failed", got.FailureReason)
	assert.Equal(t, "status=Cancelled", got.GatewayResponse)

	gotEscrow, _ := f.escrows.FindByID(escrow.ID)
	assert.Equal(t, models.EscrowPendingPayment, gotEscrow.Status)

	assert.Contains(t, f.store.auditActions(), "PAYMENT_FAILED")
}

func TestProcessPaymentCallback_UnknownReference(t *testing.T) {
	f := newFixture()
	err := f.payments.ProcessPaymentCallback("", "no-such-token", models.GatewayPayNowZim, true, "", nil)
	assert.True(t, errs.IsNotFound(err))
}

func TestProcessPaymentCallback_DuplicateIsNoOp(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	require.NoError(t, f.payments.ProcessPaymentCallback("PN-REF-1", payment.GatewayTransactionID, models.GatewayPayNowZim, true, "", nil))
	require.NoError(t, f.escrows.CompleteTransfer(escrow.ID, 1, nil))

	// A replayed success callback must change nothing once the payment is
	// COMPLETED, let alone regress a finished escrow.
	require.NoError(t, f.payments.ProcessPaymentCallback("PN-REF-2", payment.GatewayTransactionID, models.GatewayPayNowZim, true, "", nil))

	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentCompleted, got.Status)
	gotEscrow, _ := f.escrows.FindByID(escrow.ID)
	assert.Equal(t, models.EscrowTransferCompleted, gotEscrow.Status)
	assert.Equal(t, "PN-REF-1", gotEscrow.PaymentTransactionID)
}

func TestProcessPaymentCallback_DoesNotResurrectFailedPayment(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	require.NoError(t, f.payments.ProcessPaymentCallback("", payment.GatewayTransactionID, models.GatewayPayNowZim, false, "status=Cancelled", nil))

	// FAILED is terminal: a late success replay for the same token must not
	// complete the payment or touch the escrow.
	require.NoError(t, f.payments.ProcessPaymentCallback("PN-REF-1", payment.GatewayTransactionID, models.GatewayPayNowZim, true, "status=Paid", nil))

	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentFailed, got.Status)
	assert.Nil(t, got.CompletedAt)

	gotEscrow, _ := f.escrows.FindByID(escrow.ID)
	assert.Equal(t, models.EscrowPendingPayment, gotEscrow.Status)
	assert.Empty(t, gotEscrow.PaymentTransactionID)
}

func TestProcessPaymentCallback_FallsBackToInternalTransactionID(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	require.NoError(t, f.payments.ProcessPaymentCallback("", payment.GatewayTransactionID, models.GatewayPayNowZim, true, "", nil))

	gotEscrow, _ := f.escrows.FindByID(escrow.ID)
	assert.Equal(t, payment.TransactionID, gotEscrow.PaymentTransactionID)
}

func TestProcessCallbackByReference_BankTransfer(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayBankTransfer, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayBankTransfer, 2, nil)
	require.Empty(t, payment.GatewayTransactionID)

	err := f.payments.ProcessCallbackByReference(MerchantReference(escrow.ID), "BANK-REF-7", models.GatewayBankTransfer, true, "", nil)
	require.NoError(t, err)

	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentCompleted, got.Status)
	gotEscrow, _ := f.escrows.FindByID(escrow.ID)
	assert.Equal(t, models.EscrowPaymentReceived, gotEscrow.Status)
	assert.Equal(t, "BANK-REF-7", gotEscrow.PaymentTransactionID)
}

func TestProcessCallbackByReference_BadReference(t *testing.T) {
	f := newFixture()

	err := f.payments.ProcessCallbackByReference("ORDER_1", "", models.GatewayBankTransfer, true, "", nil)
	assert.Equal(t, errs.KindUnsupported, errs.KindOf(err))

	err = f.payments.ProcessCallbackByReference("ESCROW_77", "", models.GatewayBankTransfer, true, "", nil)
	assert.True(t, errs.IsNotFound(err))
}

func TestProcessPaymentCallback_RollsBackWhenEscrowSaveFails(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	f.store.failEscrowSave = true
	err := f.payments.ProcessPaymentCallback("PN-REF-1", payment.GatewayTransactionID, models.GatewayPayNowZim, true, "", nil)
	require.Error(t, err)

	// The payment completion must not survive the failed escrow cascade.
	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentProcessing, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestCheckPayNowPaymentStatus_Paid(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	f.paynow.statusResult = &gateway.StatusResult{Paid: true}

	require.NoError(t, f.payments.CheckPayNowPaymentStatus(payment.ID))

	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentCompleted, got.Status)
	gotEscrow, _ := f.escrows.FindByID(escrow.ID)
	assert.Equal(t, models.EscrowPaymentReceived, gotEscrow.Status)

	// Once terminal the poll is skipped entirely.
	require.NoError(t, f.payments.CheckPayNowPaymentStatus(payment.ID))
	assert.Equal(t, 1, f.paynow.statusCalls)
}

func TestCheckPayNowPaymentStatus_NotYetPaid(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	f.paynow.statusResult = &gateway.StatusResult{Paid: false}

	require.NoError(t, f.payments.CheckPayNowPaymentStatus(payment.ID))

	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentProcessing, got.Status)
	gotEscrow, _ := f.escrows.FindByID(escrow.ID)
	assert.Equal(t, models.EscrowPendingPayment, gotEscrow.Status)
}

func TestCheckPayNowPaymentStatus_GatewayError(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	f.paynow.statusResult = nil
	f.paynow.statusErr = fmt.Errorf("poll timeout")

	err := f.payments.CheckPayNowPaymentStatus(payment.ID)
	assert.Equal(t, errs.KindGateway, errs.KindOf(err))

	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentProcessing, got.Status)
}

func TestCheckPayNowPaymentStatus_WrongGateway(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayPal, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayPal, 2, nil)

	err := f.payments.CheckPayNowPaymentStatus(payment.ID)
	assert.Equal(t, errs.KindUnsupported, errs.KindOf(err))
}

func TestCheckPayNowPaymentStatus_NoPollToken(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	// A PROCESSING payment with no stored poll token has nothing to poll.
	stored := f.store.payments[payment.ID]
	stored.GatewayTransactionID = ""
	f.store.payments[payment.ID] = stored

	require.NoError(t, f.payments.CheckPayNowPaymentStatus(payment.ID))
	assert.Equal(t, 0, f.paynow.statusCalls)

	got, _ := f.payments.FindByID(payment.ID)
	assert.Equal(t, models.PaymentProcessing, got.Status)
}

func TestCheckPayNowPaymentStatus_TerminalPayment(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)

	f.paynow.initResult = nil
	f.paynow.initErr = fmt.Errorf("down")
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)
	require.Equal(t, models.PaymentFailed, payment.Status)

	// FAILED is terminal, so the poll is skipped before the token check.
	require.NoError(t, f.payments.CheckPayNowPaymentStatus(payment.ID))
	assert.Equal(t, 0, f.paynow.statusCalls)
}

func TestPaymentReads(t *testing.T) {
	f := newFixture()
	escrow, _ := f.escrows.CreateEscrow(1, 2, models.GatewayPayNowZim, "", nil)
	payment, _ := f.payments.InitiatePayment(escrow.ID, models.GatewayPayNowZim, 2, nil)

	byTx, err := f.payments.FindByTransactionID(payment.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, byTx.ID)

	byEscrow, err := f.payments.FindByEscrowID(escrow.ID)
	require.NoError(t, err)
	require.Len(t, byEscrow, 1)

	byUser, err := f.payments.FindByUserID(2)
	require.NoError(t, err)
	require.Len(t, byUser, 1)

	_, err = f.payments.FindByTransactionID("missing")
	assert.True(t, errs.IsNotFound(err))
}
