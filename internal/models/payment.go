package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentGateway string
type PaymentStatus string

const (
	GatewayPayPal       PaymentGateway = "PAYPAL"
	GatewayPayNowZim    PaymentGateway = "PAYNOW_ZIM"
	GatewayStripe       PaymentGateway = "STRIPE"
	GatewayBankTransfer PaymentGateway = "BANK_TRANSFER"
)

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

// IsTerminal reports whether the status is final. A terminal payment is never
// regressed by callbacks or reconciliation.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

// Payment is one attempt to settle an escrow through a gateway.
// TransactionID is generated internally; GatewayTransactionID holds the
// gateway's external id (the poll token for redirect-and-poll gateways).
type Payment struct {
	ID                   uint           `gorm:"primarykey" json:"id"`
	EscrowID             uint           `gorm:"not null;index" json:"escrow_id"`
	UserID               uint           `gorm:"not null;index" json:"user_id"`
	Amount               float64        `gorm:"not null" json:"amount"`
	Gateway              PaymentGateway `gorm:"type:varchar(20);not null" json:"gateway"`
	Status               PaymentStatus  `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	TransactionID        string         `gorm:"uniqueIndex;not null" json:"transaction_id"`
	GatewayTransactionID string         `gorm:"type:text;index" json:"gateway_transaction_id,omitempty"`
	CallbackURL          string         `gorm:"type:text" json:"callback_url,omitempty"`
	GatewayResponse      string         `gorm:"type:text" json:"gateway_response,omitempty"`
	FailureReason        string         `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Escrow Escrow `gorm:"foreignKey:EscrowID" json:"escrow,omitempty"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
