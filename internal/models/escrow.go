package models

import (
	"time"

	"gorm.io/gorm"
)

type EscrowStatus string

const (
	EscrowPendingPayment    EscrowStatus = "PENDING_PAYMENT"
	EscrowPaymentReceived   EscrowStatus = "PAYMENT_RECEIVED"
	EscrowDisputeRaised     EscrowStatus = "DISPUTE_RAISED"
	EscrowTransferCompleted EscrowStatus = "TRANSFER_COMPLETED"
	EscrowCancelled         EscrowStatus = "CANCELLED"
	EscrowRefunded          EscrowStatus = "REFUNDED"
)

// IsTerminal reports whether the status is final. Terminal escrows are never
// hard-deleted; reaching a terminal status is the deletion-equivalent.
func (s EscrowStatus) IsTerminal() bool {
	switch s {
	case EscrowTransferCompleted, EscrowCancelled, EscrowRefunded:
		return true
	}
	return false
}

// Escrow holds a single listing sale-in-progress between one buyer and one seller.
// Amount is a snapshot of the listing price at creation and never changes after.
type Escrow struct {
	ID                   uint           `gorm:"primarykey" json:"id"`
	ListingID            uint           `gorm:"not null;index" json:"listing_id"`
	BuyerID              uint           `gorm:"not null;index" json:"buyer_id"`
	SellerID             uint           `gorm:"not null;index" json:"seller_id"`
	Amount               float64        `gorm:"not null" json:"amount"`
	Status               EscrowStatus   `gorm:"type:varchar(30);not null;default:'PENDING_PAYMENT'" json:"status"`
	PaymentGateway       PaymentGateway `gorm:"type:varchar(20)" json:"payment_gateway"`
	PaymentTransactionID string         `gorm:"type:varchar(100)" json:"payment_transaction_id,omitempty"`
	BuyerNotes           string         `gorm:"type:text" json:"buyer_notes,omitempty"`
	SellerNotes          string         `gorm:"type:text" json:"seller_notes,omitempty"`

	DisputeRaised        bool       `gorm:"default:false" json:"dispute_raised"`
	DisputeReason        string     `gorm:"type:text" json:"dispute_reason,omitempty"`
	DisputeResolution    string     `gorm:"type:text" json:"dispute_resolution,omitempty"`
	AdminResolutionNotes string     `gorm:"type:text" json:"admin_resolution_notes,omitempty"`
	ResolvedByAdminID    *uint      `gorm:"index" json:"resolved_by_admin_id,omitempty"`
	DisputeRaisedAt      *time.Time `json:"dispute_raised_at,omitempty"`
	DisputeResolvedAt    *time.Time `json:"dispute_resolved_at,omitempty"`

	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	PaymentReceivedAt   *time.Time     `json:"payment_received_at,omitempty"`
	TransferInitiatedAt *time.Time     `json:"transfer_initiated_at,omitempty"`
	TransferCompletedAt *time.Time     `json:"transfer_completed_at,omitempty"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Listing Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	Buyer   User    `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller  User    `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

func (Escrow) TableName() string {
	return "escrows"
}
