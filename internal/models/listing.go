package models

import (
	"time"

	"gorm.io/gorm"
)

type ListingStatus string

const (
	ListingDraft         ListingStatus = "DRAFT"
	ListingPendingReview ListingStatus = "PENDING_REVIEW"
	ListingActive        ListingStatus = "ACTIVE"
	ListingSold          ListingStatus = "SOLD"
	ListingCancelled     ListingStatus = "CANCELLED"
	ListingSuspended     ListingStatus = "SUSPENDED"
)

// Listing is the asset being sold (website, domain, social account, app).
// The escrow core only reads its price/status and cascades SOLD on transfer.
type Listing struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	SellerID    uint           `gorm:"not null;index" json:"seller_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Price       float64        `gorm:"not null" json:"price"`
	Status      ListingStatus  `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Seller User `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

func (Listing) TableName() string {
	return "listings"
}
