package repository

import (
	"flippa/internal/models"
)

// Find methods return (nil, nil) when no row matches; callers translate that
// into a domain not-found error. A non-nil error means the store itself failed.

type UserRepository interface {
	FindByID(id uint) (*models.User, error)
}

type ListingRepository interface {
	FindByID(id uint) (*models.Listing, error)
	Save(listing *models.Listing) error
}

type EscrowRepository interface {
	Create(escrow *models.Escrow) error
	Save(escrow *models.Escrow) error
	FindByID(id uint) (*models.Escrow, error)
	FindByBuyerID(buyerID uint) ([]models.Escrow, error)
	FindBySellerID(sellerID uint) ([]models.Escrow, error)
	FindDisputed() ([]models.Escrow, error)
}

type PaymentRepository interface {
	Create(payment *models.Payment) error
	Save(payment *models.Payment) error
	FindByID(id uint) (*models.Payment, error)
	FindByTransactionID(transactionID string) (*models.Payment, error)
	FindByGatewayTransactionID(gatewayTransactionID string) (*models.Payment, error)
	FindByEscrowID(escrowID uint) ([]models.Payment, error)
	FindByUserID(userID uint) ([]models.Payment, error)
}

type ConfigRepository interface {
	FindByKey(key string) (*models.SystemConfig, error)
	FindAll() ([]models.SystemConfig, error)
	Save(config *models.SystemConfig) error
}

type AuditLogRepository interface {
	Create(entry *models.AuditLog) error
}

// Repos bundles every repository the services depend on.
type Repos struct {
	Users     UserRepository
	Listings  ListingRepository
	Escrows   EscrowRepository
	Payments  PaymentRepository
	Configs   ConfigRepository
	AuditLogs AuditLogRepository
}

// Transactor runs fn against a Repos bound to a single all-or-nothing
// transaction. If fn returns an error every write inside it is rolled back.
type Transactor interface {
	Transaction(fn func(Repos) error) error
}
