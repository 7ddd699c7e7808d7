package repository

import (
	"errors"

	"gorm.io/gorm"

	"flippa/internal/models"
)

// DB is the GORM-backed store. It satisfies Transactor; Repos() hands out
// repositories bound to the root connection.
type DB struct {
	db *gorm.DB
}

func New(db *gorm.DB) *DB {
	return &DB{db: db}
}

func (d *DB) Repos() Repos {
	return reposFor(d.db)
}

func (d *DB) Transaction(fn func(Repos) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func reposFor(db *gorm.DB) Repos {
	return Repos{
		Users:     &userRepo{db},
		Listings:  &listingRepo{db},
		Escrows:   &escrowRepo{db},
		Payments:  &paymentRepo{db},
		Configs:   &configRepo{db},
		AuditLogs: &auditLogRepo{db},
	}
}

func notFoundToNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

type userRepo struct{ db *gorm.DB }

func (r *userRepo) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &user, nil
}

type listingRepo struct{ db *gorm.DB }

func (r *listingRepo) FindByID(id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.First(&listing, id).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &listing, nil
}

func (r *listingRepo) Save(listing *models.Listing) error {
	return r.db.Save(listing).Error
}

type escrowRepo struct{ db *gorm.DB }

func (r *escrowRepo) Create(escrow *models.Escrow) error {
	return r.db.Create(escrow).Error
}

func (r *escrowRepo) Save(escrow *models.Escrow) error {
	return r.db.Save(escrow).Error
}

func (r *escrowRepo) FindByID(id uint) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := r.db.Preload("Listing").First(&escrow, id).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &escrow, nil
}

func (r *escrowRepo) FindByBuyerID(buyerID uint) ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := r.db.Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&escrows).Error
	return escrows, err
}

func (r *escrowRepo) FindBySellerID(sellerID uint) ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := r.db.Where("seller_id = ?", sellerID).Order("created_at DESC").Find(&escrows).Error
	return escrows, err
}

func (r *escrowRepo) FindDisputed() ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := r.db.Where("dispute_raised = ?", true).Order("dispute_raised_at ASC").Find(&escrows).Error
	return escrows, err
}

type paymentRepo struct{ db *gorm.DB }

func (r *paymentRepo) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *paymentRepo) Save(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

func (r *paymentRepo) FindByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &payment, nil
}

func (r *paymentRepo) FindByTransactionID(transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("transaction_id = ?", transactionID).First(&payment).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &payment, nil
}

func (r *paymentRepo) FindByGatewayTransactionID(gatewayTransactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("gateway_transaction_id = ?", gatewayTransactionID).First(&payment).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &payment, nil
}

func (r *paymentRepo) FindByEscrowID(escrowID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("escrow_id = ?", escrowID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (r *paymentRepo) FindByUserID(userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

type configRepo struct{ db *gorm.DB }

func (r *configRepo) FindByKey(key string) (*models.SystemConfig, error) {
	var config models.SystemConfig
	if err := r.db.Where("config_key = ?", key).First(&config).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &config, nil
}

func (r *configRepo) FindAll() ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	err := r.db.Order("config_key ASC").Find(&configs).Error
	return configs, err
}

func (r *configRepo) Save(config *models.SystemConfig) error {
	return r.db.Save(config).Error
}

type auditLogRepo struct{ db *gorm.DB }

func (r *auditLogRepo) Create(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}
