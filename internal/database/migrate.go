package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"flippa/internal/models"
)

func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Escrow{},
		&models.Payment{},
		&models.SystemConfig{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Printf("Error migrating database: %v", err)
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database migration completed successfully")
	return nil
}
