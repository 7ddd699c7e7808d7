package models

import (
	"time"
)

// SystemConfig is an admin-managed key/value row. Payment gateway settings use
// keys of the form "payment.gateway.<gateway>.<name>"; the ".enabled" flag is
// carried on the Enabled column so a gateway can be toggled without losing its
// stored value.
type SystemConfig struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ConfigKey   string    `gorm:"uniqueIndex;not null" json:"config_key"`
	ConfigValue string    `gorm:"type:text" json:"config_value"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Enabled     bool      `gorm:"default:true" json:"enabled"`
	UpdatedByID *uint     `gorm:"index" json:"updated_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SystemConfig) TableName() string {
	return "system_configs"
}
