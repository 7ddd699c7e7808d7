package models

import (
	"time"
)

type AuditLevel string

const (
	AuditInfo  AuditLevel = "INFO"
	AuditError AuditLevel = "ERROR"
)

// AuditLog records who did what to which entity. Rows are append-only.
type AuditLog struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	UserID      *uint      `gorm:"index" json:"user_id,omitempty"` // nil for system actions
	Action      string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType  string     `gorm:"type:varchar(50);not null" json:"entity_type"`
	EntityID    string     `gorm:"type:varchar(50)" json:"entity_id"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Level       AuditLevel `gorm:"type:varchar(10);not null;default:'INFO'" json:"level"`
	IPAddress   string     `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent   string     `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
