package services

import (
	"log"

	"flippa/internal/models"
	"flippa/internal/repository"
)

// RequestContext carries the caller metadata recorded on audit rows. A nil
// context is fine for system-triggered actions (gateway callbacks, polling).
type RequestContext struct {
	IPAddress string
	UserAgent string
}

// AuditService writes the audit trail. Recording is fire-and-forget: a failed
// write is logged and never propagated, so it can never abort or roll back the
// business operation that triggered it.
type AuditService struct {
	repos repository.Repos
}

func NewAuditService(repos repository.Repos) *AuditService {
	return &AuditService{repos: repos}
}

func (s *AuditService) Record(userID *uint, action, entityType, entityID, description string, rc *RequestContext) {
	s.record(userID, action, entityType, entityID, description, models.AuditInfo, rc)
}

func (s *AuditService) RecordError(userID *uint, action, entityType, entityID, description string, rc *RequestContext) {
	s.record(userID, action, entityType, entityID, description, models.AuditError, rc)
}

func (s *AuditService) record(userID *uint, action, entityType, entityID, description string, level models.AuditLevel, rc *RequestContext) {
	entry := &models.AuditLog{
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		Level:       level,
	}
	if rc != nil {
		entry.IPAddress = rc.IPAddress
		entry.UserAgent = rc.UserAgent
	}

	if err := s.repos.AuditLogs.Create(entry); err != nil {
		log.Printf("Failed to create audit log %s/%s: %v", action, entityID, err)
	}
}
