package services

import (
	"fmt"
	"log"
	"strings"

	"flippa/internal/errs"
	"flippa/internal/models"
	"flippa/internal/repository"
)

// ConfigService reads and updates admin-managed system configuration.
// Payment gateway settings live under "payment.gateway.<gateway>.<name>".
// It is the CredentialSource the gateway adapters pull credentials from.
type ConfigService struct {
	repos repository.Repos
	audit *AuditService
}

func NewConfigService(repos repository.Repos, audit *AuditService) *ConfigService {
	return &ConfigService{repos: repos, audit: audit}
}

func gatewayConfigKey(gateway, name string) string {
	return "payment.gateway." + strings.ToLower(gateway) + "." + name
}

// IsGatewayEnabled reports whether a payment gateway is administratively
// enabled. An unconfigured gateway defaults to enabled.
func (s *ConfigService) IsGatewayEnabled(gateway string) bool {
	config, err := s.repos.Configs.FindByKey(gatewayConfigKey(gateway, "enabled"))
	if err != nil {
		log.Printf("Failed to read gateway config for %s: %v", gateway, err)
		return true
	}
	if config == nil {
		return true
	}
	return config.Enabled
}

// GatewayCredential returns a stored gateway credential, or defaultValue when
// the key is unconfigured or empty.
func (s *ConfigService) GatewayCredential(gateway, name, defaultValue string) string {
	config, err := s.repos.Configs.FindByKey(gatewayConfigKey(gateway, name))
	if err != nil || config == nil || config.ConfigValue == "" {
		return defaultValue
	}
	return config.ConfigValue
}

func (s *ConfigService) AllConfigs() ([]models.SystemConfig, error) {
	return s.repos.Configs.FindAll()
}

// UpdateConfig upserts a config row.
func (s *ConfigService) UpdateConfig(key, value, description string, adminUserID uint, rc *RequestContext) (*models.SystemConfig, error) {
	config, err := s.repos.Configs.FindByKey(key)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &models.SystemConfig{ConfigKey: key, Enabled: true}
	}

	config.ConfigValue = value
	if description != "" {
		config.Description = description
	}
	config.UpdatedByID = &adminUserID

	if err := s.repos.Configs.Save(config); err != nil {
		return nil, err
	}

	s.audit.Record(&adminUserID, "CONFIG_UPDATED", "SystemConfig", key,
		fmt.Sprintf("Config updated: %s", key), rc)
	log.Printf("System config updated: %s by admin %d", key, adminUserID)
	return config, nil
}

// ToggleConfig flips the enabled flag of an existing config row.
func (s *ConfigService) ToggleConfig(key string, enabled bool, adminUserID uint, rc *RequestContext) error {
	config, err := s.repos.Configs.FindByKey(key)
	if err != nil {
		return err
	}
	if config == nil {
		return errs.NotFound("config", key)
	}

	config.Enabled = enabled
	config.UpdatedByID = &adminUserID

	if err := s.repos.Configs.Save(config); err != nil {
		return err
	}

	s.audit.Record(&adminUserID, "CONFIG_TOGGLED", "SystemConfig", key,
		fmt.Sprintf("Config toggled: %s = %t", key, enabled), rc)
	log.Printf("System config toggled: %s = %t by admin %d", key, enabled, adminUserID)
	return nil
}
