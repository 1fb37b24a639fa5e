package service

import (
	"context"

	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditService writes audit rows inside the caller's transaction, so an
// audited change and its trail commit or roll back together.
type AuditService interface {
	LogCreate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, entityName string, entityID string, newValue interface{}) error
	LogTransition(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, entityName string, entityID string, from, to interface{}, extra map[string]interface{}) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate logs a create action
func (s *auditService) LogCreate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, entityName string, entityID string, newValue interface{}) error {
	metadata := datatypes.JSONMap{
		"entity":    entityName,
		"entity_id": entityID,
		"new_value": newValue,
	}
	return s.write(ctx, tx, userID, action, metadata)
}

// LogTransition logs a lifecycle move from one status to another
func (s *auditService) LogTransition(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, entityName string, entityID string, from, to interface{}, extra map[string]interface{}) error {
	metadata := datatypes.JSONMap{
		"entity":    entityName,
		"entity_id": entityID,
		"from":      from,
		"to":        to,
	}
	for k, v := range extra {
		metadata[k] = v
	}
	return s.write(ctx, tx, userID, action, metadata)
}

func (s *auditService) write(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, metadata datatypes.JSONMap) error {
	auditLog := &entity.AuditLog{
		UserID:   userID,
		Action:   action,
		Metadata: metadata,
	}

	if err := s.auditRepo.Create(tx.WithContext(ctx), auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}
