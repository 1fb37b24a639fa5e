package usecase

import (
	"context"
	"errors"
	"time"

	"pharmacy-backend/internal/converter"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAuditLogNotFound = errors.New("audit log not found")
	ErrInvalidTimeRange = errors.New("since must be before until")
)

const defaultAuditLogPageSize = 50

type AuditLogUsecase interface {
	Search(ctx context.Context, query *dto.AuditLogQuery) ([]dto.AuditLogResponse, int64, error)
	GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error)
}

type auditLogUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
}

func NewAuditLogUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		db:           db,
		log:          log,
		auditLogRepo: auditLogRepo,
	}
}

// Search pages through the audit trail, newest first. The query is expected
// to be validated already.
func (u *auditLogUsecase) Search(ctx context.Context, query *dto.AuditLogQuery) ([]dto.AuditLogResponse, int64, error) {
	filter := &entity.AuditLogFilter{
		Action: query.Action,
		Limit:  query.Limit,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLogPageSize
	}
	if query.Page > 1 {
		filter.Offset = (query.Page - 1) * filter.Limit
	}
	if query.UserID != "" {
		id, err := uuid.Parse(query.UserID)
		if err != nil {
			return nil, 0, err
		}
		filter.UserID = &id
	}
	if query.Since != "" {
		since, err := time.Parse(time.RFC3339, query.Since)
		if err != nil {
			return nil, 0, err
		}
		since = since.UTC()
		filter.Since = &since
	}
	if query.Until != "" {
		until, err := time.Parse(time.RFC3339, query.Until)
		if err != nil {
			return nil, 0, err
		}
		until = until.UTC()
		filter.Until = &until
	}
	if filter.Since != nil && filter.Until != nil && !filter.Since.Before(*filter.Until) {
		return nil, 0, ErrInvalidTimeRange
	}

	logs, total, err := u.auditLogRepo.Search(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to search audit logs: %+v", err)
		return nil, 0, err
	}
	return converter.AuditLogsToResponses(logs), total, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error) {
	auditLog, err := u.auditLogRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find audit log %d: %+v", id, err)
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return converter.AuditLogToResponse(auditLog), nil
}
