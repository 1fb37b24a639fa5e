package repository

import (
	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConsultationQueueRepository interface {
	Create(db *gorm.DB, entry *entity.ConsultationQueue) error
	Delete(db *gorm.DB, consultationID uuid.UUID) (int64, error)
	FindByConsultationID(db *gorm.DB, consultationID uuid.UUID) (*entity.ConsultationQueue, error)
	FindByBranchOrdered(db *gorm.DB, branchID uuid.UUID) ([]entity.ConsultationQueue, error)
	UpdatePosition(db *gorm.DB, consultationID uuid.UUID, position int) error
}
