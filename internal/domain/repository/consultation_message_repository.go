package repository

import (
	"time"

	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConsultationMessageRepository interface {
	Create(db *gorm.DB, message *entity.ConsultationMessage) error
	FindByConsultationID(db *gorm.DB, consultationID uuid.UUID, limit, offset int) ([]entity.ConsultationMessage, error)
	MarkReadFor(db *gorm.DB, consultationID, readerID uuid.UUID, now time.Time) (int64, error)
	CountUnreadFor(db *gorm.DB, consultationID, readerID uuid.UUID) (int64, error)
}
