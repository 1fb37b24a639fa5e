package repository

import (
	"time"

	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConsultationRepository is the durable consultation store.
// Conditional updates return RowsAffected so callers can tell a lost race (0)
// from a successful transition (1).
type ConsultationRepository interface {
	Create(db *gorm.DB, consultation *entity.Consultation) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Consultation, error)
	FindByIDAndDoctor(db *gorm.DB, id, doctorID uuid.UUID) (*entity.Consultation, error)
	FindByUserID(db *gorm.DB, userID uuid.UUID, filter *entity.ConsultationFilter) ([]entity.Consultation, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID, filter *entity.ConsultationFilter) ([]entity.Consultation, error)
	FindExpiredRequested(db *gorm.DB, now time.Time, limit int) ([]entity.Consultation, error)

	Assign(db *gorm.DB, id, doctorID uuid.UUID, now time.Time) (int64, error)
	Start(db *gorm.DB, id, doctorID uuid.UUID) (int64, error)
	Complete(db *gorm.DB, id, doctorID uuid.UUID, summary, notes string, now time.Time) (int64, error)
	Cancel(db *gorm.DB, id uuid.UUID, from entity.ConsultationStatus, cancelledBy string, now time.Time) (int64, error)
	Expire(db *gorm.DB, id uuid.UUID, now time.Time) (int64, error)
	IncrementMessageCount(db *gorm.DB, id uuid.UUID) (int64, error)
	UpdateIfVersion(db *gorm.DB, id uuid.UUID, version int, fields map[string]interface{}) (int64, error)
}
