package repository

import (
	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicationScheduleRepository interface {
	Create(db *gorm.DB, schedule *entity.MedicationSchedule) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.MedicationSchedule, error)
	FindByUserID(db *gorm.DB, userID uuid.UUID) ([]entity.MedicationSchedule, error)
	CreateAdherenceLog(db *gorm.DB, log *entity.AdherenceLog) error
	CountAdherenceLogs(db *gorm.DB, scheduleID uuid.UUID) (int64, error)
}
