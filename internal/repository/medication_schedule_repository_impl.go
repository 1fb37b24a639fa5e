package repository

import (
	"errors"

	"pharmacy-backend/internal/domain/entity"
	domainRepo "pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type medicationScheduleRepository struct{}

func NewMedicationScheduleRepository() domainRepo.MedicationScheduleRepository {
	return &medicationScheduleRepository{}
}

func (r *medicationScheduleRepository) Create(db *gorm.DB, schedule *entity.MedicationSchedule) error {
	return db.Create(schedule).Error
}

func (r *medicationScheduleRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.MedicationSchedule, error) {
	var schedule entity.MedicationSchedule
	err := db.Where("id = ?", id).First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *medicationScheduleRepository) FindByUserID(db *gorm.DB, userID uuid.UUID) ([]entity.MedicationSchedule, error) {
	var schedules []entity.MedicationSchedule
	err := db.Where("user_id = ?", userID).Order("start_date ASC, created_at ASC").Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *medicationScheduleRepository) CreateAdherenceLog(db *gorm.DB, log *entity.AdherenceLog) error {
	return db.Create(log).Error
}

func (r *medicationScheduleRepository) CountAdherenceLogs(db *gorm.DB, scheduleID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&entity.AdherenceLog{}).Where("schedule_id = ?", scheduleID).Count(&count).Error
	return count, err
}
