package repository

import (
	"errors"

	"pharmacy-backend/internal/domain/entity"
	domainRepo "pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type consultationQueueRepository struct{}

func NewConsultationQueueRepository() domainRepo.ConsultationQueueRepository {
	return &consultationQueueRepository{}
}

func (r *consultationQueueRepository) Create(db *gorm.DB, entry *entity.ConsultationQueue) error {
	return db.Omit("Consultation").Create(entry).Error
}

func (r *consultationQueueRepository) Delete(db *gorm.DB, consultationID uuid.UUID) (int64, error) {
	result := db.Where("consultation_id = ?", consultationID).Delete(&entity.ConsultationQueue{})
	return result.RowsAffected, result.Error
}

func (r *consultationQueueRepository) FindByConsultationID(db *gorm.DB, consultationID uuid.UUID) (*entity.ConsultationQueue, error) {
	var entry entity.ConsultationQueue
	err := db.Where("consultation_id = ?", consultationID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindByBranchOrdered returns the branch queue in dequeue order:
// priority DESC, then first come first served.
func (r *consultationQueueRepository) FindByBranchOrdered(db *gorm.DB, branchID uuid.UUID) ([]entity.ConsultationQueue, error) {
	var entries []entity.ConsultationQueue
	err := db.Preload("Consultation").
		Where("branch_id = ?", branchID).
		Order("priority DESC, enqueued_at ASC, consultation_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *consultationQueueRepository) UpdatePosition(db *gorm.DB, consultationID uuid.UUID, position int) error {
	return db.Model(&entity.ConsultationQueue{}).
		Where("consultation_id = ?", consultationID).
		Update("position", position).Error
}
