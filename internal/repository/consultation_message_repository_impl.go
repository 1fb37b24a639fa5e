package repository

import (
	"time"

	"pharmacy-backend/internal/domain/entity"
	domainRepo "pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// notAuthoredBy matches messages whose author is not the given participant.
// System messages have no author and always match.
const notAuthoredBy = "(sender_user_id IS NULL OR sender_user_id <> ?) AND (sender_doctor_id IS NULL OR sender_doctor_id <> ?)"

type consultationMessageRepository struct{}

func NewConsultationMessageRepository() domainRepo.ConsultationMessageRepository {
	return &consultationMessageRepository{}
}

func (r *consultationMessageRepository) Create(db *gorm.DB, message *entity.ConsultationMessage) error {
	return db.Create(message).Error
}

func (r *consultationMessageRepository) FindByConsultationID(db *gorm.DB, consultationID uuid.UUID, limit, offset int) ([]entity.ConsultationMessage, error) {
	var messages []entity.ConsultationMessage
	query := db.Where("consultation_id = ?", consultationID).Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *consultationMessageRepository) MarkReadFor(db *gorm.DB, consultationID, readerID uuid.UUID, now time.Time) (int64, error) {
	result := db.Model(&entity.ConsultationMessage{}).
		Where("consultation_id = ? AND is_read = ?", consultationID, false).
		Where(notAuthoredBy, readerID, readerID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *consultationMessageRepository) CountUnreadFor(db *gorm.DB, consultationID, readerID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&entity.ConsultationMessage{}).
		Where("consultation_id = ? AND is_read = ?", consultationID, false).
		Where(notAuthoredBy, readerID, readerID).
		Count(&count).Error
	return count, err
}
