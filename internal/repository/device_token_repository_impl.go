package repository

import (
	"pharmacy-backend/internal/domain/entity"
	domainRepo "pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type deviceTokenRepository struct{}

func NewDeviceTokenRepository() domainRepo.DeviceTokenRepository {
	return &deviceTokenRepository{}
}

// Upsert re-homes a token to the latest user that registered it.
func (r *deviceTokenRepository) Upsert(db *gorm.DB, token *entity.DeviceToken) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(token).Error
}

func (r *deviceTokenRepository) FindTokensByUserIDs(db *gorm.DB, userIDs []uuid.UUID) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var tokens []string
	err := db.Model(&entity.DeviceToken{}).
		Where("user_id IN ?", userIDs).
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
