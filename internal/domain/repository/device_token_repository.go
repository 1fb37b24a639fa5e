package repository

import (
	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeviceTokenRepository interface {
	Upsert(db *gorm.DB, token *entity.DeviceToken) error
	FindTokensByUserIDs(db *gorm.DB, userIDs []uuid.UUID) ([]string, error)
}
