package repository

import (
	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ItemRepository interface {
	Create(db *gorm.DB, item *entity.Item) error
	FindAll(db *gorm.DB, limit, offset int) ([]entity.Item, int64, error)
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Item, error)
	Update(db *gorm.DB, item *entity.Item) error
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
}
