package repository

import (
	"errors"

	"pharmacy-backend/internal/domain/entity"
	domainRepo "pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type itemRepository struct{}

func NewItemRepository() domainRepo.ItemRepository {
	return &itemRepository{}
}

func (r *itemRepository) Create(db *gorm.DB, item *entity.Item) error {
	return db.Create(item).Error
}

func (r *itemRepository) FindAll(db *gorm.DB, limit, offset int) ([]entity.Item, int64, error) {
	var items []entity.Item
	var total int64

	if err := db.Model(&entity.Item{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Limit(limit).Offset(offset).Order("name ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *itemRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Item, error) {
	var item entity.Item
	err := db.Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) Update(db *gorm.DB, item *entity.Item) error {
	return db.Save(item).Error
}

func (r *itemRepository) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Where("id = ?", id).Delete(&entity.Item{})
	return result.RowsAffected, result.Error
}
