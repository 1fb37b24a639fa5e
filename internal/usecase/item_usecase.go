package usecase

import (
	"context"
	"errors"

	"pharmacy-backend/internal/converter"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidPrice = errors.New("price must not be negative")
)

const (
	defaultItemPageSize = 20
	maxItemPageSize     = 100
)

type ItemUsecase interface {
	Create(ctx context.Context, req *dto.ItemRequest) (*dto.ItemResponse, error)
	GetAll(ctx context.Context, page, limit int) ([]dto.ItemResponse, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *dto.ItemRequest) (*dto.ItemResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type itemUsecase struct {
	db       *gorm.DB
	log      *logrus.Logger
	itemRepo repository.ItemRepository
}

func NewItemUsecase(db *gorm.DB, log *logrus.Logger, itemRepo repository.ItemRepository) ItemUsecase {
	return &itemUsecase{
		db:       db,
		log:      log,
		itemRepo: itemRepo,
	}
}

func (u *itemUsecase) Create(ctx context.Context, req *dto.ItemRequest) (*dto.ItemResponse, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	item := &entity.Item{
		Name:                 req.Name,
		Description:          req.Description,
		Price:                req.Price.Round(2),
		Stock:                req.Stock,
		RequiresPrescription: req.RequiresPrescription,
	}
	if err := u.itemRepo.Create(u.db.WithContext(ctx), item); err != nil {
		u.log.Warnf("Failed to create item: %+v", err)
		return nil, err
	}

	u.log.Infof("Item created: id=%s, name=%s", item.ID, item.Name)
	return converter.ItemToResponse(item), nil
}

// GetAll pages through the catalogue; page is 1-based
func (u *itemUsecase) GetAll(ctx context.Context, page, limit int) ([]dto.ItemResponse, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultItemPageSize
	}
	if limit > maxItemPageSize {
		limit = maxItemPageSize
	}
	offset := (page - 1) * limit

	items, total, err := u.itemRepo.FindAll(u.db.WithContext(ctx), limit, offset)
	if err != nil {
		u.log.Warnf("Failed to list items: %+v", err)
		return nil, 0, err
	}
	return converter.ItemsToResponse(items), total, nil
}

func (u *itemUsecase) GetByID(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error) {
	item, err := u.itemRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find item %s: %+v", id, err)
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return converter.ItemToResponse(item), nil
}

func (u *itemUsecase) Update(ctx context.Context, id uuid.UUID, req *dto.ItemRequest) (*dto.ItemResponse, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	item, err := u.itemRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find item %s: %+v", id, err)
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	item.Name = req.Name
	item.Description = req.Description
	item.Price = req.Price.Round(2)
	item.Stock = req.Stock
	item.RequiresPrescription = req.RequiresPrescription

	if err := u.itemRepo.Update(tx, item); err != nil {
		u.log.Warnf("Failed to update item %s: %+v", id, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.ItemToResponse(item), nil
}

// Delete keeps consultations that reference the item; their item_id simply dangles
func (u *itemUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	rows, err := u.itemRepo.Delete(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to delete item %s: %+v", id, err)
		return err
	}
	if rows == 0 {
		return ErrItemNotFound
	}

	u.log.Infof("Item deleted: id=%s", id)
	return nil
}
