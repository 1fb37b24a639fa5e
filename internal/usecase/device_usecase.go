package usecase

import (
	"context"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type DeviceUsecase interface {
	Register(ctx context.Context, userID uuid.UUID, req *dto.RegisterDeviceRequest) error
}

type deviceUsecase struct {
	db        *gorm.DB
	log       *logrus.Logger
	tokenRepo repository.DeviceTokenRepository
}

func NewDeviceUsecase(db *gorm.DB, log *logrus.Logger, tokenRepo repository.DeviceTokenRepository) DeviceUsecase {
	return &deviceUsecase{
		db:        db,
		log:       log,
		tokenRepo: tokenRepo,
	}
}

// Register binds a push token to the user. A token seen before moves to the new user.
func (u *deviceUsecase) Register(ctx context.Context, userID uuid.UUID, req *dto.RegisterDeviceRequest) error {
	token := &entity.DeviceToken{
		UserID:   userID,
		Token:    req.Token,
		Platform: req.Platform,
	}
	if err := u.tokenRepo.Upsert(u.db.WithContext(ctx), token); err != nil {
		u.log.Warnf("Failed to register device for user %s: %+v", userID, err)
		return err
	}
	return nil
}
