package repository

import (
	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorProfileRepository interface {
	Create(db *gorm.DB, profile *entity.DoctorProfile) error
	FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error)
	FindByBranch(db *gorm.DB, branchID uuid.UUID) ([]entity.DoctorProfile, error)
	SetAvailability(db *gorm.DB, userID uuid.UUID, available bool) (int64, error)

	// IncrementActiveIfAdmissible bumps the active counter only when the doctor is
	// available and below the cap, as a single statement.
	IncrementActiveIfAdmissible(db *gorm.DB, userID uuid.UUID) (int64, error)
	// DecrementActive lowers the active counter, never below zero.
	DecrementActive(db *gorm.DB, userID uuid.UUID) (int64, error)
	// ApplyRating folds one rating into the running average as a single statement.
	ApplyRating(db *gorm.DB, userID uuid.UUID, rating int) (int64, error)
}
