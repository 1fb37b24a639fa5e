package service

import (
	"errors"

	"pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// NextAverage folds one rating into a running average
func NextAverage(average float64, count int, rating int) (float64, int) {
	return (average*float64(count) + float64(rating)) / float64(count+1), count + 1
}

// RatingAggregator keeps a doctor's running average without historical rows.
// The update is one SQL statement, so concurrent ratings for the same doctor
// serialize on the row lock instead of racing a read-modify-write.
type RatingAggregator struct {
	doctorRepo repository.DoctorProfileRepository
	log        *logrus.Logger
}

func NewRatingAggregator(doctorRepo repository.DoctorProfileRepository, log *logrus.Logger) *RatingAggregator {
	return &RatingAggregator{
		doctorRepo: doctorRepo,
		log:        log,
	}
}

func (a *RatingAggregator) Apply(tx *gorm.DB, doctorID uuid.UUID, rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	rows, err := a.doctorRepo.ApplyRating(tx, doctorID, rating)
	if err != nil {
		a.log.Warnf("Failed to apply rating for doctor %s: %+v", doctorID, err)
		return err
	}
	if rows == 0 {
		return ErrDoctorNotFound
	}
	return nil
}
