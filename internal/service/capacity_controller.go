package service

import (
	"errors"
	"fmt"

	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrCapacityExceeded = errors.New("doctor is unavailable or at capacity")
	ErrDoctorNotFound   = errors.New("doctor not found")
)

// Rejection reasons wrapped into ErrCapacityExceeded
const (
	ReasonUnavailable = "doctor is not available for consultation"
	ReasonAtCapacity  = "doctor has reached the maximum concurrent consultations"
)

// CapacityController owns the doctor's active consultation counter.
// Both methods must run inside the transaction that performs the state
// transition they accompany, so a rollback undoes the counter change too.
type CapacityController struct {
	doctorRepo repository.DoctorProfileRepository
	log        *logrus.Logger
}

func NewCapacityController(doctorRepo repository.DoctorProfileRepository, log *logrus.Logger) *CapacityController {
	return &CapacityController{
		doctorRepo: doctorRepo,
		log:        log,
	}
}

// TryAdmit takes one slot for the doctor as a single check-and-increment statement.
func (c *CapacityController) TryAdmit(tx *gorm.DB, doctorID uuid.UUID) error {
	rows, err := c.doctorRepo.IncrementActiveIfAdmissible(tx, doctorID)
	if err != nil {
		c.log.Warnf("Failed to admit doctor %s: %+v", doctorID, err)
		return err
	}
	if rows == 1 {
		return nil
	}

	// Rejected. Read back only to explain why.
	profile, err := c.doctorRepo.FindByUserID(tx, doctorID)
	if err != nil {
		return err
	}
	if profile == nil {
		return ErrDoctorNotFound
	}
	if !profile.AvailableForConsultation {
		return fmt.Errorf("%w: %s", ErrCapacityExceeded, ReasonUnavailable)
	}
	return fmt.Errorf("%w: %s", ErrCapacityExceeded, ReasonAtCapacity)
}

// Release frees one slot. The decrement saturates at zero, so replaying a
// release after a crash-recovered retry cannot push the counter negative.
func (c *CapacityController) Release(tx *gorm.DB, doctorID uuid.UUID) error {
	rows, err := c.doctorRepo.DecrementActive(tx, doctorID)
	if err != nil {
		c.log.Warnf("Failed to release slot for doctor %s: %+v", doctorID, err)
		return err
	}
	if rows == 0 {
		c.log.Warnf("Release for doctor %s found no held slot", doctorID)
	}
	return nil
}

// Snapshot returns the doctor's current capacity record
func (c *CapacityController) Snapshot(db *gorm.DB, doctorID uuid.UUID) (*entity.DoctorProfile, error) {
	profile, err := c.doctorRepo.FindByUserID(db, doctorID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrDoctorNotFound
	}
	return profile, nil
}
