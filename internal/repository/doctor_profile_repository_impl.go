package repository

import (
	"errors"

	"pharmacy-backend/internal/domain/entity"
	domainRepo "pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type doctorProfileRepository struct{}

func NewDoctorProfileRepository() domainRepo.DoctorProfileRepository {
	return &doctorProfileRepository{}
}

func (r *doctorProfileRepository) Create(db *gorm.DB, profile *entity.DoctorProfile) error {
	return db.Omit("User").Create(profile).Error
}

func (r *doctorProfileRepository) FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	var profile entity.DoctorProfile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *doctorProfileRepository) FindByBranch(db *gorm.DB, branchID uuid.UUID) ([]entity.DoctorProfile, error) {
	var profiles []entity.DoctorProfile
	err := db.Where("branch_id = ?", branchID).Order("user_id").Find(&profiles).Error
	return profiles, err
}

func (r *doctorProfileRepository) SetAvailability(db *gorm.DB, userID uuid.UUID, available bool) (int64, error) {
	result := db.Model(&entity.DoctorProfile{}).
		Where("user_id = ?", userID).
		Update("available_for_consultation", available)
	return result.RowsAffected, result.Error
}

func (r *doctorProfileRepository) IncrementActiveIfAdmissible(db *gorm.DB, userID uuid.UUID) (int64, error) {
	result := db.Model(&entity.DoctorProfile{}).
		Where("user_id = ? AND available_for_consultation = ? AND active_consultations_count < max_concurrent_consultations", userID, true).
		Update("active_consultations_count", gorm.Expr("active_consultations_count + 1"))
	return result.RowsAffected, result.Error
}

func (r *doctorProfileRepository) DecrementActive(db *gorm.DB, userID uuid.UUID) (int64, error) {
	result := db.Model(&entity.DoctorProfile{}).
		Where("user_id = ? AND active_consultations_count > 0", userID).
		Update("active_consultations_count", gorm.Expr("active_consultations_count - 1"))
	return result.RowsAffected, result.Error
}

// ApplyRating relies on SET expressions reading the pre-update row, so the
// average and the count move together in one statement.
func (r *doctorProfileRepository) ApplyRating(db *gorm.DB, userID uuid.UUID, rating int) (int64, error) {
	result := db.Model(&entity.DoctorProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"average_rating": gorm.Expr("(average_rating * total_raters + ?) / (total_raters + 1)", float64(rating)),
			"total_raters":   gorm.Expr("total_raters + 1"),
		})
	return result.RowsAffected, result.Error
}
