package repository

import (
	"errors"
	"time"

	"pharmacy-backend/internal/domain/entity"
	domainRepo "pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type consultationRepository struct{}

func NewConsultationRepository() domainRepo.ConsultationRepository {
	return &consultationRepository{}
}

func (r *consultationRepository) Create(db *gorm.DB, consultation *entity.Consultation) error {
	return db.Create(consultation).Error
}

func (r *consultationRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Consultation, error) {
	var consultation entity.Consultation
	err := db.Preload("Doctor.User").Where("id = ?", id).First(&consultation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &consultation, nil
}

func (r *consultationRepository) FindByIDAndDoctor(db *gorm.DB, id, doctorID uuid.UUID) (*entity.Consultation, error) {
	var consultation entity.Consultation
	err := db.Where("id = ? AND doctor_id = ?", id, doctorID).First(&consultation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &consultation, nil
}

func (r *consultationRepository) FindByUserID(db *gorm.DB, userID uuid.UUID, filter *entity.ConsultationFilter) ([]entity.Consultation, error) {
	var consultations []entity.Consultation
	query := applyConsultationFilter(db.Preload("Doctor.User").Where("user_id = ?", userID), filter)
	if err := query.Order("created_at DESC").Find(&consultations).Error; err != nil {
		return nil, err
	}
	return consultations, nil
}

func (r *consultationRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID, filter *entity.ConsultationFilter) ([]entity.Consultation, error) {
	var consultations []entity.Consultation
	query := applyConsultationFilter(db.Where("doctor_id = ?", doctorID), filter)
	if err := query.Order("assigned_at ASC").Find(&consultations).Error; err != nil {
		return nil, err
	}
	return consultations, nil
}

func (r *consultationRepository) FindExpiredRequested(db *gorm.DB, now time.Time, limit int) ([]entity.Consultation, error) {
	var consultations []entity.Consultation
	err := db.Where("status = ? AND expires_at < ?", entity.ConsultationStatusRequested, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&consultations).Error
	if err != nil {
		return nil, err
	}
	return consultations, nil
}

// Assign moves a requested, unexpired consultation to assigned.
// Returns affected rows: 1 = this caller won, 0 = someone else accepted/expired/cancelled it first.
func (r *consultationRepository) Assign(db *gorm.DB, id, doctorID uuid.UUID, now time.Time) (int64, error) {
	result := db.Model(&entity.Consultation{}).
		Where("id = ? AND status = ? AND expires_at > ?", id, entity.ConsultationStatusRequested, now).
		Updates(map[string]interface{}{
			"doctor_id":   doctorID,
			"status":      entity.ConsultationStatusAssigned,
			"assigned_at": now,
			"started_at":  now,
			"version":     gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *consultationRepository) Start(db *gorm.DB, id, doctorID uuid.UUID) (int64, error) {
	result := db.Model(&entity.Consultation{}).
		Where("id = ? AND doctor_id = ? AND status = ?", id, doctorID, entity.ConsultationStatusAssigned).
		Updates(map[string]interface{}{
			"status":  entity.ConsultationStatusInProgress,
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *consultationRepository) Complete(db *gorm.DB, id, doctorID uuid.UUID, summary, notes string, now time.Time) (int64, error) {
	result := db.Model(&entity.Consultation{}).
		Where("id = ? AND doctor_id = ? AND status IN ?", id, doctorID, entity.ActiveConsultationStatuses()).
		Updates(map[string]interface{}{
			"status":         entity.ConsultationStatusCompleted,
			"completed_at":   now,
			"doctor_summary": summary,
			"doctor_notes":   notes,
			"version":        gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// Cancel retires a consultation that is still in the given status and drops its doctor.
func (r *consultationRepository) Cancel(db *gorm.DB, id uuid.UUID, from entity.ConsultationStatus, cancelledBy string, now time.Time) (int64, error) {
	result := db.Model(&entity.Consultation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":       entity.ConsultationStatusCancelled,
			"doctor_id":    nil,
			"cancelled_at": now,
			"cancelled_by": cancelledBy,
			"version":      gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *consultationRepository) Expire(db *gorm.DB, id uuid.UUID, now time.Time) (int64, error) {
	result := db.Model(&entity.Consultation{}).
		Where("id = ? AND status = ? AND expires_at < ?", id, entity.ConsultationStatusRequested, now).
		Updates(map[string]interface{}{
			"status":  entity.ConsultationStatusExpired,
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// IncrementMessageCount bumps the denormalized counter unless the consultation is retired.
func (r *consultationRepository) IncrementMessageCount(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.Consultation{}).
		Where("id = ? AND status NOT IN ?", id, entity.TerminalConsultationStatuses()).
		Update("message_count", gorm.Expr("message_count + 1"))
	return result.RowsAffected, result.Error
}

// UpdateIfVersion is a compare-and-swap on the version column.
func (r *consultationRepository) UpdateIfVersion(db *gorm.DB, id uuid.UUID, version int, fields map[string]interface{}) (int64, error) {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	result := db.Model(&entity.Consultation{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func applyConsultationFilter(query *gorm.DB, filter *entity.ConsultationFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	return query
}
