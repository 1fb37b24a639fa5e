package database

import (
	"fmt"

	"pharmacy-backend/internal/domain/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate creates or updates the schema and seeds the role table
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.DoctorProfile{},
		&entity.Consultation{},
		&entity.ConsultationMessage{},
		&entity.ConsultationQueue{},
		&entity.AuditLog{},
		&entity.DeviceToken{},
		&entity.MedicationSchedule{},
		&entity.AdherenceLog{},
		&entity.Item{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	roles := entity.DefaultRoles()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error; err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	return nil
}
