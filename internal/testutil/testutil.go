// Package testutil builds in-memory stores and fixtures for package tests.
package testutil

import (
	"fmt"
	"io"
	"testing"

	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory SQLite database with the full schema.
// It uses a single connection, so transactions serialize; code inside a
// transaction must only use the transaction handle.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	cfg := database.GormConfig("warn")
	cfg.DisableForeignKeyConstraintWhenMigrating = true

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Logger returns a logger that discards output
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func SeedCustomer(t *testing.T, db *gorm.DB) *entity.User {
	t.Helper()
	return seedUser(t, db, entity.RoleIDCustomer)
}

// SeedDoctor creates a doctor user with a capacity record in the given branch
func SeedDoctor(t *testing.T, db *gorm.DB, branchID uuid.UUID, maxConcurrent int, available bool) *entity.DoctorProfile {
	t.Helper()

	user := seedUser(t, db, entity.RoleIDDoctor)
	profile := &entity.DoctorProfile{
		UserID:                     user.ID,
		BranchID:                   branchID,
		STRNumber:                  "STR-" + user.ID.String()[:8],
		Specialization:             "Pharmacist",
		MaxConcurrentConsultations: maxConcurrent,
	}
	if err := db.Omit("User").Create(profile).Error; err != nil {
		t.Fatalf("seed doctor profile: %v", err)
	}
	// Written explicitly: gorm skips zero values for columns with a default.
	if err := db.Model(&entity.DoctorProfile{}).Where("user_id = ?", user.ID).
		Update("available_for_consultation", available).Error; err != nil {
		t.Fatalf("seed doctor availability: %v", err)
	}
	profile.AvailableForConsultation = available
	profile.User = *user
	return profile
}

// ReloadDoctor reads the doctor's capacity record back from the store
func ReloadDoctor(t *testing.T, db *gorm.DB, doctorID uuid.UUID) *entity.DoctorProfile {
	t.Helper()
	var profile entity.DoctorProfile
	if err := db.Where("user_id = ?", doctorID).First(&profile).Error; err != nil {
		t.Fatalf("reload doctor: %v", err)
	}
	return &profile
}

func seedUser(t *testing.T, db *gorm.DB, roleID int) *entity.User {
	t.Helper()
	id := uuid.New()
	user := &entity.User{
		ID:       id,
		RoleID:   roleID,
		Email:    id.String() + "@example.com",
		FullName: "Test " + id.String()[:8],
		IsActive: true,
	}
	if err := db.Omit("Role").Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}
