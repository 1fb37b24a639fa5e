package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MedicationSchedule is a dosing plan a doctor prescribes from inside a consultation
type MedicationSchedule struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ConsultationID uuid.UUID                   `gorm:"type:uuid;not null;index" json:"consultation_id"`
	UserID         uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	PrescribedBy   uuid.UUID                   `gorm:"type:uuid;not null" json:"prescribed_by"`
	MedicineName   string                      `gorm:"type:varchar(255);not null" json:"medicine_name"`
	Dosage         string                      `gorm:"type:varchar(100);not null" json:"dosage"`
	TimesOfDay     datatypes.JSONSlice[string] `json:"times_of_day"`
	StartDate      time.Time                   `gorm:"type:date;not null" json:"start_date"`
	EndDate        *time.Time                  `gorm:"type:date" json:"end_date,omitempty"`
	Instructions   string                      `gorm:"type:text" json:"instructions,omitempty"`
	IsActive       bool                        `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MedicationSchedule) TableName() string {
	return "medication_schedules"
}

func (m *MedicationSchedule) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsActiveOn reports whether the schedule covers the given day
func (m *MedicationSchedule) IsActiveOn(day time.Time) bool {
	if !m.IsActive {
		return false
	}
	d := day.UTC().Truncate(24 * time.Hour)
	if d.Before(m.StartDate.UTC().Truncate(24 * time.Hour)) {
		return false
	}
	return m.EndDate == nil || !d.After(m.EndDate.UTC().Truncate(24*time.Hour))
}

// AdherenceLog records one "taken" mark against a medication schedule
type AdherenceLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ScheduleID uuid.UUID `gorm:"type:uuid;not null;index" json:"schedule_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	TakenAt    time.Time `gorm:"not null;index" json:"taken_at"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AdherenceLog) TableName() string {
	return "adherence_logs"
}
