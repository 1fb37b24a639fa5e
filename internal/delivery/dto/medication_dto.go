package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateMedicationScheduleRequest struct {
	MedicineName string   `json:"medicine_name" validate:"required,min=2,max=255"`
	Dosage       string   `json:"dosage" validate:"required,max=100"`
	TimesOfDay   []string `json:"times_of_day" validate:"required,min=1,max=12,dive,datetime=15:04"`
	StartDate    string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Instructions string   `json:"instructions" validate:"omitempty,max=2000"`
}

type MarkTakenRequest struct {
	TakenAt *time.Time `json:"taken_at" validate:"omitempty"`
	Notes   string     `json:"notes" validate:"omitempty,max=500"`
}

// Response DTOs

type MedicationScheduleResponse struct {
	ID             uuid.UUID  `json:"id"`
	ConsultationID uuid.UUID  `json:"consultation_id"`
	UserID         uuid.UUID  `json:"user_id"`
	PrescribedBy   uuid.UUID  `json:"prescribed_by"`
	MedicineName   string     `json:"medicine_name"`
	Dosage         string     `json:"dosage"`
	TimesOfDay     []string   `json:"times_of_day"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Instructions   string     `json:"instructions,omitempty"`
	IsActive       bool       `json:"is_active"`
	ActiveToday    bool       `json:"active_today"`
	TakenCount     int64      `json:"taken_count"`
}

type MedicationScheduleListResponse struct {
	Schedules []MedicationScheduleResponse `json:"schedules"`
	Total     int                          `json:"total"`
}

type AdherenceLogResponse struct {
	ID         int64     `json:"id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
	TakenAt    time.Time `json:"taken_at"`
	Notes      string    `json:"notes,omitempty"`
}
