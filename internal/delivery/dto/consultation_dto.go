package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateConsultationRequest struct {
	Type           string     `json:"type" validate:"required,oneof=general medication_inquiry prescription_review side_effect urgent"`
	BranchID       uuid.UUID  `json:"branch_id" validate:"required"`
	InitialMessage string     `json:"initial_message" validate:"omitempty,max=2000"`
	ItemID         *uuid.UUID `json:"item_id" validate:"omitempty"`
}

type CompleteConsultationRequest struct {
	Summary string `json:"summary" validate:"required,notblank,min=3,max=5000"`
	Notes   string `json:"notes" validate:"omitempty,max=5000"`
}

type RateConsultationRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Notes  string `json:"notes" validate:"omitempty,max=1000"`
}

type ConsultationListQuery struct {
	Statuses []string `validate:"omitempty,dive,oneof=requested assigned in_progress completed cancelled expired"`
	Limit    int      `validate:"omitempty,min=1,max=100"`
	Offset   int      `validate:"omitempty,min=0"`
}

// Response DTOs

type ConsultationDoctorResponse struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"full_name"`
	Specialization string    `json:"specialization"`
	AverageRating  float64   `json:"average_rating"`
	TotalRaters    int       `json:"total_raters"`
}

type ConsultationResponse struct {
	ID                 uuid.UUID                   `json:"id"`
	ConsultationNo     string                      `json:"consultation_no"`
	Type               string                      `json:"type"`
	Status             string                      `json:"status"`
	Priority           int                         `json:"priority"`
	UserID             uuid.UUID                   `json:"user_id"`
	DoctorID           *uuid.UUID                  `json:"doctor_id,omitempty"`
	BranchID           uuid.UUID                   `json:"branch_id"`
	ItemID             *uuid.UUID                  `json:"item_id,omitempty"`
	UserInitialMessage string                      `json:"user_initial_message,omitempty"`
	DoctorSummary      string                      `json:"doctor_summary,omitempty"`
	DoctorNotes        string                      `json:"doctor_notes,omitempty"`
	MessageCount       int                         `json:"message_count"`
	Rating             *int                        `json:"rating,omitempty"`
	RatingNotes        string                      `json:"rating_notes,omitempty"`
	AssignedAt         *time.Time                  `json:"assigned_at,omitempty"`
	StartedAt          *time.Time                  `json:"started_at,omitempty"`
	CompletedAt        *time.Time                  `json:"completed_at,omitempty"`
	CancelledAt        *time.Time                  `json:"cancelled_at,omitempty"`
	CancelledBy        string                      `json:"cancelled_by,omitempty"`
	ExpiresAt          time.Time                   `json:"expires_at"`
	CreatedAt          time.Time                   `json:"created_at"`
	Doctor             *ConsultationDoctorResponse `json:"doctor,omitempty"`
}

type ConsultationListResponse struct {
	Consultations []ConsultationResponse `json:"consultations"`
	Total         int                    `json:"total"`
}

type QueueEntryResponse struct {
	Position     int                  `json:"position"`
	Priority     int                  `json:"priority"`
	EnqueuedAt   time.Time            `json:"enqueued_at"`
	Consultation ConsultationResponse `json:"consultation"`
}

type QueueResponse struct {
	BranchID uuid.UUID            `json:"branch_id"`
	Entries  []QueueEntryResponse `json:"entries"`
	Total    int                  `json:"total"`
}
