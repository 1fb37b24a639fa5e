package dto

import (
	"github.com/google/uuid"
)

// Request DTOs

type SetAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// Response DTOs

type DoctorCapacityResponse struct {
	DoctorID                   uuid.UUID `json:"doctor_id"`
	BranchID                   uuid.UUID `json:"branch_id"`
	AvailableForConsultation   bool      `json:"available_for_consultation"`
	ActiveConsultationsCount   int       `json:"active_consultations_count"`
	MaxConcurrentConsultations int       `json:"max_concurrent_consultations"`
	FreeSlots                  int       `json:"free_slots"`
	AverageRating              float64   `json:"average_rating"`
	TotalRaters                int       `json:"total_raters"`
}

type RegisterDoctorRequest struct {
	UserID                     uuid.UUID `json:"user_id" validate:"required"`
	BranchID                   uuid.UUID `json:"branch_id" validate:"required"`
	STRNumber                  string    `json:"str_number" validate:"required,min=5,max=50"`
	Specialization             string    `json:"specialization" validate:"required,max=100"`
	Biography                  string    `json:"biography" validate:"omitempty,max=2000"`
	MaxConcurrentConsultations int       `json:"max_concurrent_consultations" validate:"omitempty,min=1,max=20"`
}

type DoctorSlotsResponse struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	FreeSlots int       `json:"free_slots"`
}

type BranchCapacityResponse struct {
	BranchID       uuid.UUID             `json:"branch_id"`
	Doctors        []DoctorSlotsResponse `json:"doctors"`
	TotalFreeSlots int                   `json:"total_free_slots"`
	Source         string                `json:"source"`
}
