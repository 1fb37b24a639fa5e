package converter

import (
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
)

// ConsultationToResponse converts a Consultation entity to ConsultationResponse DTO.
// Doctor notes are private to the doctor and only included when withDoctorNotes is set.
func ConsultationToResponse(c *entity.Consultation, withDoctorNotes bool) *dto.ConsultationResponse {
	if c == nil {
		return nil
	}

	response := &dto.ConsultationResponse{
		ID:                 c.ID,
		ConsultationNo:     c.ConsultationNo,
		Type:               string(c.Type),
		Status:             string(c.Status),
		Priority:           c.Priority,
		UserID:             c.UserID,
		DoctorID:           c.DoctorID,
		BranchID:           c.BranchID,
		ItemID:             c.ItemID,
		UserInitialMessage: c.UserInitialMessage,
		DoctorSummary:      c.DoctorSummary,
		MessageCount:       c.MessageCount,
		Rating:             c.Rating,
		RatingNotes:        c.RatingNotes,
		AssignedAt:         c.AssignedAt,
		StartedAt:          c.StartedAt,
		CompletedAt:        c.CompletedAt,
		CancelledAt:        c.CancelledAt,
		CancelledBy:        c.CancelledBy,
		ExpiresAt:          c.ExpiresAt,
		CreatedAt:          c.CreatedAt,
	}
	if withDoctorNotes {
		response.DoctorNotes = c.DoctorNotes
	}

	// Include doctor info if loaded
	if c.Doctor != nil && c.Doctor.UserID != uuid.Nil {
		response.Doctor = &dto.ConsultationDoctorResponse{
			ID:             c.Doctor.UserID,
			FullName:       c.Doctor.User.FullName,
			Specialization: c.Doctor.Specialization,
			AverageRating:  c.Doctor.AverageRating,
			TotalRaters:    c.Doctor.TotalRaters,
		}
	}

	return response
}

// ConsultationsToResponses converts a slice of Consultation entities to slice of ConsultationResponse DTOs
func ConsultationsToResponses(consultations []entity.Consultation, withDoctorNotes bool) []dto.ConsultationResponse {
	responses := make([]dto.ConsultationResponse, len(consultations))
	for i := range consultations {
		responses[i] = *ConsultationToResponse(&consultations[i], withDoctorNotes)
	}
	return responses
}

// QueueEntriesToResponses converts queue rows with their consultations to DTOs
func QueueEntriesToResponses(entries []entity.ConsultationQueue) []dto.QueueEntryResponse {
	responses := make([]dto.QueueEntryResponse, len(entries))
	for i := range entries {
		responses[i] = dto.QueueEntryResponse{
			Position:     entries[i].Position,
			Priority:     entries[i].Priority,
			EnqueuedAt:   entries[i].EnqueuedAt,
			Consultation: *ConsultationToResponse(&entries[i].Consultation, false),
		}
	}
	return responses
}
