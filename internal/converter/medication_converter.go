package converter

import (
	"time"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
)

// MedicationScheduleToResponse converts a MedicationSchedule entity to MedicationScheduleResponse DTO
func MedicationScheduleToResponse(s *entity.MedicationSchedule, takenCount int64, today time.Time) *dto.MedicationScheduleResponse {
	if s == nil {
		return nil
	}

	return &dto.MedicationScheduleResponse{
		ID:             s.ID,
		ConsultationID: s.ConsultationID,
		UserID:         s.UserID,
		PrescribedBy:   s.PrescribedBy,
		MedicineName:   s.MedicineName,
		Dosage:         s.Dosage,
		TimesOfDay:     []string(s.TimesOfDay),
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
		Instructions:   s.Instructions,
		IsActive:       s.IsActive,
		ActiveToday:    s.IsActiveOn(today),
		TakenCount:     takenCount,
	}
}

// AdherenceLogToResponse converts an AdherenceLog entity to AdherenceLogResponse DTO
func AdherenceLogToResponse(l *entity.AdherenceLog) *dto.AdherenceLogResponse {
	if l == nil {
		return nil
	}

	return &dto.AdherenceLogResponse{
		ID:         l.ID,
		ScheduleID: l.ScheduleID,
		TakenAt:    l.TakenAt,
		Notes:      l.Notes,
	}
}
