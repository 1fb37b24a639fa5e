package converter

import (
	"sort"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
)

// DoctorCapacityToResponse converts a DoctorProfile capacity record to DoctorCapacityResponse DTO
func DoctorCapacityToResponse(profile *entity.DoctorProfile) *dto.DoctorCapacityResponse {
	if profile == nil {
		return nil
	}

	return &dto.DoctorCapacityResponse{
		DoctorID:                   profile.UserID,
		BranchID:                   profile.BranchID,
		AvailableForConsultation:   profile.AvailableForConsultation,
		ActiveConsultationsCount:   profile.ActiveConsultationsCount,
		MaxConcurrentConsultations: profile.MaxConcurrentConsultations,
		FreeSlots:                  profile.FreeSlots(),
		AverageRating:              profile.AverageRating,
		TotalRaters:                profile.TotalRaters,
	}
}

// BranchCapacityToResponse orders doctors by id so repeated reads compare equal
func BranchCapacityToResponse(branchID uuid.UUID, slots map[uuid.UUID]int, source string) *dto.BranchCapacityResponse {
	doctors := make([]dto.DoctorSlotsResponse, 0, len(slots))
	total := 0
	for doctorID, free := range slots {
		doctors = append(doctors, dto.DoctorSlotsResponse{DoctorID: doctorID, FreeSlots: free})
		total += free
	}
	sort.Slice(doctors, func(i, j int) bool {
		return doctors[i].DoctorID.String() < doctors[j].DoctorID.String()
	})

	return &dto.BranchCapacityResponse{
		BranchID:       branchID,
		Doctors:        doctors,
		TotalFreeSlots: total,
		Source:         source,
	}
}
