package handler

import (
	"net/http"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/response"
	"pharmacy-backend/pkg/validator"
)

type DoctorHandler struct {
	doctorUsecase usecase.DoctorProfileUsecase
	validator     *validator.CustomValidator
}

func NewDoctorHandler(doctorUsecase usecase.DoctorProfileUsecase, validator *validator.CustomValidator) *DoctorHandler {
	return &DoctorHandler{
		doctorUsecase: doctorUsecase,
		validator:     validator,
	}
}

// RegisterDoctor is the admin route that enrolls a doctor account into a branch
func (h *DoctorHandler) RegisterDoctor(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.RegisterDoctorRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	doctor, err := h.doctorUsecase.RegisterDoctor(r.Context(), adminID, &req)
	if err != nil {
		writeError(w, err, "Failed to register doctor")
		return
	}

	response.Success(w, http.StatusCreated, "Doctor registered successfully", doctor)
}

func (h *DoctorHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.SetAvailabilityRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	capacity, err := h.doctorUsecase.SetAvailability(r.Context(), doctorID, *req.Available)
	if err != nil {
		writeError(w, err, "Failed to update availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability updated successfully", capacity)
}

func (h *DoctorHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	capacity, err := h.doctorUsecase.GetCapacity(r.Context(), doctorID)
	if err != nil {
		writeError(w, err, "Failed to get capacity")
		return
	}

	response.Success(w, http.StatusOK, "Capacity retrieved successfully", capacity)
}

func (h *DoctorHandler) GetBranchCapacity(w http.ResponseWriter, r *http.Request) {
	branchID, ok := pathUUID(w, r, "id", "branch")
	if !ok {
		return
	}

	capacity, err := h.doctorUsecase.GetBranchCapacity(r.Context(), branchID)
	if err != nil {
		writeError(w, err, "Failed to get branch capacity")
		return
	}

	response.Success(w, http.StatusOK, "Branch capacity retrieved successfully", capacity)
}
