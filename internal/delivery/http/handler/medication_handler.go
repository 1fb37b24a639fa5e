package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/response"
	"pharmacy-backend/pkg/validator"
)

type MedicationHandler struct {
	scheduleUsecase usecase.MedicationScheduleUsecase
	validator       *validator.CustomValidator
}

func NewMedicationHandler(scheduleUsecase usecase.MedicationScheduleUsecase, validator *validator.CustomValidator) *MedicationHandler {
	return &MedicationHandler{
		scheduleUsecase: scheduleUsecase,
		validator:       validator,
	}
}

func (h *MedicationHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	var req dto.CreateMedicationScheduleRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	schedule, err := h.scheduleUsecase.Create(r.Context(), consultationID, doctorID, &req)
	if err != nil {
		writeError(w, err, "Failed to create medication schedule")
		return
	}

	response.Success(w, http.StatusCreated, "Medication schedule created successfully", schedule)
}

func (h *MedicationHandler) GetMySchedules(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	schedules, err := h.scheduleUsecase.ListMine(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to get medication schedules")
		return
	}

	response.Success(w, http.StatusOK, "Medication schedules retrieved successfully", schedules)
}

// MarkTaken accepts an empty body, meaning "taken now"
func (h *MedicationHandler) MarkTaken(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	scheduleID, ok := pathUUID(w, r, "id", "schedule")
	if !ok {
		return
	}

	var req dto.MarkTakenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	entry, err := h.scheduleUsecase.MarkTaken(r.Context(), scheduleID, userID, &req)
	if err != nil {
		writeError(w, err, "Failed to record dose")
		return
	}

	response.Success(w, http.StatusCreated, "Dose recorded successfully", entry)
}
