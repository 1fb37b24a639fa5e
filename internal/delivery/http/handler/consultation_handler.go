package handler

import (
	"net/http"
	"strings"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/response"
	"pharmacy-backend/pkg/validator"
)

type ConsultationHandler struct {
	consultationUsecase usecase.ConsultationUsecase
	validator           *validator.CustomValidator
}

func NewConsultationHandler(consultationUsecase usecase.ConsultationUsecase, validator *validator.CustomValidator) *ConsultationHandler {
	return &ConsultationHandler{
		consultationUsecase: consultationUsecase,
		validator:           validator,
	}
}

// Customer endpoints

func (h *ConsultationHandler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.CreateConsultationRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	consultation, err := h.consultationUsecase.Request(r.Context(), userID, &req)
	if err != nil {
		writeError(w, err, "Failed to create consultation")
		return
	}

	response.Success(w, http.StatusCreated, "Consultation requested successfully", consultation)
}

func (h *ConsultationHandler) GetMyConsultations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	query := dto.ConsultationListQuery{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query.Statuses = strings.Split(status, ",")
	}
	if err := h.validator.Validate(&query); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	consultations, err := h.consultationUsecase.ListMine(r.Context(), userID, &query)
	if err != nil {
		writeError(w, err, "Failed to get consultations")
		return
	}

	response.Success(w, http.StatusOK, "Consultations retrieved successfully", consultations)
}

func (h *ConsultationHandler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	consultation, err := h.consultationUsecase.GetForUser(r.Context(), consultationID, userID)
	if err != nil {
		writeError(w, err, "Failed to get consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation retrieved successfully", consultation)
}

// CancelConsultation serves both the customer and the doctor route
func (h *ConsultationHandler) CancelConsultation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	consultation, err := h.consultationUsecase.Cancel(r.Context(), consultationID, userID)
	if err != nil {
		writeError(w, err, "Failed to cancel consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation cancelled successfully", consultation)
}

func (h *ConsultationHandler) RateConsultation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	var req dto.RateConsultationRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	consultation, err := h.consultationUsecase.Rate(r.Context(), consultationID, userID, &req)
	if err != nil {
		writeError(w, err, "Failed to rate consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation rated successfully", consultation)
}

// Doctor endpoints

func (h *ConsultationHandler) GetDoctorActiveConsultations(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	consultations, err := h.consultationUsecase.ListDoctorActive(r.Context(), doctorID)
	if err != nil {
		writeError(w, err, "Failed to get consultations")
		return
	}

	response.Success(w, http.StatusOK, "Active consultations retrieved successfully", consultations)
}

func (h *ConsultationHandler) GetBranchQueue(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	queue, err := h.consultationUsecase.ListBranchQueue(r.Context(), doctorID)
	if err != nil {
		writeError(w, err, "Failed to get queue")
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", queue)
}

func (h *ConsultationHandler) GetDoctorConsultation(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	consultation, err := h.consultationUsecase.GetForDoctor(r.Context(), consultationID, doctorID)
	if err != nil {
		writeError(w, err, "Failed to get consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation retrieved successfully", consultation)
}

func (h *ConsultationHandler) AcceptConsultation(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	consultation, err := h.consultationUsecase.Accept(r.Context(), consultationID, doctorID)
	if err != nil {
		writeError(w, err, "Failed to accept consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation accepted successfully", consultation)
}

func (h *ConsultationHandler) CompleteConsultation(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	var req dto.CompleteConsultationRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	consultation, err := h.consultationUsecase.Complete(r.Context(), consultationID, doctorID, &req)
	if err != nil {
		writeError(w, err, "Failed to complete consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation completed successfully", consultation)
}
