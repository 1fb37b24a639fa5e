package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"pharmacy-backend/internal/delivery/http/middleware"
	"pharmacy-backend/internal/service"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/response"
	"pharmacy-backend/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// writeError maps the consultation error taxonomy onto HTTP statuses
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrConsultationNotFound):
		response.NotFound(w, "Consultation not found")
	case errors.Is(err, usecase.ErrScheduleNotFound):
		response.NotFound(w, "Medication schedule not found")
	case errors.Is(err, usecase.ErrDoctorNotFound), errors.Is(err, service.ErrDoctorNotFound):
		response.NotFound(w, "Doctor not found")
	case errors.Is(err, usecase.ErrDoctorUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, usecase.ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, usecase.ErrRoleNotFound):
		response.BadRequest(w, "Role not found")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid email or password")
	case errors.Is(err, usecase.ErrAccountDisabled):
		response.Forbidden(w, "Account is disabled")
	case errors.Is(err, usecase.ErrEmailAlreadyExists):
		response.Conflict(w, "Email already exists")
	case errors.Is(err, usecase.ErrItemNotFound):
		response.NotFound(w, "Item not found")
	case errors.Is(err, usecase.ErrAuditLogNotFound):
		response.NotFound(w, "Audit log not found")
	case errors.Is(err, usecase.ErrNotParticipant):
		response.Forbidden(w, "You are not a participant of this consultation")
	case errors.Is(err, service.ErrCapacityExceeded):
		response.Conflict(w, err.Error())
	case errors.Is(err, usecase.ErrInvalidState):
		response.Conflict(w, "Consultation is no longer available for this operation")
	case errors.Is(err, usecase.ErrAlreadyRated):
		response.Conflict(w, "Consultation has already been rated")
	case errors.Is(err, usecase.ErrVersionConflict):
		response.Conflict(w, "Consultation was modified concurrently, please retry")
	case errors.Is(err, usecase.ErrDoctorProfileExists):
		response.Conflict(w, "Doctor profile already exists")
	case errors.Is(err, usecase.ErrDoctorSTRExists):
		response.Conflict(w, "STR number already exists")
	case errors.Is(err, usecase.ErrScheduleInactive):
		response.Conflict(w, "Medication schedule is not active on that day")
	case errors.Is(err, service.ErrInvalidRating):
		response.BadRequest(w, "Rating must be between 1 and 5")
	case errors.Is(err, usecase.ErrInvalidMessageType):
		response.BadRequest(w, "Message type is not allowed for this sender")
	case errors.Is(err, usecase.ErrInvalidDateRange):
		response.BadRequest(w, "End date must not be before start date")
	case errors.Is(err, usecase.ErrInvalidTimeRange):
		response.BadRequest(w, "Since must be before until")
	case errors.Is(err, usecase.ErrInvalidPrice):
		response.BadRequest(w, "Price must not be negative")
	case errors.Is(err, usecase.ErrDoctorUserNotDoctor):
		response.BadRequest(w, "User does not have the doctor role")
	default:
		response.InternalServerError(w, fallback)
	}
}

// decodeAndValidate reads a JSON body into req and validates it.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.CustomValidator, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	if err := v.Validate(req); err != nil {
		response.ValidationError(w, v.FormatValidationErrors(err))
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid "+label+" ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func currentUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "User not found in context")
		return uuid.Nil, false
	}
	return userID, true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
