package handler

import (
	"net/http"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/response"
	"pharmacy-backend/pkg/validator"
)

type DeviceHandler struct {
	deviceUsecase usecase.DeviceUsecase
	validator     *validator.CustomValidator
}

func NewDeviceHandler(deviceUsecase usecase.DeviceUsecase, validator *validator.CustomValidator) *DeviceHandler {
	return &DeviceHandler{
		deviceUsecase: deviceUsecase,
		validator:     validator,
	}
}

func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.RegisterDeviceRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.deviceUsecase.Register(r.Context(), userID, &req); err != nil {
		response.InternalServerError(w, "Failed to register device")
		return
	}

	response.Success(w, http.StatusCreated, "Device registered successfully", nil)
}
