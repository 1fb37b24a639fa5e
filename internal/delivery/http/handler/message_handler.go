package handler

import (
	"encoding/json"
	"net/http"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/delivery/http/middleware"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/response"
	"pharmacy-backend/pkg/validator"
)

type MessageHandler struct {
	messageUsecase usecase.ConsultationMessageUsecase
	validator      *validator.CustomValidator
}

func NewMessageHandler(messageUsecase usecase.ConsultationMessageUsecase, validator *validator.CustomValidator) *MessageHandler {
	return &MessageHandler{
		messageUsecase: messageUsecase,
		validator:      validator,
	}
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	message, err := h.messageUsecase.Send(r.Context(), consultationID, userID, senderRole(r), &req)
	if err != nil {
		writeError(w, err, "Failed to send message")
		return
	}

	response.Success(w, http.StatusCreated, "Message sent successfully", message)
}

func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	messages, err := h.messageUsecase.List(r.Context(), consultationID, userID, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, err, "Failed to get messages")
		return
	}

	response.Success(w, http.StatusOK, "Messages retrieved successfully", messages)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	result, err := h.messageUsecase.MarkRead(r.Context(), consultationID, userID)
	if err != nil {
		writeError(w, err, "Failed to mark messages as read")
		return
	}

	response.Success(w, http.StatusOK, "Messages marked as read", result)
}

func (h *MessageHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	count, err := h.messageUsecase.UnreadCount(r.Context(), consultationID, userID)
	if err != nil {
		writeError(w, err, "Failed to count unread messages")
		return
	}

	response.Success(w, http.StatusOK, "Unread count retrieved successfully", map[string]int64{"unread": count})
}

func (h *MessageHandler) Typing(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return
	}

	var req dto.TypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.messageUsecase.Typing(r.Context(), consultationID, userID, senderRole(r), &req); err != nil {
		writeError(w, err, "Failed to send typing indicator")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// senderRole derives the message author role from the authenticated role
func senderRole(r *http.Request) entity.SenderRole {
	if roleID, _ := middleware.GetRoleIDFromContext(r.Context()); roleID == entity.RoleIDDoctor {
		return entity.SenderRoleDoctor
	}
	return entity.SenderRoleUser
}
