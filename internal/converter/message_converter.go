package converter

import (
	"encoding/json"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"

	"github.com/google/uuid"
)

// MessageToResponse converts a ConsultationMessage entity to MessageResponse DTO
func MessageToResponse(m *entity.ConsultationMessage) *dto.MessageResponse {
	if m == nil {
		return nil
	}

	response := &dto.MessageResponse{
		ID:             m.ID,
		ConsultationID: m.ConsultationID,
		SenderRole:     string(m.SenderRole),
		Type:           string(m.Type),
		Content:        m.Content,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
	if id := m.SenderID(); id != uuid.Nil {
		response.SenderID = &id
	}
	if len(m.Metadata) > 0 {
		response.Metadata = json.RawMessage(m.Metadata)
	}

	return response
}

// MessagesToResponses converts a slice of ConsultationMessage entities to slice of MessageResponse DTOs
func MessagesToResponses(messages []entity.ConsultationMessage) []dto.MessageResponse {
	responses := make([]dto.MessageResponse, len(messages))
	for i := range messages {
		responses[i] = *MessageToResponse(&messages[i])
	}
	return responses
}
