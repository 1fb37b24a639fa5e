package converter

import (
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
)

// AuditLogToResponse lifts the entity reference out of the metadata
func AuditLogToResponse(log *entity.AuditLog) *dto.AuditLogResponse {
	if log == nil {
		return nil
	}

	resp := &dto.AuditLogResponse{
		ID:        log.ID,
		UserID:    log.UserID,
		Action:    log.Action,
		Metadata:  log.Metadata,
		CreatedAt: log.CreatedAt,
	}
	if name, ok := log.Metadata["entity"].(string); ok {
		resp.Entity = name
	}
	if id, ok := log.Metadata["entity_id"].(string); ok {
		resp.EntityID = id
	}
	return resp
}

func AuditLogsToResponses(logs []entity.AuditLog) []dto.AuditLogResponse {
	responses := make([]dto.AuditLogResponse, len(logs))
	for i := range logs {
		responses[i] = *AuditLogToResponse(&logs[i])
	}
	return responses
}
