package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// AuditLogQuery is read from the query string of the admin audit trail
type AuditLogQuery struct {
	Action string `json:"action" validate:"omitempty,max=100"`
	UserID string `json:"user_id" validate:"omitempty,uuid"`
	Since  string `json:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Until  string `json:"until" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Page   int    `json:"page" validate:"omitempty,min=1"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=200"`
}

// Response DTOs

type AuditLogResponse struct {
	ID        int64                  `json:"id"`
	UserID    *uuid.UUID             `json:"user_id,omitempty"`
	Action    string                 `json:"action"`
	Entity    string                 `json:"entity,omitempty"`
	EntityID  string                 `json:"entity_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}
