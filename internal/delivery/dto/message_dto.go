package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type SendMessageRequest struct {
	Type     string          `json:"type" validate:"omitempty,oneof=text image document medication_link"`
	Content  string          `json:"content" validate:"required,notblank,max=5000"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// Response DTOs

type MessageResponse struct {
	ID             uuid.UUID       `json:"id"`
	ConsultationID uuid.UUID       `json:"consultation_id"`
	SenderRole     string          `json:"sender_role"`
	SenderID       *uuid.UUID      `json:"sender_id,omitempty"`
	Type           string          `json:"type"`
	Content        string          `json:"content"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	IsRead         bool            `json:"is_read"`
	ReadAt         *time.Time      `json:"read_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int               `json:"total"`
	Unread   int64             `json:"unread"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}
