package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type ItemRequest struct {
	Name                 string          `json:"name" validate:"required,min=2,max=255"`
	Description          string          `json:"description" validate:"omitempty,max=2000"`
	Price                decimal.Decimal `json:"price" validate:"gte=0"`
	Stock                int             `json:"stock" validate:"gte=0"`
	RequiresPrescription bool            `json:"requires_prescription"`
}

// Response DTOs

type ItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	Price                decimal.Decimal `json:"price"`
	Stock                int             `json:"stock"`
	RequiresPrescription bool            `json:"requires_prescription"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
