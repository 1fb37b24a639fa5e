package entity

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationQueue marks a requested consultation waiting for a doctor in a branch.
// Position is a display rank only; acceptance never consults it.
type ConsultationQueue struct {
	ConsultationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"consultation_id"`
	BranchID       uuid.UUID `gorm:"type:uuid;not null;index" json:"branch_id"`
	Position       int       `gorm:"not null;default:0" json:"position"`
	Priority       int       `gorm:"not null;default:0" json:"priority"`
	EnqueuedAt     time.Time `gorm:"not null;index" json:"enqueued_at"`

	// Relationships
	Consultation Consultation `gorm:"foreignKey:ConsultationID" json:"consultation,omitempty"`
}

func (ConsultationQueue) TableName() string {
	return "consultation_queue"
}
