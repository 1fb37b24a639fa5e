package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SenderRole identifies who authored a consultation message
type SenderRole string

const (
	SenderRoleUser   SenderRole = "user"
	SenderRoleDoctor SenderRole = "doctor"
	SenderRoleSystem SenderRole = "system"
)

// MessageType is the kind of content a message carries
type MessageType string

const (
	MessageTypeText           MessageType = "text"
	MessageTypeImage          MessageType = "image"
	MessageTypeDocument       MessageType = "document"
	MessageTypeMedicationLink MessageType = "medication_link"
	MessageTypeSystem         MessageType = "system"
)

// ConsultationMessage is one chat turn. Immutable once created except for read state.
type ConsultationMessage struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ConsultationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"consultation_id"`
	SenderRole     SenderRole     `gorm:"type:varchar(10);not null" json:"sender_role"`
	SenderUserID   *uuid.UUID     `gorm:"type:uuid;index" json:"sender_user_id,omitempty"`
	SenderDoctorID *uuid.UUID     `gorm:"type:uuid;index" json:"sender_doctor_id,omitempty"`
	Type           MessageType    `gorm:"type:varchar(20);not null" json:"type"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
	IsRead         bool           `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ConsultationMessage) TableName() string {
	return "consultation_messages"
}

func (m *ConsultationMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SetSender records the author id in the column matching the role.
// System messages carry no author.
func (m *ConsultationMessage) SetSender(role SenderRole, senderID uuid.UUID) {
	m.SenderRole = role
	m.SenderUserID = nil
	m.SenderDoctorID = nil

	id := senderID
	switch role {
	case SenderRoleUser:
		m.SenderUserID = &id
	case SenderRoleDoctor:
		m.SenderDoctorID = &id
	}
}

// SenderID returns whichever author id is set, or uuid.Nil for system messages
func (m *ConsultationMessage) SenderID() uuid.UUID {
	switch {
	case m.SenderUserID != nil:
		return *m.SenderUserID
	case m.SenderDoctorID != nil:
		return *m.SenderDoctorID
	default:
		return uuid.Nil
	}
}
