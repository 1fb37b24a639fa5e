package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConsultationStatus is a state of the consultation lifecycle.
//
//	requested -> assigned -> in_progress -> completed
//	requested | assigned | in_progress -> cancelled
//	requested -> expired
type ConsultationStatus string

const (
	ConsultationStatusRequested  ConsultationStatus = "requested"
	ConsultationStatusAssigned   ConsultationStatus = "assigned"
	ConsultationStatusInProgress ConsultationStatus = "in_progress"
	ConsultationStatusCompleted  ConsultationStatus = "completed"
	ConsultationStatusCancelled  ConsultationStatus = "cancelled"
	ConsultationStatusExpired    ConsultationStatus = "expired"
)

// ConsultationType is the topic a user asks about.
type ConsultationType string

const (
	ConsultationTypeGeneral            ConsultationType = "general"
	ConsultationTypeMedicationInquiry  ConsultationType = "medication_inquiry"
	ConsultationTypePrescriptionReview ConsultationType = "prescription_review"
	ConsultationTypeSideEffect         ConsultationType = "side_effect"
	ConsultationTypeUrgent             ConsultationType = "urgent"
)

var consultationTransitions = map[ConsultationStatus][]ConsultationStatus{
	ConsultationStatusRequested:  {ConsultationStatusAssigned, ConsultationStatusCancelled, ConsultationStatusExpired},
	ConsultationStatusAssigned:   {ConsultationStatusInProgress, ConsultationStatusCompleted, ConsultationStatusCancelled},
	ConsultationStatusInProgress: {ConsultationStatusCompleted, ConsultationStatusCancelled},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func (s ConsultationStatus) CanTransition(to ConsultationStatus) bool {
	for _, next := range consultationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s ConsultationStatus) IsTerminal() bool {
	return s == ConsultationStatusCompleted || s == ConsultationStatusCancelled || s == ConsultationStatusExpired
}

// HoldsDoctor reports whether a consultation in this status must carry a doctor.
func (s ConsultationStatus) HoldsDoctor() bool {
	return s == ConsultationStatusAssigned || s == ConsultationStatusInProgress || s == ConsultationStatusCompleted
}

// TerminalConsultationStatuses lists the statuses that retire a consultation.
func TerminalConsultationStatuses() []ConsultationStatus {
	return []ConsultationStatus{ConsultationStatusCompleted, ConsultationStatusCancelled, ConsultationStatusExpired}
}

// ActiveConsultationStatuses lists the statuses in which a doctor is holding a slot.
func ActiveConsultationStatuses() []ConsultationStatus {
	return []ConsultationStatus{ConsultationStatusAssigned, ConsultationStatusInProgress}
}

// Priority returns the queue priority for a consultation type. Higher dequeues first.
func (t ConsultationType) Priority() int {
	switch t {
	case ConsultationTypeUrgent:
		return 10
	case ConsultationTypeSideEffect:
		return 5
	default:
		return 0
	}
}

// Consultation represents one live or historical advisory session
type Consultation struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	ConsultationNo     string             `gorm:"type:varchar(40);uniqueIndex;not null" json:"consultation_no"`
	Type               ConsultationType   `gorm:"type:varchar(40);not null" json:"type"`
	Status             ConsultationStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Priority           int                `gorm:"not null;default:0" json:"priority"`
	UserID             uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	DoctorID           *uuid.UUID         `gorm:"type:uuid;index" json:"doctor_id,omitempty"`
	BranchID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"branch_id"`
	ItemID             *uuid.UUID         `gorm:"type:uuid" json:"item_id,omitempty"`
	UserInitialMessage string             `gorm:"type:text" json:"user_initial_message,omitempty"`
	DoctorNotes        string             `gorm:"type:text" json:"-"`
	DoctorSummary      string             `gorm:"type:text" json:"doctor_summary,omitempty"`
	MessageCount       int                `gorm:"not null;default:0" json:"message_count"`
	Rating             *int               `json:"rating,omitempty"`
	RatingNotes        string             `gorm:"type:text" json:"rating_notes,omitempty"`
	AssignedAt         *time.Time         `json:"assigned_at,omitempty"`
	StartedAt          *time.Time         `json:"started_at,omitempty"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CancelledBy        string             `gorm:"type:varchar(20)" json:"cancelled_by,omitempty"`
	ExpiresAt          time.Time          `gorm:"not null;index" json:"expires_at"`
	Version            int                `gorm:"not null;default:1" json:"version"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor *DoctorProfile `gorm:"foreignKey:DoctorID;references:UserID" json:"doctor,omitempty"`
}

func (Consultation) TableName() string {
	return "consultations"
}

func (c *Consultation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsParticipant reports whether id is the requesting user or the assigned doctor.
func (c *Consultation) IsParticipant(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	if c.UserID == id {
		return true
	}
	return c.DoctorID != nil && *c.DoctorID == id
}

// IsExpiredAt reports whether a requested consultation has passed its deadline.
func (c *Consultation) IsExpiredAt(now time.Time) bool {
	return c.Status == ConsultationStatusRequested && c.ExpiresAt.Before(now)
}

// IsTerminal checks if the consultation is retired
func (c *Consultation) IsTerminal() bool {
	return c.Status.IsTerminal()
}
