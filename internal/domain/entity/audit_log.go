package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog represents a system audit trail entry
type AuditLog struct {
	ID        int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uuid.UUID        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action    string            `gorm:"type:varchar(100);not null;index" json:"action"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Common audit actions
const (
	AuditActionConsultationRequest  = "consultation.request"
	AuditActionConsultationAccept   = "consultation.accept"
	AuditActionConsultationStart    = "consultation.start"
	AuditActionConsultationComplete = "consultation.complete"
	AuditActionConsultationCancel   = "consultation.cancel"
	AuditActionConsultationExpire   = "consultation.expire"
	AuditActionConsultationRate     = "consultation.rate"
	AuditActionDoctorAvailability   = "doctor.availability"
	AuditActionDoctorRegister       = "doctor.register"
	AuditActionMedicationSchedule   = "medication_schedule.create"
	AuditActionUserCreate           = "user.create"
)

// AuditLogFilter narrows an audit trail query. Zero fields match everything.
type AuditLogFilter struct {
	Action string
	UserID *uuid.UUID
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}
