package entity

import "github.com/google/uuid"

// DefaultMaxConcurrentConsultations is the cap applied when a profile does not set one
const DefaultMaxConcurrentConsultations = 3

// DoctorProfile represents doctor/pharmacist profile data and the capacity record
// used for consultation admission.
// ActiveConsultationsCount is only changed by the capacity controller.
type DoctorProfile struct {
	UserID                     uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	BranchID                   uuid.UUID `gorm:"type:uuid;not null;index" json:"branch_id"`
	STRNumber                  string    `gorm:"column:str_number;type:varchar(50);uniqueIndex;not null" json:"str_number"`
	Specialization             string    `gorm:"type:varchar(100);not null;index" json:"specialization"`
	Biography                  string    `gorm:"type:text" json:"biography,omitempty"`
	AvailableForConsultation   bool      `gorm:"not null;default:false" json:"available_for_consultation"`
	ActiveConsultationsCount   int       `gorm:"not null;default:0" json:"active_consultations_count"`
	MaxConcurrentConsultations int       `gorm:"not null;default:3" json:"max_concurrent_consultations"`
	AverageRating              float64   `gorm:"not null;default:0" json:"average_rating"`
	TotalRaters                int       `gorm:"not null;default:0" json:"total_raters"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}

// HasFreeSlot reports whether the doctor could be admitted one more consultation
func (d *DoctorProfile) HasFreeSlot() bool {
	return d.AvailableForConsultation && d.ActiveConsultationsCount < d.MaxConcurrentConsultations
}

// FreeSlots is how many more consultations the doctor can take; an unavailable doctor has none
func (d *DoctorProfile) FreeSlots() int {
	if !d.AvailableForConsultation {
		return 0
	}
	if free := d.MaxConcurrentConsultations - d.ActiveConsultationsCount; free > 0 {
		return free
	}
	return 0
}
