package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a catalogue entry a customer can ask a pharmacist about
type Item struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name                 string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Description          string          `gorm:"type:text" json:"description,omitempty"`
	Price                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock                int             `gorm:"not null;default:0" json:"stock"`
	RequiresPrescription bool            `gorm:"not null;default:false" json:"requires_prescription"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Item) TableName() string {
	return "items"
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
