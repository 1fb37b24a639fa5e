package entity

import (
	"time"

	"github.com/google/uuid"
)

// DeviceToken is a push target registered by a mobile client
type DeviceToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"type:varchar(512);uniqueIndex;not null" json:"token"`
	Platform  string    `gorm:"type:varchar(20);not null" json:"platform"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DeviceToken) TableName() string {
	return "device_tokens"
}
