package settings

import (
	"time"

	"github.com/google/uuid"
)

// Preferences is a user's marketplace display and notification settings.
type Preferences struct {
	UserID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	DisplayName      string    `gorm:"type:varchar(120)" json:"displayName"`
	Organization     string    `gorm:"type:varchar(200)" json:"organization"`
	Currency         string    `gorm:"type:varchar(8);default:'USD'" json:"currency"`
	Timezone         string    `gorm:"type:varchar(64);default:'UTC'" json:"timezone"`
	NotifyOnPurchase bool      `gorm:"default:true" json:"notifyOnPurchase"`
	NotifyOnReview   bool      `gorm:"default:true" json:"notifyOnReview"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (Preferences) TableName() string {
	return "user_preferences"
}

func defaultPreferences(userID uuid.UUID) *Preferences {
	return &Preferences{
		UserID:           userID,
		Currency:         "USD",
		Timezone:         "UTC",
		NotifyOnPurchase: true,
		NotifyOnReview:   true,
	}
}
