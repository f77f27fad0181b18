package projects

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project is a carbon project credits are claimed against.
type Project struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Registry    string         `json:"registry"`
	Country     string         `json:"country"`
	Category    string         `json:"category"` // e.g. forestry, renewables, cookstoves
	StartYear   int            `json:"startYear"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"ownerId"`
	Metadata    datatypes.JSON `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProjectFilter narrows List queries.
type ProjectFilter struct {
	OwnerID  *uuid.UUID
	Category *string
	Country  *string
}
