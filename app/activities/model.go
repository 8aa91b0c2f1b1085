package activities

import (
	"time"

	"gorm.io/gorm"
)

// Activity is an audit log entry for module lifecycle events
type Activity struct {
	Id        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Module the event is about (e.g. "core.routes")
	Module string `json:"module" gorm:"index"`

	// Action performed (e.g. "loaded", "invoked")
	Action string `json:"action" gorm:"index"`

	Description string `json:"description"`
}

// TableName returns the table name for the Activity model
func (m *Activity) TableName() string {
	return "activities"
}
