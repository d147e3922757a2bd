package models

import (
	"time"
)

// User is the local profile of an identity-provider account, refreshed each
// time the user starts an attempt.
type User struct {
	ID          string     `json:"id" gorm:"primaryKey;size:255"`
	Name        string     `json:"name" gorm:"size:100"`
	DisplayName string     `json:"display_name" gorm:"size:100"`
	Email       string     `json:"email" gorm:"size:255;index"`
	LastSeenAt  *time.Time `json:"last_seen_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// All lists every model for auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Test{},
		&TestModule{},
		&Passage{},
		&Question{},
		&TestAttempt{},
		&AttemptAnswer{},
		&ModuleResult{},
	}
}
