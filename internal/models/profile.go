package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Profile is the one-to-one career profile for a user. XP and streak are
// mutated by task completion; the rest is written by onboarding and the
// profile update endpoint.
type Profile struct {
	UserID          string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	CurrentRole     string `gorm:"column:current_role;type:text" json:"current_role"`
	TargetRole      string `gorm:"column:target_role;type:text" json:"target_role"`
	ExperienceLevel string `gorm:"column:experience_level;type:text" json:"experience_level"`

	Skills pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`

	XP           int        `gorm:"column:xp;type:integer" json:"xp"`
	Streak       int        `gorm:"column:streak;type:integer" json:"streak"`
	LastTaskDate *time.Time `gorm:"column:last_task_date;type:timestamptz" json:"last_task_date,omitempty"`

	ResumeText string `gorm:"column:resume_text;type:text" json:"resume_text,omitempty"`

	NotificationPrefs datatypes.JSON `gorm:"column:notification_prefs;type:jsonb" json:"notification_prefs"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
