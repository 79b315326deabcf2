package models

import (
	"time"

	"gorm.io/datatypes"
)

type TaskStatus string

const (
	TaskTodo TaskStatus = "TODO"
	TaskDone TaskStatus = "DONE"
)

type TaskDifficulty string

const (
	DifficultyEasy   TaskDifficulty = "Easy"
	DifficultyMedium TaskDifficulty = "Medium"
	DifficultyHard   TaskDifficulty = "Hard"
)

// XPAward returns the XP granted for completing a task of difficulty d.
func (d TaskDifficulty) XPAward() int {
	switch d {
	case DifficultyEasy:
		return 10
	case DifficultyHard:
		return 50
	default:
		return 25
	}
}

// Task is a unit of coached work. Created either by an approved ADD_TASK
// proposal or by roadmap generation.
type Task struct {
	ID               string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Title            string         `gorm:"column:title;type:text" json:"title"`
	Description      string         `gorm:"column:description;type:text" json:"description"`
	Difficulty       TaskDifficulty `gorm:"column:difficulty;type:text" json:"difficulty"`
	EstimatedMinutes int            `gorm:"column:estimated_minutes;type:integer" json:"estimated_minutes"`

	// {instructions, resources, outcome}
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`

	Status      TaskStatus `gorm:"column:status;type:text;index" json:"status"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamptz" json:"completed_at,omitempty"`
}

func (Task) TableName() string { return "tasks" }
