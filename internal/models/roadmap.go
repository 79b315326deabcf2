package models

import "time"

type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "PENDING"
	MilestoneInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneCompleted  MilestoneStatus = "COMPLETED"
)

// Roadmap is a user's growth plan. The "active" roadmap is the oldest one
// by created_at; in practice a user has exactly one, replaced wholesale by
// regeneration.
type Roadmap struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Title       string    `gorm:"column:title;type:text" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`

	Milestones []Milestone `gorm:"foreignKey:RoadmapID" json:"milestones,omitempty"`
}

func (Roadmap) TableName() string { return "roadmaps" }

type Milestone struct {
	ID          string          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RoadmapID   string          `gorm:"column:roadmap_id;type:uuid;index" json:"roadmap_id"`
	Title       string          `gorm:"column:title;type:text" json:"title"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	SortOrder   int             `gorm:"column:sort_order;type:integer" json:"sort_order"`
	Status      MilestoneStatus `gorm:"column:status;type:text" json:"status"`
	CreatedAt   time.Time       `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Milestone) TableName() string { return "milestones" }
