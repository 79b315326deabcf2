package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

type MemoryType string

const (
	MemoryBlocker     MemoryType = "BLOCKER"
	MemoryInsight     MemoryType = "INSIGHT"
	MemoryAchievement MemoryType = "ACHIEVEMENT"
	MemoryPreference  MemoryType = "PREFERENCE"
)

// ValidMemoryType reports whether s is one of the four memory kinds the
// coach is allowed to record.
func ValidMemoryType(s string) bool {
	switch MemoryType(s) {
	case MemoryBlocker, MemoryInsight, MemoryAchievement, MemoryPreference:
		return true
	}
	return false
}

// Memory is a durable fact about the user, extracted from chat and
// replayed into future prompts. Immutable after creation; deletable by
// the owner only.
type Memory struct {
	ID        string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    string     `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Type      MemoryType `gorm:"column:type;type:text" json:"type"`
	Content   string     `gorm:"column:content;type:text" json:"content"`
	Category  string     `gorm:"column:category;type:text" json:"category"`
	Relevance int        `gorm:"column:relevance;type:integer" json:"relevance"`

	// Computed from the content at persistence time; zero when the
	// embedding call failed.
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (Memory) TableName() string { return "memories" }
