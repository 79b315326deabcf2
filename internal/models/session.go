package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SessionActive    = "active"
	SessionConcluded = "concluded"
)

// CoachingSession tracks one stretch of conversation between resets.
// Session bookkeeping lives in MongoDB; the chat transcript itself stays
// relational.
type CoachingSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`       // uuid from the JWT subject

	Status string `bson:"status" json:"status"` // active|concluded

	StartedAt   time.Time  `bson:"started_at" json:"started_at"`
	ConcludedAt *time.Time `bson:"concluded_at,omitempty" json:"concluded_at,omitempty"`

	// Written at conclusion.
	Summary           string `bson:"summary,omitempty" json:"summary,omitempty"`
	MemoriesExtracted int    `bson:"memories_extracted" json:"memories_extracted"`
}
