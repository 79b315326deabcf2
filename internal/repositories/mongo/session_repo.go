package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.CoachingSession) error
	GetActive(ctx context.Context, userID string) (*models.CoachingSession, error)
	Conclude(ctx context.Context, sessionID string, at time.Time, summary string, memoriesExtracted int) error
}

type sessionRepo struct {
	col *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepository {
	return &sessionRepo{col: db.Collection("coaching_sessions")}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.CoachingSession) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

// GetActive returns the user's most recently started active session.
func (r *sessionRepo) GetActive(ctx context.Context, userID string) (*models.CoachingSession, error) {
	var s models.CoachingSession
	opts := options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})
	err := r.col.FindOne(ctx, bson.M{"user_id": userID, "status": models.SessionActive}, opts).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *sessionRepo) Conclude(ctx context.Context, sessionID string, at time.Time, summary string, memoriesExtracted int) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"status":             models.SessionConcluded,
			"concluded_at":       at.UTC(),
			"summary":            summary,
			"memories_extracted": memoriesExtracted,
		}},
	)
	return err
}
