package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	ApplyTaskReward(ctx context.Context, userID string, xpDelta, streak int, when time.Time) error
	HasProfile(ctx context.Context, userID string) (bool, error)
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *profileRepo) Upsert(ctx context.Context, p *models.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"current_role", "target_role", "experience_level", "skills", "resume_text", "notification_prefs", "updated_at"}),
		}).
		Create(p).Error
}

// ApplyTaskReward adds XP atomically and sets the streak counters in one
// update. The streak value itself is computed by the caller from the
// profile it read; the XP add stays an expression so concurrent
// completions never lose points.
func (r *profileRepo) ApplyTaskReward(ctx context.Context, userID string, xpDelta, streak int, when time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"xp":             gorm.Expr("xp + ?", xpDelta),
			"streak":         streak,
			"last_task_date": when,
			"updated_at":     when,
		}).Error
}

func (r *profileRepo) HasProfile(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}
