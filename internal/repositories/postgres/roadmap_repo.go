package postgres

import (
	"context"
	"errors"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/utils"
	"gorm.io/gorm"
)

type RoadmapRepo interface {
	ActiveByUser(ctx context.Context, userID string) (*models.Roadmap, error)
	// ActiveMilestones returns the user's not-yet-completed milestones in
	// deterministic order: sort_order ASC, then created_at ASC.
	ActiveMilestones(ctx context.Context, userID string) ([]models.Milestone, error)
	SetMilestoneStatus(ctx context.Context, milestoneID string, status models.MilestoneStatus) error
	// Replace swaps the user's whole roadmap (and its generated tasks) in
	// one transaction: delete-and-recreate.
	Replace(ctx context.Context, userID string, roadmap *models.Roadmap, tasks []models.Task) error
}

type roadmapRepo struct {
	db *gorm.DB
}

func NewRoadmapRepo(db *gorm.DB) RoadmapRepo {
	return &roadmapRepo{db: db}
}

// ActiveByUser returns the oldest roadmap for the user with milestones
// preloaded in display order.
func (r *roadmapRepo) ActiveByUser(ctx context.Context, userID string) (*models.Roadmap, error) {
	var rm models.Roadmap
	err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Take(&rm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &rm, err
}

func (r *roadmapRepo) ActiveMilestones(ctx context.Context, userID string) ([]models.Milestone, error) {
	var rows []models.Milestone
	err := r.db.WithContext(ctx).
		Joins("JOIN roadmaps ON roadmaps.id = milestones.roadmap_id").
		Where("roadmaps.user_id = ? AND milestones.status <> ?", userID, models.MilestoneCompleted).
		Order("milestones.sort_order ASC, milestones.created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *roadmapRepo) SetMilestoneStatus(ctx context.Context, milestoneID string, status models.MilestoneStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("id = ?", milestoneID).
		Update("status", status).Error
}

func (r *roadmapRepo) Replace(ctx context.Context, userID string, roadmap *models.Roadmap, tasks []models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.Roadmap{}).
			Where("user_id = ?", userID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := tx.Where("roadmap_id IN ?", ids).Delete(&models.Milestone{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", ids).Delete(&models.Roadmap{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(roadmap).Error; err != nil {
			return err
		}
		if len(tasks) > 0 {
			if err := tx.Create(&tasks).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
