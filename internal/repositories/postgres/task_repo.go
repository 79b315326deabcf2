package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/utils"
	"gorm.io/gorm"
)

type TaskRepo interface {
	Insert(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, userID, id string) (*models.Task, error)
	ListByUser(ctx context.Context, userID string, status models.TaskStatus, limit int) ([]models.Task, error)
	MarkDone(ctx context.Context, userID, id string, completedAt time.Time) (int64, error)
}

type taskRepo struct {
	db *gorm.DB
}

func NewTaskRepo(db *gorm.DB) TaskRepo {
	return &taskRepo{db: db}
}

func (r *taskRepo) Insert(ctx context.Context, t *models.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *taskRepo) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	var t models.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &t, err
}

func (r *taskRepo) ListByUser(ctx context.Context, userID string, status models.TaskStatus, limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []models.Task
	err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// MarkDone flips a TODO task to DONE. Zero rows affected means the task
// does not exist, belongs to someone else, or was already done.
func (r *taskRepo) MarkDone(ctx context.Context, userID, id string, completedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("user_id = ? AND id = ? AND status = ?", userID, id, models.TaskTodo).
		Updates(map[string]any{
			"status":       models.TaskDone,
			"completed_at": completedAt,
		})
	return res.RowsAffected, res.Error
}
