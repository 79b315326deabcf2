package postgres

import (
	"context"

	"github.com/careerpilot/backend/internal/models"
	"gorm.io/gorm"
)

type MemoryRepo interface {
	Insert(ctx context.Context, m *models.Memory) error
	InsertMany(ctx context.Context, ms []models.Memory) error
	LatestN(ctx context.Context, userID string, n int) ([]models.Memory, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Memory, error)
	Delete(ctx context.Context, userID, id string) (int64, error)
}

type memoryRepo struct {
	db *gorm.DB
}

func NewMemoryRepo(db *gorm.DB) MemoryRepo {
	return &memoryRepo{db: db}
}

func (r *memoryRepo) Insert(ctx context.Context, m *models.Memory) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *memoryRepo) InsertMany(ctx context.Context, ms []models.Memory) error {
	if len(ms) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ms).Error
}

func (r *memoryRepo) LatestN(ctx context.Context, userID string, n int) ([]models.Memory, error) {
	if n <= 0 {
		n = 15
	}
	var rows []models.Memory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}

func (r *memoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Memory, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Memory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Delete is owner-scoped; deleting someone else's memory affects zero rows.
func (r *memoryRepo) Delete(ctx context.Context, userID, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&models.Memory{})
	return res.RowsAffected, res.Error
}
