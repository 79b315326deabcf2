package postgres

import (
	"context"
	"errors"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/utils"
	"gorm.io/gorm"
)

type ChatRepo interface {
	Insert(ctx context.Context, msg *models.ChatMessage) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
	// AllByUser returns the user's entire conversation, oldest first.
	AllByUser(ctx context.Context, userID string) ([]models.ChatMessage, error)
	LatestByRole(ctx context.Context, userID string, role models.ChatRole) (*models.ChatMessage, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

type chatRepo struct {
	db *gorm.DB
}

func NewChatRepo(db *gorm.DB) ChatRepo {
	return &chatRepo{db: db}
}

func (r *chatRepo) Insert(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListByUser returns the newest messages first.
func (r *chatRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *chatRepo) AllByUser(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *chatRepo) LatestByRole(ctx context.Context, userID string, role models.ChatRole) (*models.ChatMessage, error) {
	var row models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Order("created_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *chatRepo) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.ChatMessage{})
	return res.RowsAffected, res.Error
}
