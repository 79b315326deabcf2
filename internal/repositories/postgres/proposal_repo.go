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

type ProposalRepo interface {
	// Upsert inserts the proposal unless one with the same fingerprint
	// already exists, in which case the existing row is returned.
	Upsert(ctx context.Context, p *models.ActionProposal) (*models.ActionProposal, error)
	GetByID(ctx context.Context, userID, id string) (*models.ActionProposal, error)
	Resolve(ctx context.Context, id string, status models.ProposalStatus, result string, at time.Time) error
}

type proposalRepo struct {
	db *gorm.DB
}

func NewProposalRepo(db *gorm.DB) ProposalRepo {
	return &proposalRepo{db: db}
}

func (r *proposalRepo) Upsert(ctx context.Context, p *models.ActionProposal) (*models.ActionProposal, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			DoNothing: true,
		}).
		Create(p).Error
	if err != nil {
		return nil, err
	}

	// DoNothing leaves p.ID untouched on conflict; read back by
	// fingerprint so the caller always sees the persisted row.
	var row models.ActionProposal
	if err := r.db.WithContext(ctx).
		Where("fingerprint = ?", p.Fingerprint).
		Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *proposalRepo) GetByID(ctx context.Context, userID, id string) (*models.ActionProposal, error) {
	var row models.ActionProposal
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *proposalRepo) Resolve(ctx context.Context, id string, status models.ProposalStatus, result string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ActionProposal{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"result":      result,
			"resolved_at": at,
		}).Error
}
