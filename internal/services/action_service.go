package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/careerpilot/backend/internal/cache"
	"github.com/careerpilot/backend/internal/models"
	pgrepo "github.com/careerpilot/backend/internal/repositories/postgres"
	"github.com/careerpilot/backend/internal/tagblock"
	"github.com/careerpilot/backend/internal/utils"
)

// ActionResult is the outcome of approving a proposal. A Success=false
// result is a soft failure (no matching target, unknown type), not a
// system fault.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ActionService interface {
	Approve(ctx context.Context, userID, proposalID string) (*ActionResult, error)
}

type actionService struct {
	proposals pgrepo.ProposalRepo
	tasks     pgrepo.TaskRepo
	roadmaps  pgrepo.RoadmapRepo
	cache     cache.Cache
	log       *logrus.Logger
}

func NewActionService(
	proposals pgrepo.ProposalRepo,
	tasks pgrepo.TaskRepo,
	roadmaps pgrepo.RoadmapRepo,
	c cache.Cache,
	log *logrus.Logger,
) ActionService {
	return &actionService{proposals: proposals, tasks: tasks, roadmaps: roadmaps, cache: c, log: log}
}

// Approve validates and applies a proposed action, scoped to the caller.
// A proposal already APPLIED returns its recorded result without
// re-executing; a REJECTED one may be retried (the milestone it targets
// may exist by now).
func (s *actionService) Approve(ctx context.Context, userID, proposalID string) (*ActionResult, error) {
	const op = "ActionService.Approve"

	if userID == "" || proposalID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and proposal_id are required", nil)
	}

	p, err := s.proposals.GetByID(ctx, userID, proposalID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "proposal not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load proposal", err)
	}

	if p.Status == models.ProposalApplied {
		return &ActionResult{Success: true, Message: p.Result}, nil
	}

	payload, err := tagblock.DecodeAction(p.Payload)
	if err != nil {
		// Parse failure aborts only this approval; the proposal stays
		// PROPOSED and re-approvable.
		return nil, utils.E(utils.CodeInvalidArgument, op, "Failed to process action.", err)
	}

	switch payload.Type {
	case tagblock.ActionAddTask:
		return s.applyAddTask(ctx, userID, p, payload.Data)
	case tagblock.ActionCompleteMilestone:
		return s.applyCompleteMilestone(ctx, userID, p, payload.Data)
	default:
		res := &ActionResult{Success: false, Message: fmt.Sprintf("Unrecognized action type %q.", payload.Type)}
		s.resolve(ctx, p.ID, models.ProposalRejected, res.Message)
		return res, nil
	}
}

func (s *actionService) applyAddTask(ctx context.Context, userID string, p *models.ActionProposal, data map[string]any) (*ActionResult, error) {
	const op = "ActionService.ApplyAddTask"

	title, ok := tagblock.StringField(data, "title")
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Missing task title", nil)
	}

	difficulty := models.DifficultyMedium
	if d, ok := tagblock.StringField(data, "difficulty"); ok {
		switch models.TaskDifficulty(d) {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
			difficulty = models.TaskDifficulty(d)
		}
	}

	minutes := 30
	if n, ok := tagblock.IntField(data, "estimatedMinutes"); ok && n > 0 {
		minutes = n
	}

	meta := map[string]any{}
	if m, ok := data["metadata"].(map[string]any); ok {
		meta = m
	}

	// Description falls back through the nested metadata outcome.
	description, ok := tagblock.StringField(data, "description")
	if !ok {
		description, _ = tagblock.StringField(meta, "outcome")
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	task := &models.Task{
		ID:               uuid.NewString(),
		UserID:           userID,
		Title:            title,
		Description:      description,
		Difficulty:       difficulty,
		EstimatedMinutes: minutes,
		Metadata:         datatypes.JSON(metaJSON),
		Status:           models.TaskTodo,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.tasks.Insert(ctx, task); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create task", err)
	}

	res := &ActionResult{Success: true, Message: fmt.Sprintf("Added task %q to your plan.", title)}
	s.resolve(ctx, p.ID, models.ProposalApplied, res.Message)
	return res, nil
}

func (s *actionService) applyCompleteMilestone(ctx context.Context, userID string, p *models.ActionProposal, data map[string]any) (*ActionResult, error) {
	const op = "ActionService.ApplyCompleteMilestone"

	title, ok := tagblock.StringField(data, "title")
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Missing milestone title", nil)
	}

	// Candidates arrive in deterministic order (sort_order, created_at);
	// the first case-insensitive substring match wins.
	candidates, err := s.roadmaps.ActiveMilestones(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load milestones", err)
	}

	needle := strings.ToLower(title)
	for _, m := range candidates {
		if !strings.Contains(strings.ToLower(m.Title), needle) {
			continue
		}
		if err := s.roadmaps.SetMilestoneStatus(ctx, m.ID, models.MilestoneCompleted); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to update milestone", err)
		}
		_ = s.cache.Del(ctx, contextCacheKey(userID))

		res := &ActionResult{Success: true, Message: fmt.Sprintf("Marked milestone %q as completed.", m.Title)}
		s.resolve(ctx, p.ID, models.ProposalApplied, res.Message)
		return res, nil
	}

	res := &ActionResult{Success: false, Message: "Could not find a matching active milestone."}
	s.resolve(ctx, p.ID, models.ProposalRejected, res.Message)
	return res, nil
}

func (s *actionService) resolve(ctx context.Context, id string, status models.ProposalStatus, result string) {
	if err := s.proposals.Resolve(ctx, id, status, result, time.Now().UTC()); err != nil {
		s.log.WithError(err).WithField("proposal_id", id).Error("failed to resolve proposal")
	}
}
