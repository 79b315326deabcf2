package services

import (
	"context"
	"errors"
	"time"

	"github.com/careerpilot/backend/internal/models"
	pgrepo "github.com/careerpilot/backend/internal/repositories/postgres"
	"github.com/careerpilot/backend/internal/utils"
)

// CompletionResult reports the gamification outcome of finishing a task.
type CompletionResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	XPAwarded int    `json:"xp_awarded"`
	Streak    int    `json:"streak"`
}

type TaskService interface {
	List(ctx context.Context, userID string, status models.TaskStatus, limit int) ([]models.Task, error)
	Complete(ctx context.Context, userID, taskID string) (*CompletionResult, error)
}

type taskService struct {
	tasks    pgrepo.TaskRepo
	profiles pgrepo.ProfileRepository
}

func NewTaskService(tasks pgrepo.TaskRepo, profiles pgrepo.ProfileRepository) TaskService {
	return &taskService{tasks: tasks, profiles: profiles}
}

func (s *taskService) List(ctx context.Context, userID string, status models.TaskStatus, limit int) ([]models.Task, error) {
	const op = "TaskService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.tasks.ListByUser(ctx, userID, status, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list tasks", err)
	}
	return rows, nil
}

// Complete flips a TODO task to DONE, awards XP by difficulty, and keeps
// the daily streak: +1 when the previous completion was yesterday,
// unchanged when already today, reset to 1 otherwise.
func (s *taskService) Complete(ctx context.Context, userID, taskID string) (*CompletionResult, error) {
	const op = "TaskService.Complete"

	if userID == "" || taskID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and task_id are required", nil)
	}

	task, err := s.tasks.GetByID(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "task not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load task", err)
	}

	now := time.Now().UTC()
	n, err := s.tasks.MarkDone(ctx, userID, taskID, now)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to complete task", err)
	}
	if n == 0 {
		return &CompletionResult{Success: false, Message: "Task is already completed."}, nil
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to load profile", err)
	}

	streak := 1
	if profile != nil && profile.LastTaskDate != nil {
		switch daysBetween(*profile.LastTaskDate, now) {
		case 0:
			streak = profile.Streak
		case 1:
			streak = profile.Streak + 1
		}
	}

	xp := task.Difficulty.XPAward()
	if profile != nil {
		if err := s.profiles.ApplyTaskReward(ctx, userID, xp, streak, now); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to record reward", err)
		}
	}

	return &CompletionResult{
		Success:   true,
		Message:   "Task completed.",
		XPAwarded: xp,
		Streak:    streak,
	}, nil
}

// daysBetween counts whole UTC calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
