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
	"github.com/careerpilot/backend/internal/prompt"
	"github.com/careerpilot/backend/internal/providers/llm"
	pgrepo "github.com/careerpilot/backend/internal/repositories/postgres"
	"github.com/careerpilot/backend/internal/utils"
)

// roadmapPayload is the JSON shape expected from the model.
type roadmapPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Milestones  []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"milestones"`
	Tasks []struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		Difficulty       string `json:"difficulty"`
		EstimatedMinutes int    `json:"estimatedMinutes"`
	} `json:"tasks"`
}

// DefaultRoadmap is applied when the model's roadmap JSON fails to
// decode. The trigger is exactly that decode failure; the network call
// itself is not retried.
var DefaultRoadmap = roadmapPayload{
	Title:       "Career Growth Starter Plan",
	Description: "A general-purpose plan to build momentum while we learn more about your goals.",
	Milestones: []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}{
		{Title: "Clarify your direction", Description: "Define the role you want next and why."},
		{Title: "Close one skill gap", Description: "Pick the single most valuable missing skill and practice it weekly."},
		{Title: "Build visible proof", Description: "Ship something public that demonstrates the new skill."},
	},
	Tasks: []struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		Difficulty       string `json:"difficulty"`
		EstimatedMinutes int    `json:"estimatedMinutes"`
	}{
		{Title: "Write your target role statement", Description: "One paragraph on where you want to be in a year.", Difficulty: "Easy", EstimatedMinutes: 20},
	},
}

type RoadmapService interface {
	Get(ctx context.Context, userID string) (*models.Roadmap, error)
	// Generate asks the model for a fresh roadmap and swaps it in
	// wholesale (delete-and-recreate in one transaction).
	Generate(ctx context.Context, userID string) (*models.Roadmap, error)
}

type roadmapService struct {
	roadmaps pgrepo.RoadmapRepo
	profiles pgrepo.ProfileRepository
	provider llm.Provider
	cache    cache.Cache
	log      *logrus.Logger
}

func NewRoadmapService(
	roadmaps pgrepo.RoadmapRepo,
	profiles pgrepo.ProfileRepository,
	provider llm.Provider,
	c cache.Cache,
	log *logrus.Logger,
) RoadmapService {
	return &roadmapService{roadmaps: roadmaps, profiles: profiles, provider: provider, cache: c, log: log}
}

func (s *roadmapService) Get(ctx context.Context, userID string) (*models.Roadmap, error) {
	const op = "RoadmapService.Get"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rm, err := s.roadmaps.ActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "no roadmap yet", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load roadmap", err)
	}
	return rm, nil
}

func (s *roadmapService) Generate(ctx context.Context, userID string) (*models.Roadmap, error) {
	const op = "RoadmapService.Generate"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to load profile", err)
	}

	var b strings.Builder
	if profile == nil {
		b.WriteString("The user has not filled in a profile yet.")
	} else {
		fmt.Fprintf(&b, "Current role: %s\nTarget role: %s\nExperience: %s\n",
			profile.CurrentRole, profile.TargetRole, profile.ExperienceLevel)
		if len(profile.Skills) > 0 {
			fmt.Fprintf(&b, "Skills: %s\n", strings.Join(profile.Skills, ", "))
		}
	}

	raw, err := s.provider.Complete(ctx, prompt.RoadmapSystem, []llm.Message{
		{Role: "user", Content: b.String()},
	})
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "coach is unavailable right now", err)
	}

	payload := DefaultRoadmap
	var parsed roadmapPayload
	if uerr := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); uerr != nil || parsed.Title == "" || len(parsed.Milestones) == 0 {
		s.log.WithField("user_id", userID).Warn("malformed roadmap payload, using default roadmap")
	} else {
		payload = parsed
	}

	now := time.Now().UTC()
	rm := &models.Roadmap{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       payload.Title,
		Description: payload.Description,
		CreatedAt:   now,
	}
	for i, m := range payload.Milestones {
		rm.Milestones = append(rm.Milestones, models.Milestone{
			ID:          uuid.NewString(),
			RoadmapID:   rm.ID,
			Title:       m.Title,
			Description: m.Description,
			SortOrder:   i + 1,
			Status:      models.MilestonePending,
			CreatedAt:   now,
		})
	}

	var tasks []models.Task
	for _, t := range payload.Tasks {
		if t.Title == "" {
			continue
		}
		difficulty := models.TaskDifficulty(t.Difficulty)
		switch difficulty {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		default:
			difficulty = models.DifficultyMedium
		}
		minutes := t.EstimatedMinutes
		if minutes <= 0 {
			minutes = 30
		}
		tasks = append(tasks, models.Task{
			ID:               uuid.NewString(),
			UserID:           userID,
			Title:            t.Title,
			Description:      t.Description,
			Difficulty:       difficulty,
			EstimatedMinutes: minutes,
			Metadata:         datatypes.JSON([]byte("{}")),
			Status:           models.TaskTodo,
			CreatedAt:        now,
		})
	}

	if err := s.roadmaps.Replace(ctx, userID, rm, tasks); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store roadmap", err)
	}
	_ = s.cache.Del(ctx, contextCacheKey(userID))

	return rm, nil
}
