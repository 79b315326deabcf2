package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/careerpilot/backend/internal/cache"
	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/providers/llm"
	pgrepo "github.com/careerpilot/backend/internal/repositories/postgres"
	"github.com/careerpilot/backend/internal/utils"
)

// The onboarding checklist, in the order the coach works through it.
const (
	fieldCurrentRole     = "current_role"
	fieldTargetRole      = "target_role"
	fieldExperienceLevel = "experience_level"
	fieldSkills          = "skills"
)

var checklistOrder = []string{fieldCurrentRole, fieldTargetRole, fieldExperienceLevel, fieldSkills}

// maxStalledTurns bounds how many consecutive turns may pass without
// checklist progress before the model is bypassed with a canned prompt.
// Progress is measured on the set of still-missing fields, not on the
// reply text, so rephrasing neither counts as progress nor as a stall
// by itself.
const maxStalledTurns = 3

const stallTTL = 30 * time.Minute

func stallCacheKey(userID string) string { return "onboarding:stall:" + userID }

var fallbackPrompts = map[string]string{
	fieldCurrentRole:     "Let's keep it simple: what is your current job title?",
	fieldTargetRole:      "What role would you like to grow into next?",
	fieldExperienceLevel: "How many years of experience do you have? (junior / mid / senior is fine)",
	fieldSkills:          "List a few skills you feel strongest in, separated by commas.",
}

const onboardingDoneReply = "Your profile is complete — ask me anything about your career growth."

const onboardSystem = `You are onboarding a new user of a career-growth coach.
Work through the missing profile fields below, one or two per turn, conversationally.
Reply with ONLY a JSON object:
{"reply": "what to say to the user", "updates": {"current_role": "...", "target_role": "...", "experience_level": "...", "skills": ["..."]}}
Include in "updates" only fields the user actually provided this turn.
Still missing: %s`

// OnboardingResult is one turn of the onboarding conversation.
type OnboardingResult struct {
	Reply         string   `json:"reply"`
	MissingFields []string `json:"missing_fields"`
	Complete      bool     `json:"complete"`
}

type OnboardingService interface {
	Message(ctx context.Context, userID, text string) (*OnboardingResult, error)
}

type onboardingService struct {
	profiles pgrepo.ProfileRepository
	provider llm.Provider
	cache    cache.Cache
	log      *logrus.Logger
}

func NewOnboardingService(profiles pgrepo.ProfileRepository, provider llm.Provider, c cache.Cache, log *logrus.Logger) OnboardingService {
	return &onboardingService{profiles: profiles, provider: provider, cache: c, log: log}
}

type onboardPayload struct {
	Reply   string `json:"reply"`
	Updates struct {
		CurrentRole     string   `json:"current_role"`
		TargetRole      string   `json:"target_role"`
		ExperienceLevel string   `json:"experience_level"`
		Skills          []string `json:"skills"`
	} `json:"updates"`
}

type stallState struct {
	Signature string `json:"signature"`
	Count     int    `json:"count"`
}

func (s *onboardingService) Message(ctx context.Context, userID, text string) (*OnboardingResult, error) {
	const op = "OnboardingService.Message"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message is empty", nil)
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeInternal, op, "failed to load profile", err)
		}
		profile = &models.Profile{UserID: userID}
	}

	missing := missingFields(profile)
	if len(missing) == 0 {
		return &OnboardingResult{Reply: onboardingDoneReply, Complete: true}, nil
	}

	system := fmt.Sprintf(onboardSystem, strings.Join(missing, ", "))
	raw, err := s.provider.Complete(ctx, system, []llm.Message{{Role: "user", Content: text}})
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "coach is unavailable right now", err)
	}

	var payload onboardPayload
	reply := strings.TrimSpace(raw)
	if uerr := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); uerr != nil {
		s.log.WithError(uerr).WithField("user_id", userID).Warn("malformed onboarding payload, no updates applied")
	} else if payload.Reply != "" {
		reply = payload.Reply
	}

	changed := false
	if v := strings.TrimSpace(payload.Updates.CurrentRole); v != "" {
		profile.CurrentRole, changed = v, true
	}
	if v := strings.TrimSpace(payload.Updates.TargetRole); v != "" {
		profile.TargetRole, changed = v, true
	}
	if v := strings.TrimSpace(payload.Updates.ExperienceLevel); v != "" {
		profile.ExperienceLevel, changed = v, true
	}
	if len(payload.Updates.Skills) > 0 {
		profile.Skills, changed = payload.Updates.Skills, true
	}
	if changed {
		profile.UpdatedAt = time.Now().UTC()
		if err := s.profiles.Upsert(ctx, profile); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to save profile", err)
		}
		_ = s.cache.Del(ctx, contextCacheKey(userID))
	}

	missing = missingFields(profile)
	if len(missing) == 0 {
		_ = s.cache.Del(ctx, stallCacheKey(userID))
		return &OnboardingResult{Reply: reply, Complete: true}, nil
	}

	reply = s.applyStallPolicy(ctx, userID, strings.Join(missing, ","), missing[0], reply)
	return &OnboardingResult{Reply: reply, MissingFields: missing}, nil
}

// applyStallPolicy counts consecutive turns with an unchanged
// missing-field signature; at the bound it swaps in the canned prompt
// for the first missing field and restarts the count.
func (s *onboardingService) applyStallPolicy(ctx context.Context, userID, signature, firstMissing, reply string) string {
	var st stallState
	hit, err := s.cache.GetJSON(ctx, stallCacheKey(userID), &st)
	if err != nil {
		return reply
	}
	if !hit || st.Signature != signature {
		st = stallState{Signature: signature, Count: 1}
		_ = s.cache.SetJSON(ctx, stallCacheKey(userID), st, stallTTL)
		return reply
	}

	st.Count++
	if st.Count >= maxStalledTurns {
		st.Count = 0
		_ = s.cache.SetJSON(ctx, stallCacheKey(userID), st, stallTTL)
		if fb, ok := fallbackPrompts[firstMissing]; ok {
			return fb
		}
		return reply
	}
	_ = s.cache.SetJSON(ctx, stallCacheKey(userID), st, stallTTL)
	return reply
}

func missingFields(p *models.Profile) []string {
	var out []string
	for _, f := range checklistOrder {
		switch f {
		case fieldCurrentRole:
			if p.CurrentRole == "" {
				out = append(out, f)
			}
		case fieldTargetRole:
			if p.TargetRole == "" {
				out = append(out, f)
			}
		case fieldExperienceLevel:
			if p.ExperienceLevel == "" {
				out = append(out, f)
			}
		case fieldSkills:
			if len(p.Skills) == 0 {
				out = append(out, f)
			}
		}
	}
	return out
}
