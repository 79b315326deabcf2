package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"github.com/careerpilot/backend/internal/cache"
	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/prompt"
	"github.com/careerpilot/backend/internal/providers/llm"
	"github.com/careerpilot/backend/internal/ratelimit"
	mongorepo "github.com/careerpilot/backend/internal/repositories/mongo"
	pgrepo "github.com/careerpilot/backend/internal/repositories/postgres"
	"github.com/careerpilot/backend/internal/tagblock"
	"github.com/careerpilot/backend/internal/utils"
)

// SendCooldown is the per-user debounce between chat sends.
const SendCooldown = 3 * time.Second

const contextCacheTTL = 30 * time.Second

func contextCacheKey(userID string) string { return "chat:context:" + userID }

// Turn is an assembled prompt ready for the model: the durable side
// effects of assembly (user message persisted, session ensured) have
// already happened by the time a Turn exists.
type Turn struct {
	System   string
	Messages []llm.Message
}

// TurnResult is what one completed chat turn hands back to the client.
type TurnResult struct {
	MessageID  string `json:"message_id"`
	Content    string `json:"content"`
	IsAction   bool   `json:"is_action"`
	ProposalID string `json:"proposal_id,omitempty"`
}

// ConcludeResult summarizes a session conclusion.
type ConcludeResult struct {
	Success           bool   `json:"success"`
	Summary           string `json:"summary,omitempty"`
	MemoriesExtracted int    `json:"memories_extracted"`
	MessagesCleared   int64  `json:"messages_cleared"`
}

type ChatService interface {
	// Send runs one full chat turn: assemble, call the model, interpret.
	Send(ctx context.Context, userID string, history []llm.Message) (*TurnResult, error)
	// Prepare and Finalize split the turn for streaming transports.
	Prepare(ctx context.Context, userID string, history []llm.Message) (*Turn, error)
	Finalize(ctx context.Context, userID, raw string) (*TurnResult, error)

	History(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
	Reset(ctx context.Context, userID string) (int64, error)
	Conclude(ctx context.Context, userID string) (*ConcludeResult, error)
}

type chatService struct {
	chats     pgrepo.ChatRepo
	memories  pgrepo.MemoryRepo
	profiles  pgrepo.ProfileRepository
	roadmaps  pgrepo.RoadmapRepo
	proposals pgrepo.ProposalRepo
	sessions  mongorepo.SessionRepository

	provider llm.Provider
	limiter  ratelimit.Limiter
	cache    cache.Cache
	log      *logrus.Logger
}

func NewChatService(
	chats pgrepo.ChatRepo,
	memories pgrepo.MemoryRepo,
	profiles pgrepo.ProfileRepository,
	roadmaps pgrepo.RoadmapRepo,
	proposals pgrepo.ProposalRepo,
	sessions mongorepo.SessionRepository,
	provider llm.Provider,
	limiter ratelimit.Limiter,
	c cache.Cache,
	log *logrus.Logger,
) ChatService {
	return &chatService{
		chats:     chats,
		memories:  memories,
		profiles:  profiles,
		roadmaps:  roadmaps,
		proposals: proposals,
		sessions:  sessions,
		provider:  provider,
		limiter:   limiter,
		cache:     c,
		log:       log,
	}
}

func (s *chatService) Send(ctx context.Context, userID string, history []llm.Message) (*TurnResult, error) {
	const op = "ChatService.Send"

	turn, err := s.Prepare(ctx, userID, history)
	if err != nil {
		return nil, err
	}

	raw, err := s.provider.Complete(ctx, turn.System, turn.Messages)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "coach is unavailable right now", err)
	}

	return s.Finalize(ctx, userID, raw)
}

// Prepare enforces the rate limit, persists the inbound user message, and
// assembles the bounded prompt context. The user's own words are durable
// before any model call happens.
func (s *chatService) Prepare(ctx context.Context, userID string, history []llm.Message) (*Turn, error) {
	const op = "ChatService.Prepare"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if len(history) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message history is empty", nil)
	}

	// Debounce against the last persisted user message.
	last, err := s.chats.LatestByRole(ctx, userID, models.ChatRoleUser)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to read chat history", err)
	}
	if last != nil && time.Since(last.CreatedAt) < SendCooldown {
		return nil, utils.E(utils.CodeRateLimited, op, "you are sending messages too fast", nil)
	}

	// Second guard: a shared slot closes the race between two concurrent
	// sends that both passed the timestamp check.
	ok, err := s.limiter.Allow(ctx, userID, SendCooldown)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "rate limiter failure", err)
	}
	if !ok {
		return nil, utils.E(utils.CodeRateLimited, op, "you are sending messages too fast", nil)
	}

	// The new user message is durable before the model is invoked, but
	// only when the client actually submitted one as the final turn.
	if tail := history[len(history)-1]; tail.Role == string(models.ChatRoleUser) {
		msg := &models.ChatMessage{
			ID:        uuid.NewString(),
			UserID:    userID,
			Role:      models.ChatRoleUser,
			Content:   tail.Content,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.chats.Insert(ctx, msg); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to store message", err)
		}
	}

	if err := s.ensureSession(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("session bookkeeping failed")
	}

	pc, err := s.promptContext(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to assemble context", err)
	}

	if len(history) > prompt.HistoryWindow {
		history = history[len(history)-prompt.HistoryWindow:]
	}

	return &Turn{System: prompt.System(*pc), Messages: history}, nil
}

// Finalize interprets a raw model reply: extract and persist the memory
// block, persist the assistant message, and register an action proposal
// when an action block is present.
func (s *chatService) Finalize(ctx context.Context, userID, raw string) (*TurnResult, error) {
	const op = "ChatService.Finalize"

	display := strings.TrimSpace(raw)
	if display == "" {
		display = prompt.FallbackReply
	}

	// Memory extraction runs before the assistant message is persisted,
	// so stored content is always memory-stripped. A malformed block is
	// logged and left in place; it never fails the turn.
	if blk, found := tagblock.Extract(display, tagblock.TagMemory); found {
		payload, err := tagblock.DecodeMemory(blk)
		if err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("malformed memory block, leaving in place")
		} else {
			mem := &models.Memory{
				ID:        uuid.NewString(),
				UserID:    userID,
				Type:      models.MemoryType(payload.Type),
				Content:   payload.Content,
				Category:  payload.Category,
				Relevance: payload.Relevance,
				Embedding: s.embed(ctx, userID, payload.Content),
				CreatedAt: time.Now().UTC(),
			}
			if err := s.memories.Insert(ctx, mem); err != nil {
				s.log.WithError(err).WithField("user_id", userID).Error("failed to store extracted memory")
			} else {
				display = tagblock.Strip(display, blk)
				_ = s.cache.Del(ctx, contextCacheKey(userID))
			}
		}
	}

	isAction := strings.Contains(display, tagblock.Opening(tagblock.TagAction))

	msg := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      models.ChatRoleAssistant,
		Content:   display,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.chats.Insert(ctx, msg); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store reply", err)
	}

	res := &TurnResult{MessageID: msg.ID, Content: display, IsAction: isAction}

	if isAction {
		if blk, found := tagblock.Extract(display, tagblock.TagAction); found {
			p, err := s.registerProposal(ctx, userID, msg.ID, blk.Payload)
			if err != nil {
				// The proposal can still be re-derived from the stored
				// message, so a bookkeeping failure only loses the id.
				s.log.WithError(err).WithField("user_id", userID).Error("failed to register action proposal")
			} else {
				res.ProposalID = p.ID
			}
		}
	}

	return res, nil
}

// embed asks the provider for a vector over content. A memory is worth
// keeping even when the embedding call fails, so failures only log and
// the zero vector is stored.
func (s *chatService) embed(ctx context.Context, userID, content string) pgvector.Vector {
	vec, err := s.provider.Embed(ctx, content)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("memory embedding failed, storing without vector")
		return pgvector.Vector{}
	}
	return pgvector.NewVector(vec)
}

// registerProposal persists a PROPOSED action. The fingerprint makes
// re-interpreting the same message content a no-op.
func (s *chatService) registerProposal(ctx context.Context, userID, messageID, payload string) (*models.ActionProposal, error) {
	sum := sha256.Sum256([]byte(messageID + "\x00" + payload))
	p := &models.ActionProposal{
		ID:          uuid.NewString(),
		UserID:      userID,
		MessageID:   messageID,
		Payload:     payload,
		Fingerprint: hex.EncodeToString(sum[:]),
		Status:      models.ProposalProposed,
		CreatedAt:   time.Now().UTC(),
	}
	return s.proposals.Upsert(ctx, p)
}

func (s *chatService) ensureSession(ctx context.Context, userID string) error {
	_, err := s.sessions.GetActive(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return err
	}
	return s.sessions.Create(ctx, &models.CoachingSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Status:    models.SessionActive,
		StartedAt: time.Now().UTC(),
	})
}

// promptContext fetches profile, active roadmap, and recent memories,
// with a short-lived cache in front.
func (s *chatService) promptContext(ctx context.Context, userID string) (*prompt.Context, error) {
	var cached prompt.Context
	if hit, err := s.cache.GetJSON(ctx, contextCacheKey(userID), &cached); err == nil && hit {
		return &cached, nil
	}

	pc := prompt.Context{}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, err
	}
	pc.Profile = profile

	roadmap, err := s.roadmaps.ActiveByUser(ctx, userID)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, err
	}
	pc.Roadmap = roadmap

	mems, err := s.memories.LatestN(ctx, userID, prompt.MemoryWindow)
	if err != nil {
		return nil, err
	}
	pc.Memories = mems

	_ = s.cache.SetJSON(ctx, contextCacheKey(userID), pc, contextCacheTTL)
	return &pc, nil
}

func (s *chatService) History(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	const op = "ChatService.History"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.chats.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}
	return rows, nil
}

func (s *chatService) Reset(ctx context.Context, userID string) (int64, error) {
	const op = "ChatService.Reset"

	if userID == "" {
		return 0, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	n, err := s.chats.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "failed to reset conversation", err)
	}
	_ = s.cache.Del(ctx, contextCacheKey(userID))
	return n, nil
}

// concludePayload is the shape the model is asked to return at session
// conclusion.
type concludePayload struct {
	Summary  string `json:"summary"`
	Memories []struct {
		Type      string `json:"type"`
		Content   string `json:"content"`
		Category  string `json:"category"`
		Relevance int    `json:"relevance"`
	} `json:"memories"`
}

// Conclude distills the stored conversation into bulk memories, clears
// the history, and closes the active coaching session. A malformed model
// reply yields zero memories but the history is still cleared.
func (s *chatService) Conclude(ctx context.Context, userID string) (*ConcludeResult, error) {
	const op = "ChatService.Conclude"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	rows, err := s.chats.AllByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	if len(rows) == 0 {
		return &ConcludeResult{Success: false}, nil
	}

	// One model call over the whole stored history, oldest first.
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(string(row.Role))
		b.WriteString(": ")
		b.WriteString(row.Content)
		b.WriteString("\n")
	}

	result := &ConcludeResult{}

	raw, err := s.provider.Complete(ctx, prompt.ConcludeSystem, []llm.Message{
		{Role: "user", Content: b.String()},
	})
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "coach is unavailable right now", err)
	}

	var payload concludePayload
	if uerr := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); uerr != nil {
		s.log.WithError(uerr).WithField("user_id", userID).Warn("malformed conclusion payload, extracting nothing")
	} else {
		now := time.Now().UTC()
		var mems []models.Memory
		for _, m := range payload.Memories {
			if m.Content == "" || !models.ValidMemoryType(strings.ToUpper(m.Type)) {
				continue
			}
			rel := m.Relevance
			if rel <= 0 {
				rel = 5
			}
			mems = append(mems, models.Memory{
				ID:        uuid.NewString(),
				UserID:    userID,
				Type:      models.MemoryType(strings.ToUpper(m.Type)),
				Content:   m.Content,
				Category:  m.Category,
				Relevance: rel,
				Embedding: s.embed(ctx, userID, m.Content),
				CreatedAt: now,
			})
		}
		if err := s.memories.InsertMany(ctx, mems); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to store memories", err)
		}
		result.Success = true
		result.Summary = payload.Summary
		result.MemoriesExtracted = len(mems)
	}

	cleared, err := s.chats.DeleteAllByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to clear conversation", err)
	}
	result.MessagesCleared = cleared
	_ = s.cache.Del(ctx, contextCacheKey(userID))

	if sess, serr := s.sessions.GetActive(ctx, userID); serr == nil {
		if cerr := s.sessions.Conclude(ctx, sess.SessionID, time.Now().UTC(), result.Summary, result.MemoriesExtracted); cerr != nil {
			s.log.WithError(cerr).WithField("user_id", userID).Warn("failed to conclude session record")
		}
	}

	return result, nil
}

// extractJSONObject tolerates a model that wraps its JSON in a code fence
// or chatter: it returns the first top-level {...} span, or the input
// unchanged when none exists.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
