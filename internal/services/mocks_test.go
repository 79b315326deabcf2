package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/providers/llm"
	"github.com/careerpilot/backend/internal/utils"
)

// --- fakeChatRepo ---

type fakeChatRepo struct {
	mu   sync.Mutex
	rows []models.ChatMessage
}

func (f *fakeChatRepo) Insert(_ context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *msg)
	return nil
}

func (f *fakeChatRepo) ListByUser(_ context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if f.rows[i].UserID == userID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeChatRepo) AllByUser(_ context.Context, userID string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) LatestByRole(_ context.Context, userID string, role models.ChatRole) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID == userID && f.rows[i].Role == role {
			row := f.rows[i]
			return &row, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeChatRepo) DeleteAllByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.ChatMessage
	var n int64
	for _, r := range f.rows {
		if r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

// --- fakeMemoryRepo ---

type fakeMemoryRepo struct {
	mu   sync.Mutex
	rows []models.Memory
}

func (f *fakeMemoryRepo) Insert(_ context.Context, m *models.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMemoryRepo) InsertMany(_ context.Context, ms []models.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, ms...)
	return nil
}

func (f *fakeMemoryRepo) LatestN(_ context.Context, userID string, n int) ([]models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Memory
	for i := len(f.rows) - 1; i >= 0 && len(out) < n; i-- {
		if f.rows[i].UserID == userID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeMemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Memory, error) {
	return f.LatestN(ctx, userID, limit)
}

func (f *fakeMemoryRepo) Delete(_ context.Context, userID, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.UserID == userID && r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// --- fakeProfileRepo ---

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]*models.Profile{}}
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileRepo) Upsert(_ context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.profiles[p.UserID] = &cp
	return nil
}

func (f *fakeProfileRepo) ApplyTaskReward(_ context.Context, userID string, xpDelta, streak int, when time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return utils.ErrNotFound
	}
	p.XP += xpDelta
	p.Streak = streak
	w := when
	p.LastTaskDate = &w
	return nil
}

func (f *fakeProfileRepo) HasProfile(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.profiles[userID]
	return ok, nil
}

// --- fakeRoadmapRepo ---

type fakeRoadmapRepo struct {
	mu       sync.Mutex
	roadmap  *models.Roadmap
	statuses map[string]models.MilestoneStatus
}

func newFakeRoadmapRepo() *fakeRoadmapRepo {
	return &fakeRoadmapRepo{statuses: map[string]models.MilestoneStatus{}}
}

func (f *fakeRoadmapRepo) ActiveByUser(_ context.Context, userID string) (*models.Roadmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roadmap == nil || f.roadmap.UserID != userID {
		return nil, utils.ErrNotFound
	}
	cp := *f.roadmap
	return &cp, nil
}

func (f *fakeRoadmapRepo) ActiveMilestones(_ context.Context, userID string) ([]models.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roadmap == nil || f.roadmap.UserID != userID {
		return nil, nil
	}
	var out []models.Milestone
	for _, m := range f.roadmap.Milestones {
		status := m.Status
		if s, ok := f.statuses[m.ID]; ok {
			status = s
		}
		if status == models.MilestoneCompleted {
			continue
		}
		m.Status = status
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeRoadmapRepo) SetMilestoneStatus(_ context.Context, milestoneID string, status models.MilestoneStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[milestoneID] = status
	return nil
}

func (f *fakeRoadmapRepo) Replace(_ context.Context, userID string, roadmap *models.Roadmap, tasks []models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *roadmap
	f.roadmap = &cp
	f.statuses = map[string]models.MilestoneStatus{}
	return nil
}

// --- fakeProposalRepo ---

type fakeProposalRepo struct {
	mu   sync.Mutex
	rows map[string]*models.ActionProposal // by id
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{rows: map[string]*models.ActionProposal{}}
}

func (f *fakeProposalRepo) Upsert(_ context.Context, p *models.ActionProposal) (*models.ActionProposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Fingerprint == p.Fingerprint {
			cp := *r
			return &cp, nil
		}
	}
	cp := *p
	f.rows[p.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeProposalRepo) GetByID(_ context.Context, userID, id string) (*models.ActionProposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.UserID != userID {
		return nil, utils.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeProposalRepo) Resolve(_ context.Context, id string, status models.ProposalStatus, result string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	r.Status = status
	r.Result = result
	t := at
	r.ResolvedAt = &t
	return nil
}

// --- fakeTaskRepo ---

type fakeTaskRepo struct {
	mu   sync.Mutex
	rows []models.Task
}

func (f *fakeTaskRepo) Insert(_ context.Context, t *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *t)
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, userID, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == userID && r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeTaskRepo) ListByUser(_ context.Context, userID string, status models.TaskStatus, limit int) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Task
	for _, r := range f.rows {
		if r.UserID != userID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeTaskRepo) MarkDone(_ context.Context, userID, id string, completedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.UserID == userID && r.ID == id && r.Status == models.TaskTodo {
			f.rows[i].Status = models.TaskDone
			t := completedAt
			f.rows[i].CompletedAt = &t
			return 1, nil
		}
	}
	return 0, nil
}

// --- fakeSessionRepo ---

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []models.CoachingSession
}

func (f *fakeSessionRepo) Create(_ context.Context, s *models.CoachingSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, *s)
	return nil
}

func (f *fakeSessionRepo) GetActive(_ context.Context, userID string) (*models.CoachingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sessions) - 1; i >= 0; i-- {
		if f.sessions[i].UserID == userID && f.sessions[i].Status == models.SessionActive {
			cp := f.sessions[i]
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeSessionRepo) Conclude(_ context.Context, sessionID string, at time.Time, summary string, memoriesExtracted int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].SessionID == sessionID {
			f.sessions[i].Status = models.SessionConcluded
			t := at
			f.sessions[i].ConcludedAt = &t
			f.sessions[i].Summary = summary
			f.sessions[i].MemoriesExtracted = memoriesExtracted
			return nil
		}
	}
	return utils.ErrNotFound
}

// --- fakeProvider ---

type fakeProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	lastSys  string
	lastMsgs []llm.Message

	embed    []float32
	embedErr error
}

func (f *fakeProvider) Complete(_ context.Context, system string, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSys = system
	f.lastMsgs = messages
	return f.reply, f.err
}

func (f *fakeProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embed, f.embedErr
}

func (f *fakeProvider) StreamAnswer(_ context.Context, _ string, _ []llm.Message) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errs := make(chan error, 1)
	if f.err != nil {
		errs <- f.err
	} else {
		out <- f.reply
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- fakeLimiter ---

type fakeLimiter struct {
	deny bool
}

func (f *fakeLimiter) Allow(context.Context, string, time.Duration) (bool, error) {
	return !f.deny, nil
}

// --- fakeCache ---

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	f.data[key] = b
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}
