package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/utils"
)

type actionFixture struct {
	proposals *fakeProposalRepo
	tasks     *fakeTaskRepo
	roadmaps  *fakeRoadmapRepo
	cache     *fakeCache
	svc       ActionService
}

func newActionFixture() *actionFixture {
	f := &actionFixture{
		proposals: newFakeProposalRepo(),
		tasks:     &fakeTaskRepo{},
		roadmaps:  newFakeRoadmapRepo(),
		cache:     newFakeCache(),
	}
	f.svc = NewActionService(f.proposals, f.tasks, f.roadmaps, f.cache, testLogger())
	return f
}

func (f *actionFixture) seedProposal(t *testing.T, payload string) *models.ActionProposal {
	t.Helper()
	p, err := f.proposals.Upsert(context.Background(), &models.ActionProposal{
		ID:          "p1",
		UserID:      testUser,
		MessageID:   "msg-1",
		Payload:     payload,
		Fingerprint: payload, // uniqueness only matters per test
		Status:      models.ProposalProposed,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	return p
}

func TestApproveAddTaskAppliesDefaults(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "ADD_TASK", "data": {"title": "Ship the v2 API"}}`)

	res, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, `Added task "Ship the v2 API" to your plan.`, res.Message)

	require.Len(t, f.tasks.rows, 1)
	task := f.tasks.rows[0]
	assert.Equal(t, models.DifficultyMedium, task.Difficulty)
	assert.Equal(t, 30, task.EstimatedMinutes)
	assert.Equal(t, models.TaskTodo, task.Status)
	assert.Equal(t, "{}", string(task.Metadata))

	stored, _ := f.proposals.GetByID(context.Background(), testUser, p.ID)
	assert.Equal(t, models.ProposalApplied, stored.Status)
}

func TestApproveAddTaskHonorsExplicitFields(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "ADD_TASK", "data": {
		"title": "Read the SRE book",
		"description": "One chapter a day",
		"difficulty": "Hard",
		"estimatedMinutes": 90
	}}`)

	_, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err)

	require.Len(t, f.tasks.rows, 1)
	task := f.tasks.rows[0]
	assert.Equal(t, models.DifficultyHard, task.Difficulty)
	assert.Equal(t, 90, task.EstimatedMinutes)
	assert.Equal(t, "One chapter a day", task.Description)
}

func TestApproveAddTaskInvalidDifficultyFallsBack(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "ADD_TASK", "data": {"title": "x", "difficulty": "Impossible", "estimatedMinutes": -5}}`)

	_, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err)

	require.Len(t, f.tasks.rows, 1)
	assert.Equal(t, models.DifficultyMedium, f.tasks.rows[0].Difficulty)
	assert.Equal(t, 30, f.tasks.rows[0].EstimatedMinutes)
}

func TestApproveAddTaskDescriptionFromMetadataOutcome(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "ADD_TASK", "data": {"title": "x", "metadata": {"outcome": "can explain CAP theorem"}}}`)

	_, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err)

	require.Len(t, f.tasks.rows, 1)
	assert.Equal(t, "can explain CAP theorem", f.tasks.rows[0].Description)
	assert.Contains(t, string(f.tasks.rows[0].Metadata), "CAP theorem")
}

func TestApproveAddTaskMissingTitle(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "ADD_TASK", "data": {"description": "no title here"}}`)

	_, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.Empty(t, f.tasks.rows, "no task on validation failure")
}

func seedRoadmap(f *actionFixture) {
	f.roadmaps.roadmap = &models.Roadmap{
		ID:     "r1",
		UserID: testUser,
		Title:  "Path to backend mastery",
		Milestones: []models.Milestone{
			{ID: "m1", RoadmapID: "r1", Title: "Learn Python", SortOrder: 1, Status: models.MilestonePending},
			{ID: "m2", RoadmapID: "r1", Title: "Learn Python Advanced", SortOrder: 2, Status: models.MilestoneCompleted},
			{ID: "m3", RoadmapID: "r1", Title: "Ship a side project", SortOrder: 3, Status: models.MilestoneInProgress},
		},
	}
}

func TestApproveCompleteMilestoneFirstActiveSubstringMatch(t *testing.T) {
	f := newActionFixture()
	seedRoadmap(f)
	p := f.seedProposal(t, `{"type": "COMPLETE_MILESTONE", "data": {"title": "Python"}}`)

	res, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	// "Learn Python Advanced" also contains "Python" but is already
	// completed, so the first active match wins.
	assert.Equal(t, `Marked milestone "Learn Python" as completed.`, res.Message)
	assert.Equal(t, models.MilestoneCompleted, f.roadmaps.statuses["m1"])
	assert.NotContains(t, f.roadmaps.statuses, "m3")
}

func TestApproveCompleteMilestoneCaseInsensitive(t *testing.T) {
	f := newActionFixture()
	seedRoadmap(f)
	p := f.seedProposal(t, `{"type": "COMPLETE_MILESTONE", "data": {"title": "sHiP a SiDe"}}`)

	res, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, models.MilestoneCompleted, f.roadmaps.statuses["m3"])
}

func TestApproveCompleteMilestoneNoMatchIsSoftFailure(t *testing.T) {
	f := newActionFixture()
	seedRoadmap(f)
	p := f.seedProposal(t, `{"type": "COMPLETE_MILESTONE", "data": {"title": "Kubernetes"}}`)

	res, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err, "no match is a result, not an error")
	assert.False(t, res.Success)
	assert.Equal(t, "Could not find a matching active milestone.", res.Message)

	stored, _ := f.proposals.GetByID(context.Background(), testUser, p.ID)
	assert.Equal(t, models.ProposalRejected, stored.Status)
}

func TestApproveCompleteMilestoneMissingTitle(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "COMPLETE_MILESTONE", "data": {}}`)

	_, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestApproveUnknownActionType(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "DELETE_EVERYTHING", "data": {}}`)

	res, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, `Unrecognized action type "DELETE_EVERYTHING".`, res.Message)

	stored, _ := f.proposals.GetByID(context.Background(), testUser, p.ID)
	assert.Equal(t, models.ProposalRejected, stored.Status)
}

func TestApproveMalformedPayload(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "ADD_TASK", "data": {broken`)

	_, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	// The proposal survives and stays re-approvable.
	stored, _ := f.proposals.GetByID(context.Background(), testUser, p.ID)
	assert.Equal(t, models.ProposalProposed, stored.Status)
}

func TestApproveAppliedProposalIsNoOp(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "ADD_TASK", "data": {"title": "Write tests"}}`)

	first, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err)
	require.True(t, first.Success)
	require.Len(t, f.tasks.rows, 1)

	second, err := f.svc.Approve(context.Background(), testUser, p.ID)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, first.Message, second.Message)
	assert.Len(t, f.tasks.rows, 1, "re-approval must not duplicate the task")
}

func TestApproveScopedToOwner(t *testing.T) {
	f := newActionFixture()
	p := f.seedProposal(t, `{"type": "ADD_TASK", "data": {"title": "x"}}`)

	_, err := f.svc.Approve(context.Background(), "33333333-3333-3333-3333-333333333333", p.ID)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestApproveUnknownProposal(t *testing.T) {
	f := newActionFixture()

	_, err := f.svc.Approve(context.Background(), testUser, "does-not-exist")
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}
