package assignment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsthekvd/kushlapp-engine/internal/commission"
	"github.com/itsthekvd/kushlapp-engine/internal/eventbus"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	taskrepo "github.com/itsthekvd/kushlapp-engine/internal/task/repositoryimpl"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

func TestTaskLimit(t *testing.T) {
	tests := []struct {
		completed int
		earnings  int64
		want      int
	}{
		{0, 0, 1},
		{9, 9999, 1},
		{10, 0, 2},
		{25, 0, 3},
		{50, 0, 4},
		{100, 0, 4},
		{0, 10000, 2},
		{0, 25000, 3},
		{0, 50000, 4},
		{0, 100000, 5},
		{0, 250000, 6},
		{0, 500000, 7},
		{0, 5000000, 7},
		// The two paths never pull the limit down: the larger wins.
		{50, 500000, 7},
		{50, 10000, 4},
		{10, 100000, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("completed=%d earnings=%d", tt.completed, tt.earnings), func(t *testing.T) {
			assert.Equal(t, tt.want, TaskLimit(tt.completed, tt.earnings))
		})
	}
}

func newTestEngine(t *testing.T) (*Engine, task.Repository) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := taskrepo.NewYAMLRepository(store)
	calc, err := commission.NewCalculator(commission.DefaultTiers())
	require.NoError(t, err)
	return NewEngine(repo, calc, eventbus.New()), repo
}

func createTask(t *testing.T, repo task.Repository, mutate func(*task.Task)) *task.Task {
	t.Helper()
	now := time.Now()
	tk := &task.Task{
		ID:          ulid.Make().String(),
		CampaignID:  "campaign-1",
		Title:       "test task",
		Status:      task.StatusPublished,
		Priority:    task.PriorityMedium,
		IsPublished: true,
		PublishedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mutate != nil {
		mutate(tk)
	}
	require.NoError(t, repo.Create(context.Background(), tk))
	return tk
}

func assignTo(studentID string) func(*task.Task) {
	return func(tk *task.Task) {
		tk.Status = task.StatusInProgress
		tk.AssigneeID = studentID
		tk.Assignment = &task.TaskAssignment{
			StudentID:   studentID,
			StudentName: "Student " + studentID,
			AssignedAt:  time.Now(),
			Status:      task.AssignmentActive,
		}
	}
}

func completedBy(studentID string, price int64) func(*task.Task) {
	return func(tk *task.Task) {
		now := time.Now()
		tk.Status = task.StatusCompleted
		tk.Price = price
		tk.CompletedAt = &now
		tk.Assignment = &task.TaskAssignment{
			StudentID:  studentID,
			AssignedAt: now,
			Status:     task.AssignmentCompleted,
		}
	}
}

func TestStatsForCountsActiveAndCompleted(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	createTask(t, repo, assignTo("alice"))
	createTask(t, repo, completedBy("alice", 1000))
	createTask(t, repo, completedBy("alice", 2000))
	createTask(t, repo, completedBy("bob", 5000))
	createTask(t, repo, nil)

	stats, err := engine.StatsFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveCount)
	assert.Equal(t, 2, stats.CompletedCount)
	// 10% tier on both: net 900 + 1800.
	assert.Equal(t, int64(2700), stats.TotalEarnings)
	assert.Equal(t, 1, stats.Limit)
}

func TestStatsForCountsCompletedAfterReassignment(t *testing.T) {
	engine, repo := newTestEngine(t)

	// A completed task keeps its assignment record even though the assignee
	// id field is cleared by reassignment of other work.
	createTask(t, repo, func(tk *task.Task) {
		completedBy("alice", 1000)(tk)
		tk.AssigneeID = ""
	})

	stats, err := engine.StatsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, int64(900), stats.TotalEarnings)
}

func TestCanApplyDeniesAtCapacity(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	decision, err := engine.CanApply(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, decision.CanApply)

	// Base limit is 1; one active assignment fills it.
	createTask(t, repo, assignTo("alice"))

	decision, err = engine.CanApply(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, decision.CanApply)
	assert.NotEmpty(t, decision.Reason)
}

func TestCanApplyRaisedLimitAllowsMore(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	// Earnings of 10 completed tasks at 5000 each: net 4650 * 10 = 46500,
	// completion path gives limit 2.
	for i := 0; i < 10; i++ {
		createTask(t, repo, completedBy("alice", 5000))
	}
	createTask(t, repo, assignTo("alice"))

	stats, err := engine.StatsFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Limit) // earnings path: 46500 >= 25000

	decision, err := engine.CanApply(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, decision.CanApply)
}

func TestCanApplyRequiresStudentID(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.CanApply(context.Background(), "")
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))
}

func TestReassignReleasesTask(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	tk := createTask(t, repo, assignTo("alice"))

	got, err := engine.Reassign(ctx, tk.ID, "went silent", "emp-1", "Employer")
	require.NoError(t, err)
	assert.Empty(t, got.AssigneeID)
	assert.Equal(t, task.AssignmentReassigned, got.Assignment.Status)
	assert.True(t, got.IsPublished)

	// Applications and timeline history survive; a system message records
	// the release.
	require.NotEmpty(t, got.TimelineMessages)
	assert.True(t, got.TimelineMessages[len(got.TimelineMessages)-1].IsSystemMessage)

	stats, err := engine.StatsFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ActiveCount)
}

func TestReassignRequiresAssignment(t *testing.T) {
	engine, repo := newTestEngine(t)
	tk := createTask(t, repo, nil)

	_, err := engine.Reassign(context.Background(), tk.ID, "", "emp-1", "Employer")
	assert.Equal(t, cerr.FailedPrecondition, cerr.CodeOf(err))
}

func TestReassignRejectsCompletedTask(t *testing.T) {
	engine, repo := newTestEngine(t)
	tk := createTask(t, repo, completedBy("alice", 1000))

	_, err := engine.Reassign(context.Background(), tk.ID, "", "emp-1", "Employer")
	assert.Equal(t, cerr.FailedPrecondition, cerr.CodeOf(err))
}
