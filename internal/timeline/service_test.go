package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsthekvd/kushlapp-engine/internal/task"
	taskrepo "github.com/itsthekvd/kushlapp-engine/internal/task/repositoryimpl"
	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

func newTestService(t *testing.T) (*Service, task.Repository) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := taskrepo.NewYAMLRepository(store)
	return NewService(repo), repo
}

func createTask(t *testing.T, repo task.Repository, status task.Status) *task.Task {
	t.Helper()
	now := time.Now()
	tk := &task.Task{
		ID:        ulid.Make().String(),
		Title:     "test task",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), tk))
	return tk
}

func TestAppendKeepsOrder(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusInProgress)

	for _, content := range []string{"first", "second", "third"} {
		_, err := svc.Append(ctx, &AppendRequest{
			TaskID:     tk.ID,
			AuthorID:   "alice",
			AuthorName: "Alice",
			Role:       task.RoleStudent,
			Content:    content,
		})
		require.NoError(t, err)
	}

	stored, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, stored.TimelineMessages, 3)
	assert.Equal(t, "first", stored.TimelineMessages[0].Content)
	assert.Equal(t, "second", stored.TimelineMessages[1].Content)
	assert.Equal(t, "third", stored.TimelineMessages[2].Content)
}

func TestAppendValidation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusInProgress)

	_, err := svc.Append(ctx, &AppendRequest{TaskID: tk.ID, AuthorID: "a", Role: task.RoleStudent})
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))

	_, err = svc.Append(ctx, &AppendRequest{TaskID: tk.ID, AuthorID: "a", Role: "admin", Content: "hi"})
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))
}

func TestAppendLockedAfterCompletion(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusCompleted)

	_, err := svc.Append(ctx, &AppendRequest{
		TaskID: tk.ID, AuthorID: "alice", Role: task.RoleStudent, Content: "hello",
	})
	assert.Equal(t, cerr.FailedPrecondition, cerr.CodeOf(err))

	// System messages still get through so completion itself can be logged.
	_, err = svc.Append(ctx, &AppendRequest{
		TaskID: tk.ID, AuthorID: "system", Role: task.RoleEmployer,
		Content: "done", IsSystemMessage: true,
	})
	assert.NoError(t, err)
}

func TestEditByAuthor(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusInProgress)

	msg, err := svc.Append(ctx, &AppendRequest{
		TaskID: tk.ID, AuthorID: "alice", AuthorName: "Alice",
		Role: task.RoleStudent, Content: "original",
	})
	require.NoError(t, err)

	edited, err := svc.Edit(ctx, &EditRequest{
		TaskID: tk.ID, MessageID: msg.ID, NewContent: "updated",
		EditorID: "alice", EditorRole: task.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", edited.Content)
	assert.True(t, edited.Edited)
	assert.NotNil(t, edited.EditedAt)

	// The edit leaves a diff in the audit trail.
	stored, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.EditHistory)
	last := stored.EditHistory[len(stored.EditHistory)-1]
	assert.Equal(t, "edit_timeline_message", last.Action)
	assert.Contains(t, last.Detail, "-original")
	assert.Contains(t, last.Detail, "+updated")
}

func TestEditDeniedForNonAuthor(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusInProgress)

	msg, err := svc.Append(ctx, &AppendRequest{
		TaskID: tk.ID, AuthorID: "alice", Role: task.RoleStudent, Content: "original",
	})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, &EditRequest{
		TaskID: tk.ID, MessageID: msg.ID, NewContent: "hijacked",
		EditorID: "mallory", EditorRole: task.RoleStudent,
	})
	assert.Equal(t, cerr.PermissionDenied, cerr.CodeOf(err))
}

func TestEditRejectsDeletedMessage(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusInProgress)

	msg, err := svc.Append(ctx, &AppendRequest{
		TaskID: tk.ID, AuthorID: "alice", Role: task.RoleStudent, Content: "original",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, &DeleteRequest{
		TaskID: tk.ID, MessageID: msg.ID, ActorID: "alice", ActorRole: task.RoleStudent,
	}))

	_, err = svc.Edit(ctx, &EditRequest{
		TaskID: tk.ID, MessageID: msg.ID, NewContent: "resurrected",
		EditorID: "alice", EditorRole: task.RoleStudent,
	})
	assert.Equal(t, cerr.FailedPrecondition, cerr.CodeOf(err))
}

func TestDeleteIsSoftAndIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusInProgress)

	msg, err := svc.Append(ctx, &AppendRequest{
		TaskID: tk.ID, AuthorID: "alice", Role: task.RoleStudent, Content: "secret",
	})
	require.NoError(t, err)

	req := &DeleteRequest{TaskID: tk.ID, MessageID: msg.ID, ActorID: "alice", ActorRole: task.RoleStudent}
	require.NoError(t, svc.Delete(ctx, req))
	// Deleting again is a no-op, not an error.
	require.NoError(t, svc.Delete(ctx, req))

	stored, err := repo.Get(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, stored.TimelineMessages, 1)
	m := stored.TimelineMessages[0]
	assert.True(t, m.IsDeleted)
	assert.Equal(t, task.DeletedMessagePlaceholder, m.Content)
	assert.NotNil(t, m.DeletedAt)
}

func TestDeleteDeniedForNonAuthor(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusInProgress)

	msg, err := svc.Append(ctx, &AppendRequest{
		TaskID: tk.ID, AuthorID: "alice", Role: task.RoleStudent, Content: "mine",
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, &DeleteRequest{
		TaskID: tk.ID, MessageID: msg.ID, ActorID: "mallory", ActorRole: task.RoleStudent,
	})
	assert.Equal(t, cerr.PermissionDenied, cerr.CodeOf(err))
}

func TestEditAndDeleteLockedAfterCompletion(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tk := createTask(t, repo, task.StatusInProgress)

	msg, err := svc.Append(ctx, &AppendRequest{
		TaskID: tk.ID, AuthorID: "alice", Role: task.RoleStudent, Content: "before",
	})
	require.NoError(t, err)

	_, err = repo.Mutate(ctx, tk.ID, func(t *task.Task) error {
		t.Status = task.StatusCompleted
		return nil
	})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, &EditRequest{
		TaskID: tk.ID, MessageID: msg.ID, NewContent: "after", EditorID: "alice",
	})
	assert.Equal(t, cerr.FailedPrecondition, cerr.CodeOf(err))

	err = svc.Delete(ctx, &DeleteRequest{TaskID: tk.ID, MessageID: msg.ID, ActorID: "alice"})
	assert.Equal(t, cerr.FailedPrecondition, cerr.CodeOf(err))
}
