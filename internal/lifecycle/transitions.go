package lifecycle

import "github.com/itsthekvd/kushlapp-engine/internal/task"

// transitions is the legality table for ordinary workflow statuses.
// Recurring and library statuses are lanes, not transition targets: a task is
// born into them and never moves through this table.
var transitions = map[task.Status][]task.Status{
	task.StatusDraft:      {task.StatusPublished, task.StatusArchived},
	task.StatusPublished:  {task.StatusInProgress, task.StatusDraft, task.StatusArchived},
	task.StatusInProgress: {task.StatusReview, task.StatusPublished},
	task.StatusReview:     {task.StatusCompleted, task.StatusInProgress},
	task.StatusCompleted:  {},
	task.StatusArchived:   {task.StatusDraft},
}

// CanTransition reports whether moving from one workflow status to another is
// legal.
func CanTransition(from, to task.Status) bool {
	if from == to {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
