package task

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Status string

const (
	StatusDraft      Status = "draft"
	StatusPublished  Status = "published"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"

	StatusRecurringDaily   Status = "recurring_daily"
	StatusRecurringWeekly  Status = "recurring_weekly"
	StatusRecurringMonthly Status = "recurring_monthly"

	// Library pseudo-statuses mark reference items that never enter the
	// marketplace workflow.
	StatusChecklistLibrary   Status = "checklist_library"
	StatusCredentialsLibrary Status = "credentials_library"
	StatusBrandBrief         Status = "brand_brief"
	StatusResourceLibrary    Status = "resource_library"
)

var allStatuses = map[Status]struct{}{
	StatusDraft: {}, StatusPublished: {}, StatusInProgress: {}, StatusReview: {},
	StatusCompleted: {}, StatusArchived: {},
	StatusRecurringDaily: {}, StatusRecurringWeekly: {}, StatusRecurringMonthly: {},
	StatusChecklistLibrary: {}, StatusCredentialsLibrary: {}, StatusBrandBrief: {},
	StatusResourceLibrary: {},
}

func (s Status) Valid() bool {
	_, ok := allStatuses[s]
	return ok
}

func (s Status) IsRecurring() bool {
	return s == StatusRecurringDaily || s == StatusRecurringWeekly || s == StatusRecurringMonthly
}

func (s Status) IsLibrary() bool {
	switch s {
	case StatusChecklistLibrary, StatusCredentialsLibrary, StatusBrandBrief, StatusResourceLibrary:
		return true
	}
	return false
}

// NextDue advances t by one recurrence unit. Monthly recurrence uses calendar
// months, not 30-day blocks.
func (s Status) NextDue(t time.Time) time.Time {
	switch s {
	case StatusRecurringDaily:
		return t.AddDate(0, 0, 1)
	case StatusRecurringWeekly:
		return t.AddDate(0, 0, 7)
	case StatusRecurringMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Role string

const (
	RoleEmployer Role = "employer"
	RoleStudent  Role = "student"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

type AssignmentStatus string

const (
	AssignmentActive     AssignmentStatus = "active"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentReassigned AssignmentStatus = "reassigned"
)

// DeletedMessagePlaceholder replaces the content of soft-deleted timeline
// messages. The entry itself is never removed.
const DeletedMessagePlaceholder = "[message deleted]"

type Task struct {
	ID          string   `yaml:"id" json:"id"`
	CampaignID  string   `yaml:"campaign_id" json:"campaignId"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Status      Status   `yaml:"status" json:"status"`
	Priority    Priority `yaml:"priority" json:"priority"`
	Price       int64    `yaml:"price" json:"price"`
	Category    string   `yaml:"category" json:"category"`

	Kind Kind `yaml:"kind" json:"kind"`

	IsPublished bool       `yaml:"is_published" json:"isPublished"`
	PublishedAt *time.Time `yaml:"published_at,omitempty" json:"publishedAt,omitempty"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty" json:"completedAt,omitempty"`

	AssigneeID string           `yaml:"assignee_id,omitempty" json:"assigneeId,omitempty"`
	Assignment *TaskAssignment  `yaml:"assignment,omitempty" json:"assignment,omitempty"`

	Applications     []TaskApplication `yaml:"applications,omitempty" json:"applications,omitempty"`
	TimelineMessages []TimelineMessage `yaml:"timeline_messages,omitempty" json:"timelineMessages,omitempty"`
	Comments         []Comment         `yaml:"comments,omitempty" json:"comments,omitempty"`

	EmployerReview *Review `yaml:"employer_review,omitempty" json:"employerReview,omitempty"`
	StudentReview  *Review `yaml:"student_review,omitempty" json:"studentReview,omitempty"`

	// DetailsPostedToTimeline is reset to false on approval; the UI
	// collaborator consumes it to bulk-post task details exactly once.
	DetailsPostedToTimeline bool `yaml:"details_posted_to_timeline" json:"detailsPostedToTimeline"`
	// AutoPostToTimeline nil means enabled.
	AutoPostToTimeline *bool `yaml:"auto_post_to_timeline,omitempty" json:"autoPostToTimeline,omitempty"`

	LastCompletedAt      *time.Time         `yaml:"last_completed_at,omitempty" json:"lastCompletedAt,omitempty"`
	NextDueDate          *time.Time         `yaml:"next_due_date,omitempty" json:"nextDueDate,omitempty"`
	IsRecurringCompleted bool               `yaml:"is_recurring_completed" json:"isRecurringCompleted"`
	RecurrenceHistory    []RecurrenceRecord `yaml:"recurrence_history,omitempty" json:"recurrenceHistory,omitempty"`

	EditHistory []EditHistoryEntry `yaml:"edit_history,omitempty" json:"editHistory,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}

// Kind carries the payload of the task variant. Exactly one pointer is
// non-nil; a zero Kind means an ordinary marketplace task.
type Kind struct {
	Checklist   *ChecklistPayload   `yaml:"checklist,omitempty" json:"checklist,omitempty"`
	Credentials *CredentialsPayload `yaml:"credentials,omitempty" json:"credentials,omitempty"`
	BrandBrief  *BrandBriefPayload  `yaml:"brand_brief,omitempty" json:"brandBrief,omitempty"`
	Resources   *ResourcePayload    `yaml:"resources,omitempty" json:"resources,omitempty"`
}

func (k Kind) IsOrdinary() bool {
	return k.Checklist == nil && k.Credentials == nil && k.BrandBrief == nil && k.Resources == nil
}

type ChecklistPayload struct {
	Items []ChecklistItem `yaml:"items" json:"items"`
}

type ChecklistItem struct {
	Text string `yaml:"text" json:"text"`
	Done bool   `yaml:"done" json:"done"`
}

type CredentialsPayload struct {
	Entries []CredentialEntry `yaml:"entries" json:"entries"`
}

type CredentialEntry struct {
	Label    string `yaml:"label" json:"label"`
	Username string `yaml:"username" json:"username"`
	Secret   string `yaml:"secret" json:"secret"`
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
}

type BrandBriefPayload struct {
	Sections map[string]string `yaml:"sections" json:"sections"`
}

type ResourcePayload struct {
	Links []ResourceLink `yaml:"links" json:"links"`
}

type ResourceLink struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

type TaskApplication struct {
	ID           string            `yaml:"id" json:"id"`
	StudentID    string            `yaml:"student_id" json:"studentId"`
	StudentName  string            `yaml:"student_name" json:"studentName"`
	StudentEmail string            `yaml:"student_email" json:"studentEmail"`
	Note         string            `yaml:"note" json:"note"`
	Status       ApplicationStatus `yaml:"status" json:"status"`
	CreatedAt    time.Time         `yaml:"created_at" json:"createdAt"`
	UpdatedAt    time.Time         `yaml:"updated_at" json:"updatedAt"`
}

type TaskAssignment struct {
	StudentID    string           `yaml:"student_id" json:"studentId"`
	StudentName  string           `yaml:"student_name" json:"studentName"`
	StudentEmail string           `yaml:"student_email" json:"studentEmail"`
	AssignedAt   time.Time        `yaml:"assigned_at" json:"assignedAt"`
	Status       AssignmentStatus `yaml:"status" json:"status"`
}

type TimelineMessage struct {
	ID              string     `yaml:"id" json:"id"`
	AuthorID        string     `yaml:"author_id" json:"authorId"`
	AuthorName      string     `yaml:"author_name" json:"authorName"`
	Role            Role       `yaml:"role" json:"role"`
	Content         string     `yaml:"content" json:"content"`
	CreatedAt       time.Time  `yaml:"created_at" json:"createdAt"`
	IsSystemMessage bool       `yaml:"is_system_message" json:"isSystemMessage"`
	Edited          bool       `yaml:"edited,omitempty" json:"edited,omitempty"`
	EditedAt        *time.Time `yaml:"edited_at,omitempty" json:"editedAt,omitempty"`
	IsDeleted       bool       `yaml:"is_deleted,omitempty" json:"isDeleted,omitempty"`
	DeletedAt       *time.Time `yaml:"deleted_at,omitempty" json:"deletedAt,omitempty"`
}

type Comment struct {
	ID         string    `yaml:"id" json:"id"`
	AuthorID   string    `yaml:"author_id" json:"authorId"`
	AuthorName string    `yaml:"author_name" json:"authorName"`
	Content    string    `yaml:"content" json:"content"`
	CreatedAt  time.Time `yaml:"created_at" json:"createdAt"`
}

type Review struct {
	ReviewerID   string    `yaml:"reviewer_id" json:"reviewerId"`
	ReviewerName string    `yaml:"reviewer_name" json:"reviewerName"`
	Role         Role      `yaml:"role" json:"role"`
	RecipientID  string    `yaml:"recipient_id" json:"recipientId"`
	Rating       int       `yaml:"rating" json:"rating"`
	Comment      string    `yaml:"comment" json:"comment"`
	CreatedAt    time.Time `yaml:"created_at" json:"createdAt"`
}

type RecurrenceRecord struct {
	CompletedAt time.Time `yaml:"completed_at" json:"completedAt"`
	CompletedBy string    `yaml:"completed_by" json:"completedBy"`
	NextDueDate time.Time `yaml:"next_due_date" json:"nextDueDate"`
}

type EditHistoryEntry struct {
	At        time.Time `yaml:"at" json:"at"`
	ActorID   string    `yaml:"actor_id" json:"actorId"`
	ActorName string    `yaml:"actor_name" json:"actorName"`
	Action    string    `yaml:"action" json:"action"`
	Detail    string    `yaml:"detail,omitempty" json:"detail,omitempty"`
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

func (t *Task) HasActiveAssignment() bool {
	return t.Assignment != nil && t.Assignment.Status == AssignmentActive
}

func (t *Task) AutoPostEnabled() bool {
	return t.AutoPostToTimeline == nil || *t.AutoPostToTimeline
}

func (t *Task) ApplicationByID(id string) *TaskApplication {
	for i := range t.Applications {
		if t.Applications[i].ID == id {
			return &t.Applications[i]
		}
	}
	return nil
}

func (t *Task) ApplicationByStudent(studentID string) *TaskApplication {
	for i := range t.Applications {
		if t.Applications[i].StudentID == studentID {
			return &t.Applications[i]
		}
	}
	return nil
}

func (t *Task) TimelineMessageByID(id string) *TimelineMessage {
	for i := range t.TimelineMessages {
		if t.TimelineMessages[i].ID == id {
			return &t.TimelineMessages[i]
		}
	}
	return nil
}

// AppendSystemMessage appends a system timeline entry attributed to the
// engine itself. Messages keep call order; there is no reordering.
func (t *Task) AppendSystemMessage(content string) {
	now := time.Now()
	t.TimelineMessages = append(t.TimelineMessages, TimelineMessage{
		ID:              ulid.Make().String(),
		AuthorID:        "system",
		AuthorName:      "System",
		Role:            RoleEmployer,
		Content:         content,
		CreatedAt:       now,
		IsSystemMessage: true,
	})
	t.UpdatedAt = now
}

// RecordEdit appends an audit trail entry.
func (t *Task) RecordEdit(actorID, actorName, action, detail string) {
	t.EditHistory = append(t.EditHistory, EditHistoryEntry{
		At:        time.Now(),
		ActorID:   actorID,
		ActorName: actorName,
		Action:    action,
		Detail:    detail,
	})
}
