package models

import (
	"time"
)

// Status enumerates application lifecycle states persisted in Postgres.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order. Aggregations iterate this
// so per-status counts never omit a key.
var AllStatuses = []Status{
	StatusPending,
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// Terminal reports whether no further transition out of the status is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active reports whether the status still occupies the (user, job) uniqueness slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusQueued || s == StatusProcessing
}

// Priority is the coarse dispatch tier derived from the 1-10 numeric hint.
type Priority string

const (
	PriorityNormal    Priority = "normal"
	PriorityHigh      Priority = "high"
	PriorityUrgent    Priority = "urgent"
	PriorityImmediate Priority = "immediate"
)

// PriorityFromHint maps the numeric hint from the swipe surface to a tier.
func PriorityFromHint(hint int) Priority {
	switch {
	case hint >= 10:
		return PriorityImmediate
	case hint >= 8:
		return PriorityUrgent
	case hint >= 6:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// Application is one user's application to one job: the durable unit of work
// handed to the automation workers.
type Application struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	JobID       string   `json:"job_id"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	Attempts    int      `json:"attempts"`
	MaxAttempts int      `json:"max_attempts"`

	SnapshotID string `json:"snapshot_id"`

	ResumeOverride   *string           `json:"resume_override,omitempty"`
	CoverLetter      *string           `json:"cover_letter,omitempty"`
	AutomationConfig map[string]string `json:"automation_config,omitempty"`

	ScheduledAt time.Time  `json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	Success      *bool          `json:"success,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	ErrorType    *string        `json:"error_type,omitempty"`
	ResponseData map[string]any `json:"response_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SwipeDirection records which way the user decided on a job card.
type SwipeDirection string

const (
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// UserJobSwipe is the most recent decision per (user, job). Upserted, not
// append-only.
type UserJobSwipe struct {
	UserID    string         `json:"user_id"`
	JobID     string         `json:"job_id"`
	Direction SwipeDirection `json:"direction"`
	SwipedAt  time.Time      `json:"swiped_at"`
}

// ApplicationEvent is an audit row attached to one application.
type ApplicationEvent struct {
	ApplicationID string    `json:"application_id"`
	Event         string    `json:"event"`
	Detail        string    `json:"detail"`
	Recorded      time.Time `json:"recorded_at"`
}

// EnqueueSource captures where a swipe came from, stored for audit.
type EnqueueSource struct {
	Surface   string `json:"surface,omitempty"`
	Device    string `json:"device,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	IP        string `json:"ip,omitempty"`
}
