// Package queue owns the lifecycle of one user's application to one job, from
// swipe-right to a terminal outcome.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"jobswipe-core/internal/dispatch"
	"jobswipe-core/internal/models"
	"jobswipe-core/internal/snapshot"
	"jobswipe-core/internal/store"
	"jobswipe-core/internal/telemetry"
)

// Store is the persistence surface the manager needs. *store.Store satisfies
// it; tests substitute an in-memory implementation.
type Store interface {
	GetJob(ctx context.Context, id string) (models.Job, models.Company, error)
	HasActiveApplication(ctx context.Context, userID, jobID string) (bool, error)
	CreateApplication(ctx context.Context, p store.CreateApplicationParams) (models.Application, error)
	GetApplication(ctx context.Context, userID, id string) (models.Application, error)
	GetSnapshot(ctx context.Context, applicationID string) (models.JobSnapshot, error)
	ListApplications(ctx context.Context, userID string, f store.ListFilter) ([]models.Application, error)
	ListEvents(ctx context.Context, applicationID string) ([]models.ApplicationEvent, error)
	AppendEvent(ctx context.Context, applicationID, event, detail string) error
	CancelApplication(ctx context.Context, userID, id string) (models.Application, bool, error)
	RetryApplication(ctx context.Context, userID, id string, nextRetryAt time.Time) (models.Application, bool, error)
	PrioritizeApplication(ctx context.Context, userID, id string) (models.Application, bool, error)
	MarkQueued(ctx context.Context, id string) (bool, error)
	MarkProcessing(ctx context.Context, id string) (bool, error)
	MarkOutcome(ctx context.Context, id string, success bool, errMsg, errType string, responseData map[string]any) (bool, error)
}

// Dispatcher hands committed work to the external automation workers. Every
// call site handles the not-configured case explicitly; a nil dispatcher
// degrades to database-only queueing.
type Dispatcher interface {
	Dispatch(ctx context.Context, item dispatch.WorkItem, highPriority bool) error
	Cancel(ctx context.Context, applicationID string) error
	Status(ctx context.Context, applicationID string) (string, error)
}

// Archiver copies committed snapshots to long-term storage, best-effort.
type Archiver interface {
	Archive(ctx context.Context, snap models.JobSnapshot) error
}

// Manager coordinates the application state machine.
type Manager struct {
	store      Store
	dispatcher Dispatcher
	archiver   Archiver

	maxAttempts int
	retryDelay  time.Duration
}

// Options tune manager behavior; zero values fall back to defaults.
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// NewManager wires the manager. Dispatcher and archiver may be nil.
func NewManager(st Store, d Dispatcher, a Archiver, opts Options) *Manager {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 30 * time.Second
	}
	return &Manager{
		store:       st,
		dispatcher:  d,
		archiver:    a,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
	}
}

// EnqueueParams are the swipe-right inputs.
type EnqueueParams struct {
	UserID           string
	JobID            string
	ResumeOverride   *string
	CoverLetter      *string
	PriorityHint     int
	AutomationConfig map[string]string
	Source           models.EnqueueSource
}

// EnqueueResult identifies the committed entry.
type EnqueueResult struct {
	ApplicationID string          `json:"application_id"`
	SnapshotID    string          `json:"snapshot_id"`
	Status        models.Status   `json:"status"`
	Priority      models.Priority `json:"priority"`
}

// Enqueue turns a swipe-right into a durable application. Preconditions are
// checked in order: duplicate, job missing, job inactive. The swipe upsert,
// entry insert, and snapshot all commit in one transaction; the dispatch
// hand-off happens after commit and its failure never loses the application.
func (m *Manager) Enqueue(ctx context.Context, p EnqueueParams) (EnqueueResult, error) {
	if p.UserID == "" || p.JobID == "" {
		return EnqueueResult{}, models.NewError(models.CodeValidation, "user id and job id are required")
	}

	active, err := m.store.HasActiveApplication(ctx, p.UserID, p.JobID)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("check duplicate: %w", err)
	}
	if active {
		telemetry.DuplicateRejects.Inc()
		return EnqueueResult{}, models.NewError(models.CodeDuplicate, "an active application for job %s already exists", p.JobID)
	}

	job, company, err := m.store.GetJob(ctx, p.JobID)
	if errors.Is(err, store.ErrNotFound) {
		return EnqueueResult{}, models.NewError(models.CodeJobNotFound, "job %s does not exist", p.JobID)
	}
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("load job: %w", err)
	}
	if !job.IsActive {
		return EnqueueResult{}, models.NewError(models.CodeJobInactive, "job %s is no longer accepting applications", p.JobID)
	}

	hint := p.PriorityHint
	if hint <= 0 {
		hint = 5
	}
	if hint > 10 {
		hint = 10
	}

	applicationID := uuid.New().String()
	snap, err := snapshot.Build(applicationID, job, company)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("build snapshot: %w", err)
	}

	now := time.Now().UTC()
	app := models.Application{
		ID:               applicationID,
		UserID:           p.UserID,
		JobID:            p.JobID,
		Status:           models.StatusPending,
		Priority:         models.PriorityFromHint(hint),
		MaxAttempts:      m.maxAttempts,
		ResumeOverride:   p.ResumeOverride,
		CoverLetter:      p.CoverLetter,
		AutomationConfig: p.AutomationConfig,
		ScheduledAt:      now,
	}

	created, err := m.store.CreateApplication(ctx, store.CreateApplicationParams{
		Application: app,
		Snapshot:    snap,
		Swipe: models.UserJobSwipe{
			UserID:    p.UserID,
			JobID:     p.JobID,
			Direction: models.SwipeRight,
			SwipedAt:  now,
		},
		Source: p.Source,
	})
	if errors.Is(err, store.ErrDuplicate) {
		// Lost the race against a concurrent enqueue for the same pair; the
		// unique index kept exactly one.
		telemetry.DuplicateRejects.Inc()
		return EnqueueResult{}, models.NewError(models.CodeDuplicate, "an active application for job %s already exists", p.JobID)
	}
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("create application: %w", err)
	}
	telemetry.EnqueueCounter.Inc()
	telemetry.SnapshotCounter.Inc()

	if m.archiver != nil {
		if err := m.archiver.Archive(ctx, snap); err != nil {
			log.Printf("archive snapshot %s: %v", snap.ID, err)
		}
	}

	// Dispatch after commit. Failure leaves the entry pending for the sweeper;
	// the user's application is already durable.
	status := created.Status
	if m.dispatcher != nil {
		if err := m.dispatchApplication(ctx, created, snap, hint); err != nil {
			telemetry.DispatchFailures.Inc()
			log.Printf("dispatch application %s: %v", created.ID, err)
			_ = m.store.AppendEvent(ctx, created.ID, "dispatch_failed", err.Error())
		} else if moved, err := m.store.MarkQueued(ctx, created.ID); err != nil {
			// The work item is in Redis but the row still says pending; the
			// sweeper will reconcile, so surface it rather than fail the enqueue.
			log.Printf("mark application %s queued: %v", created.ID, err)
		} else if moved {
			status = models.StatusQueued
			_ = m.store.AppendEvent(ctx, created.ID, "dispatched", string(created.Priority))
		}
	}

	return EnqueueResult{
		ApplicationID: created.ID,
		SnapshotID:    snap.ID,
		Status:        status,
		Priority:      created.Priority,
	}, nil
}

func (m *Manager) dispatchApplication(ctx context.Context, app models.Application, snap models.JobSnapshot, hint int) error {
	item := dispatch.WorkItem{
		ApplicationID:    app.ID,
		UserID:           app.UserID,
		JobID:            app.JobID,
		SnapshotID:       snap.ID,
		SchemaID:         snap.SchemaID,
		JobBoard:         snap.JobBoard,
		ApplyURL:         snap.ApplyURL,
		Priority:         app.Priority,
		Attempt:          app.Attempts + 1,
		AutomationConfig: app.AutomationConfig,
		EnqueuedAt:       time.Now().UTC(),
	}
	if app.ResumeOverride != nil {
		item.ResumeOverride = *app.ResumeOverride
	}
	if app.CoverLetter != nil {
		item.CoverLetter = *app.CoverLetter
	}
	return m.dispatcher.Dispatch(ctx, item, hint >= 8)
}

// ApplicationDetail is the full per-entry view, including the audit trail.
type ApplicationDetail struct {
	Application models.Application        `json:"application"`
	Snapshot    models.JobSnapshot        `json:"snapshot"`
	Events      []models.ApplicationEvent `json:"events"`

	// DispatchState is the dispatcher's live view for active entries
	// ("queued"/"processing"), empty once dispatch no longer tracks the entry.
	DispatchState string `json:"dispatch_state,omitempty"`
}

// Get returns one entry with snapshot and logs, scoped to its owner.
func (m *Manager) Get(ctx context.Context, userID, applicationID string) (ApplicationDetail, error) {
	app, err := m.store.GetApplication(ctx, userID, applicationID)
	if errors.Is(err, store.ErrNotFound) {
		return ApplicationDetail{}, models.NewError(models.CodeAppNotFound, "application %s not found", applicationID)
	}
	if err != nil {
		return ApplicationDetail{}, fmt.Errorf("load application: %w", err)
	}

	snap, err := m.store.GetSnapshot(ctx, app.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return ApplicationDetail{}, fmt.Errorf("load snapshot: %w", err)
	}
	events, err := m.store.ListEvents(ctx, app.ID)
	if err != nil {
		return ApplicationDetail{}, fmt.Errorf("load events: %w", err)
	}

	detail := ApplicationDetail{Application: app, Snapshot: snap, Events: events}
	if m.dispatcher != nil && app.Status.Active() {
		if state, err := m.dispatcher.Status(ctx, app.ID); err == nil {
			detail.DispatchState = state
		}
	}
	return detail, nil
}

// List returns a user's entries newest-first, optionally filtered by status.
func (m *Manager) List(ctx context.Context, userID string, f store.ListFilter) ([]models.Application, error) {
	if userID == "" {
		return nil, models.NewError(models.CodeValidation, "user id is required")
	}
	apps, err := m.store.ListApplications(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}
