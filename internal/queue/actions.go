package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"jobswipe-core/internal/models"
	"jobswipe-core/internal/store"
	"jobswipe-core/internal/telemetry"
)

// Action names accepted by Apply.
const (
	ActionCancel     = "cancel"
	ActionRetry      = "retry"
	ActionPrioritize = "prioritize"
)

// Apply runs a user-initiated action against one entry. Cancel is idempotent,
// retry is bounded by the entry's attempt budget, prioritize bumps an active
// entry to high. All transitions are single conditional updates, so a worker
// finishing concurrently can never be overwritten.
func (m *Manager) Apply(ctx context.Context, userID, applicationID, action, reason string) (models.Application, error) {
	app, err := m.store.GetApplication(ctx, userID, applicationID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Application{}, models.NewError(models.CodeAppNotFound, "application %s not found", applicationID)
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("load application: %w", err)
	}

	switch action {
	case ActionCancel:
		return m.cancel(ctx, userID, app, reason)
	case ActionRetry:
		return m.retry(ctx, userID, app)
	case ActionPrioritize:
		return m.prioritize(ctx, userID, app)
	default:
		return models.Application{}, models.NewError(models.CodeInvalidAction, "unknown action %q", action)
	}
}

func (m *Manager) cancel(ctx context.Context, userID string, app models.Application, reason string) (models.Application, error) {
	if app.Status == models.StatusCompleted {
		return models.Application{}, models.NewError(models.CodeInvalidAction, "application %s already completed", app.ID)
	}
	updated, changed, err := m.store.CancelApplication(ctx, userID, app.ID)
	if err != nil {
		return models.Application{}, fmt.Errorf("cancel application: %w", err)
	}
	if !changed {
		// Already cancelled; repeating the action is a no-op success.
		return updated, nil
	}
	telemetry.CancelCounter.Inc()
	if m.dispatcher != nil {
		if err := m.dispatcher.Cancel(ctx, app.ID); err != nil {
			log.Printf("remove %s from dispatch queue: %v", app.ID, err)
		}
	}
	detail := reason
	if detail == "" {
		detail = "cancelled by user"
	}
	_ = m.store.AppendEvent(ctx, app.ID, "cancelled", detail)
	return updated, nil
}

func (m *Manager) retry(ctx context.Context, userID string, app models.Application) (models.Application, error) {
	if app.Attempts >= app.MaxAttempts {
		return models.Application{}, models.NewError(models.CodeMaxAttemptsReached, "application %s used all %d attempts", app.ID, app.MaxAttempts)
	}
	if app.Status == models.StatusPending && app.NextRetryAt != nil {
		// A previous retry already reset this entry; report the same state.
		return app, nil
	}
	if app.Status != models.StatusFailed {
		return models.Application{}, models.NewError(models.CodeInvalidAction, "application %s is %s, only failed entries can be retried", app.ID, app.Status)
	}
	nextRetryAt := time.Now().UTC().Add(m.retryDelay)
	updated, changed, err := m.store.RetryApplication(ctx, userID, app.ID, nextRetryAt)
	if err != nil {
		return models.Application{}, fmt.Errorf("retry application: %w", err)
	}
	if !changed {
		// Raced with a worker or another retry; return the fresh row.
		fresh, err := m.store.GetApplication(ctx, userID, app.ID)
		if err != nil {
			return models.Application{}, fmt.Errorf("reload application: %w", err)
		}
		return fresh, nil
	}
	telemetry.RetryCounter.Inc()
	_ = m.store.AppendEvent(ctx, app.ID, "retry_scheduled", fmt.Sprintf("attempt %d of %d", updated.Attempts+1, updated.MaxAttempts))
	return updated, nil
}

func (m *Manager) prioritize(ctx context.Context, userID string, app models.Application) (models.Application, error) {
	if app.Status.Terminal() {
		return models.Application{}, models.NewError(models.CodeInvalidAction, "application %s is %s and can no longer be reprioritized", app.ID, app.Status)
	}
	updated, changed, err := m.store.PrioritizeApplication(ctx, userID, app.ID)
	if err != nil {
		return models.Application{}, fmt.Errorf("prioritize application: %w", err)
	}
	if changed {
		_ = m.store.AppendEvent(ctx, app.ID, "prioritized", string(updated.Priority))
	}
	return updated, nil
}

// ReportStarted records that a worker picked up an entry. Late reports against
// entries that already reached a terminal state are ignored.
func (m *Manager) ReportStarted(ctx context.Context, applicationID string) error {
	moved, err := m.store.MarkProcessing(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if !moved {
		log.Printf("ignoring stale start report for %s", applicationID)
		return nil
	}
	_ = m.store.AppendEvent(ctx, applicationID, "processing", "")
	return nil
}

// OutcomeReport is a worker's terminal report for one attempt.
type OutcomeReport struct {
	ApplicationID string         `json:"application_id"`
	Success       bool           `json:"success"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ErrorType     string         `json:"error_type,omitempty"`
	ResponseData  map[string]any `json:"response_data,omitempty"`
}

// ReportOutcome moves a processing entry to completed or failed. Reports for
// entries no longer in processing (cancelled mid-flight, duplicate report) are
// dropped without effect.
func (m *Manager) ReportOutcome(ctx context.Context, r OutcomeReport) error {
	if r.ApplicationID == "" {
		return models.NewError(models.CodeValidation, "application id is required")
	}
	moved, err := m.store.MarkOutcome(ctx, r.ApplicationID, r.Success, r.ErrorMessage, r.ErrorType, r.ResponseData)
	if err != nil {
		return fmt.Errorf("mark outcome: %w", err)
	}
	if !moved {
		log.Printf("ignoring stale outcome report for %s", r.ApplicationID)
		return nil
	}
	if r.Success {
		_ = m.store.AppendEvent(ctx, r.ApplicationID, "completed", "")
	} else {
		_ = m.store.AppendEvent(ctx, r.ApplicationID, "failed", r.ErrorMessage)
	}
	return nil
}
