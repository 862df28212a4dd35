package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"jobswipe-core/internal/models"
)

const applicationColumns = `
	id, user_id, job_id, status, priority, attempts, max_attempts, snapshot_id,
	resume_override, cover_letter, automation_config, scheduled_at, started_at,
	completed_at, next_retry_at, success, error_message, error_type, response_data,
	created_at, updated_at`

// CreateApplicationParams carries everything the enqueue transaction persists.
type CreateApplicationParams struct {
	Application models.Application
	Snapshot    models.JobSnapshot
	Swipe       models.UserJobSwipe
	Source      models.EnqueueSource
}

// CreateApplication runs the atomic enqueue transaction: swipe upsert,
// application insert, snapshot insert, audit event. All steps commit together
// or roll back together. The partial unique index turns a concurrent enqueue
// for the same (user, job) into ErrDuplicate.
func (s *Store) CreateApplication(ctx context.Context, p CreateApplicationParams) (models.Application, error) {
	app := p.Application
	configJSON, err := json.Marshal(nonNilMap(app.AutomationConfig))
	if err != nil {
		return models.Application{}, fmt.Errorf("marshal automation config: %w", err)
	}
	sourceJSON, err := json.Marshal(p.Source)
	if err != nil {
		return models.Application{}, fmt.Errorf("marshal enqueue source: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Application{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // safe no-op on commit

	_, err = tx.Exec(ctx, `
		INSERT INTO user_job_swipes (user_id, job_id, direction, swiped_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, job_id) DO UPDATE
			SET direction = EXCLUDED.direction, swiped_at = EXCLUDED.swiped_at
	`, p.Swipe.UserID, p.Swipe.JobID, p.Swipe.Direction, p.Swipe.SwipedAt)
	if err != nil {
		return models.Application{}, fmt.Errorf("upsert swipe: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO applications
			(id, user_id, job_id, status, priority, attempts, max_attempts, snapshot_id,
			 resume_override, cover_letter, automation_config, source, scheduled_at,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`, app.ID, app.UserID, app.JobID, app.Status, app.Priority, app.MaxAttempts,
		p.Snapshot.ID, app.ResumeOverride, app.CoverLetter, configJSON, sourceJSON,
		app.ScheduledAt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Application{}, ErrDuplicate
		}
		return models.Application{}, fmt.Errorf("insert application: %w", err)
	}

	if err := insertSnapshot(ctx, tx, p.Snapshot); err != nil {
		return models.Application{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO application_events (application_id, event, detail, ts)
		VALUES ($1, 'enqueued', $2, $3)
	`, app.ID, fmt.Sprintf("priority=%s job=%s", app.Priority, app.JobID), now); err != nil {
		return models.Application{}, fmt.Errorf("insert enqueue event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Application{}, fmt.Errorf("commit: %w", err)
	}

	app.SnapshotID = p.Snapshot.ID
	app.CreatedAt = now
	app.UpdatedAt = now
	return app, nil
}

func insertSnapshot(ctx context.Context, tx pgx.Tx, snap models.JobSnapshot) error {
	tagsJSON, err := json.Marshal(nonNilSlice(snap.Tags))
	if err != nil {
		return fmt.Errorf("marshal snapshot tags: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO job_snapshots
			(id, application_id, job_id, title, description, apply_url, job_board,
			 location, remote_type, salary_min, salary_max, currency, job_type,
			 category, tags, source, company_id, company_name, company_domain,
			 company_logo_url, company_website, schema_id, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23)
	`, snap.ID, snap.ApplicationID, snap.JobID, snap.Title, snap.Description,
		snap.ApplyURL, snap.JobBoard, snap.Location, snap.RemoteType, snap.SalaryMin,
		snap.SalaryMax, snap.Currency, snap.JobType, snap.Category, tagsJSON,
		snap.Source, snap.CompanyID, snap.CompanyName, snap.CompanyDomain,
		snap.CompanyLogoURL, snap.CompanyWebsite, emptyToNilStr(snap.SchemaID), snap.CapturedAt)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// HasActiveApplication reports whether an entry in a non-terminal,
// pre-completion status exists for the pair.
func (s *Store) HasActiveApplication(ctx context.Context, userID, jobID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM applications
			WHERE user_id = $1 AND job_id = $2 AND status IN ('pending', 'queued', 'processing')
		)
	`, userID, jobID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active application: %w", err)
	}
	return exists, nil
}

// GetApplication fetches one entry scoped to its owner. A correct-guess id for
// another user's entry comes back as ErrNotFound.
func (s *Store) GetApplication(ctx context.Context, userID, id string) (models.Application, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+applicationColumns+`
		FROM applications WHERE id = $1 AND user_id = $2
	`, id, userID)
	return scanApplication(row)
}

// ListFilter narrows and pages a user's application list.
type ListFilter struct {
	Status models.Status
	Limit  int
	Offset int
}

// ListApplications returns a user's entries newest-first.
func (s *Store) ListApplications(ctx context.Context, userID string, f ListFilter) ([]models.Application, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1`
	args := []any{userID}
	if f.Status != "" {
		query += ` AND status = $2`
		args = append(args, f.Status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// GetSnapshot fetches the immutable snapshot bound to one application.
func (s *Store) GetSnapshot(ctx context.Context, applicationID string) (models.JobSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, application_id, job_id, title, description, apply_url, job_board,
		       location, remote_type, salary_min, salary_max, currency, job_type,
		       category, tags, source, company_id, company_name, company_domain,
		       company_logo_url, company_website, schema_id, captured_at
		FROM job_snapshots WHERE application_id = $1
	`, applicationID)

	var (
		snap     models.JobSnapshot
		salMin   pgtype.Int4
		salMax   pgtype.Int4
		schemaID pgtype.Text
		tagsJSON []byte
	)
	err := row.Scan(&snap.ID, &snap.ApplicationID, &snap.JobID, &snap.Title, &snap.Description,
		&snap.ApplyURL, &snap.JobBoard, &snap.Location, &snap.RemoteType, &salMin, &salMax,
		&snap.Currency, &snap.JobType, &snap.Category, &tagsJSON, &snap.Source,
		&snap.CompanyID, &snap.CompanyName, &snap.CompanyDomain, &snap.CompanyLogoURL,
		&snap.CompanyWebsite, &schemaID, &snap.CapturedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.JobSnapshot{}, ErrNotFound
	}
	if err != nil {
		return models.JobSnapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	snap.SalaryMin = intPtr(salMin)
	snap.SalaryMax = intPtr(salMax)
	if schemaID.Valid {
		snap.SchemaID = schemaID.String
	}
	if err := json.Unmarshal(tagsJSON, &snap.Tags); err != nil {
		return models.JobSnapshot{}, fmt.Errorf("unmarshal snapshot tags: %w", err)
	}
	return snap, nil
}

// CancelApplication moves a non-terminal entry to cancelled. Returns the fresh
// row and whether this call changed anything; cancelling an already-cancelled
// entry is a no-op that leaves updated_at untouched.
func (s *Store) CancelApplication(ctx context.Context, userID, id string) (models.Application, bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET status = 'cancelled', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status NOT IN ('completed', 'cancelled')
	`, id, userID)
	if err != nil {
		return models.Application{}, false, fmt.Errorf("cancel application: %w", err)
	}
	app, err := s.GetApplication(ctx, userID, id)
	if err != nil {
		return models.Application{}, false, err
	}
	return app, tag.RowsAffected() > 0, nil
}

// RetryApplication re-enters a failed entry into the pipeline, clearing prior
// error fields and scheduling the next attempt. No-ops (rows=false) when the
// entry is not in failed status.
func (s *Store) RetryApplication(ctx context.Context, userID, id string, nextRetryAt time.Time) (models.Application, bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET status = 'pending', next_retry_at = $3, success = NULL,
		    error_message = NULL, error_type = NULL, completed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'failed' AND attempts < max_attempts
	`, id, userID, nextRetryAt)
	if err != nil {
		return models.Application{}, false, fmt.Errorf("retry application: %w", err)
	}
	app, err := s.GetApplication(ctx, userID, id)
	if err != nil {
		return models.Application{}, false, err
	}
	return app, tag.RowsAffected() > 0, nil
}

// PrioritizeApplication forces the priority tier to high for an active entry.
func (s *Store) PrioritizeApplication(ctx context.Context, userID, id string) (models.Application, bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET priority = 'high', updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status IN ('pending', 'queued', 'processing')
	`, id, userID)
	if err != nil {
		return models.Application{}, false, fmt.Errorf("prioritize application: %w", err)
	}
	app, err := s.GetApplication(ctx, userID, id)
	if err != nil {
		return models.Application{}, false, err
	}
	return app, tag.RowsAffected() > 0, nil
}

// MarkQueued confirms the dispatch handoff. Only a pending entry moves; a
// cancellation racing the dispatch wins.
func (s *Store) MarkQueued(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET status = 'queued', next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark queued: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkProcessing records that a worker picked the entry up, counting the
// attempt.
func (s *Store) MarkProcessing(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET status = 'processing', started_at = NOW(), attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'queued')
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark processing: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkOutcome applies a worker-reported result. Guarded on processing status so
// a late report never overwrites a terminal cancellation.
func (s *Store) MarkOutcome(ctx context.Context, id string, success bool, errMsg, errType string, responseData map[string]any) (bool, error) {
	status := models.StatusCompleted
	if !success {
		status = models.StatusFailed
	}
	respJSON, err := json.Marshal(nonNilAnyMap(responseData))
	if err != nil {
		return false, fmt.Errorf("marshal response data: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET status = $2, success = $3, error_message = NULLIF($4, ''),
		    error_type = NULLIF($5, ''), response_data = $6,
		    completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, id, status, success, errMsg, errType, respJSON)
	if err != nil {
		return false, fmt.Errorf("mark outcome: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AppendEvent adds an audit row.
func (s *Store) AppendEvent(ctx context.Context, applicationID, event, detail string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO application_events (application_id, event, detail, ts)
		VALUES ($1, $2, $3, NOW())
	`, applicationID, event, detail)
	return err
}

// ListEvents returns an application's audit trail oldest-first.
func (s *Store) ListEvents(ctx context.Context, applicationID string) ([]models.ApplicationEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT application_id, event, detail, ts
		FROM application_events WHERE application_id = $1 ORDER BY ts ASC
	`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.ApplicationEvent
	for rows.Next() {
		var ev models.ApplicationEvent
		if err := rows.Scan(&ev.ApplicationID, &ev.Event, &ev.Detail, &ev.Recorded); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountByStatus returns per-status counts for one user. Statuses with no rows
// come back as zero, never omitted.
func (s *Store) CountByStatus(ctx context.Context, userID string) (map[models.Status]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM applications WHERE user_id = $1 GROUP BY status
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var st models.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

// RecentApplication is the compact listing row the stats view renders.
type RecentApplication struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Company   string        `json:"company"`
	Status    models.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// RecentApplications returns a user's newest entries with snapshot display
// fields.
func (s *Store) RecentApplications(ctx context.Context, userID string, limit int) ([]RecentApplication, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, s.title, s.company_name, a.status, a.created_at
		FROM applications a
		JOIN job_snapshots s ON s.application_id = a.id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent applications: %w", err)
	}
	defer rows.Close()

	var recent []RecentApplication
	for rows.Next() {
		var r RecentApplication
		if err := rows.Scan(&r.ID, &r.Title, &r.Company, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent application: %w", err)
		}
		recent = append(recent, r)
	}
	return recent, rows.Err()
}

// DueRetries returns pending entries whose scheduled retry has come due, or
// that were stranded pending by a dispatch failure.
func (s *Store) DueRetries(ctx context.Context, now, staleBefore time.Time, limit int) ([]models.Application, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE status = 'pending'
		  AND ((next_retry_at IS NOT NULL AND next_retry_at <= $1)
		    OR (next_retry_at IS NULL AND updated_at <= $2))
		ORDER BY next_retry_at NULLS FIRST
		LIMIT $3
	`, now, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("due retries: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func scanApplication(row pgx.Row) (models.Application, error) {
	var (
		app        models.Application
		resume     pgtype.Text
		cover      pgtype.Text
		configJSON []byte
		started    pgtype.Timestamptz
		completed  pgtype.Timestamptz
		nextRetry  pgtype.Timestamptz
		success    pgtype.Bool
		errMsg     pgtype.Text
		errType    pgtype.Text
		respJSON   []byte
	)
	err := row.Scan(&app.ID, &app.UserID, &app.JobID, &app.Status, &app.Priority,
		&app.Attempts, &app.MaxAttempts, &app.SnapshotID, &resume, &cover, &configJSON,
		&app.ScheduledAt, &started, &completed, &nextRetry, &success, &errMsg, &errType,
		&respJSON, &app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Application{}, ErrNotFound
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("scan application: %w", err)
	}

	app.ResumeOverride = textPtr(resume)
	app.CoverLetter = textPtr(cover)
	app.ErrorMessage = textPtr(errMsg)
	app.ErrorType = textPtr(errType)
	app.StartedAt = timePtr(started)
	app.CompletedAt = timePtr(completed)
	app.NextRetryAt = timePtr(nextRetry)
	if success.Valid {
		v := success.Bool
		app.Success = &v
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &app.AutomationConfig); err != nil {
			return models.Application{}, fmt.Errorf("unmarshal automation config: %w", err)
		}
	}
	if len(respJSON) > 0 {
		if err := json.Unmarshal(respJSON, &app.ResponseData); err != nil {
			return models.Application{}, fmt.Errorf("unmarshal response data: %w", err)
		}
	}
	return app, nil
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if t.Valid {
		v := t.Time
		return &v
	}
	return nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyToNilStr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
