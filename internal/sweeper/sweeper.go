// Package sweeper promotes pending entries whose retry time arrived and
// reclaims work abandoned by dead workers.
package sweeper

import (
	"context"
	"log"
	"time"

	"jobswipe-core/internal/dispatch"
	"jobswipe-core/internal/models"
	"jobswipe-core/internal/telemetry"
)

// Store is the slice of persistence the sweeper needs.
type Store interface {
	DueRetries(ctx context.Context, now, staleBefore time.Time, limit int) ([]models.Application, error)
	GetSnapshot(ctx context.Context, applicationID string) (models.JobSnapshot, error)
	MarkQueued(ctx context.Context, id string) (bool, error)
	AppendEvent(ctx context.Context, applicationID, event, detail string) error
}

// Dispatcher is the queue side of the sweep.
type Dispatcher interface {
	Dispatch(ctx context.Context, item dispatch.WorkItem, highPriority bool) error
	RequeueExpired(ctx context.Context, now time.Time, limit int64) ([]string, error)
	ReadyDepth(ctx context.Context) (int64, error)
}

// Sweeper runs the periodic promotion loop. One instance per deployment is
// enough; the conditional MarkQueued makes concurrent sweeps safe.
type Sweeper struct {
	store      Store
	dispatcher Dispatcher

	interval   time.Duration
	batchSize  int
	staleAfter time.Duration
}

// Options tune the sweep loop; zero values fall back to defaults.
type Options struct {
	Interval   time.Duration
	BatchSize  int
	StaleAfter time.Duration
}

func New(st Store, d Dispatcher, opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 5 * time.Minute
	}
	return &Sweeper{
		store:      st,
		dispatcher: d,
		interval:   opts.Interval,
		batchSize:  opts.BatchSize,
		staleAfter: opts.StaleAfter,
	}
}

// Run sweeps until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce runs one pass: reclaim expired leases, promote due retries and
// entries stranded by a failed enqueue-time dispatch, refresh the depth gauge.
func (s *Sweeper) sweepOnce(ctx context.Context) {
	now := time.Now().UTC()

	if ids, err := s.dispatcher.RequeueExpired(ctx, now, int64(s.batchSize)); err != nil {
		log.Printf("requeue expired leases: %v", err)
	} else if len(ids) > 0 {
		log.Printf("requeued %d expired leases", len(ids))
	}

	due, err := s.store.DueRetries(ctx, now, now.Add(-s.staleAfter), s.batchSize)
	if err != nil {
		log.Printf("load due retries: %v", err)
		return
	}
	for _, app := range due {
		if err := s.promote(ctx, app); err != nil {
			log.Printf("promote application %s: %v", app.ID, err)
		}
	}

	if depth, err := s.dispatcher.ReadyDepth(ctx); err == nil {
		telemetry.QueueDepthGauge.Set(float64(depth))
	}
}

func (s *Sweeper) promote(ctx context.Context, app models.Application) error {
	snap, err := s.store.GetSnapshot(ctx, app.ID)
	if err != nil {
		return err
	}

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

	high := app.Priority == models.PriorityUrgent || app.Priority == models.PriorityImmediate
	if err := s.dispatcher.Dispatch(ctx, item, high); err != nil {
		telemetry.DispatchFailures.Inc()
		return err
	}

	moved, err := s.store.MarkQueued(ctx, app.ID)
	if err != nil {
		return err
	}
	if moved {
		telemetry.SweepPromotions.Inc()
		_ = s.store.AppendEvent(ctx, app.ID, "dispatched", "promoted by sweeper")
	}
	return nil
}
