// Package stats aggregates per-user application counts with the dispatcher's
// live queue view.
package stats

import (
	"context"
	"fmt"
	"log"

	"jobswipe-core/internal/dispatch"
	"jobswipe-core/internal/models"
	"jobswipe-core/internal/store"
)

// Store is the read surface the aggregator needs from Postgres.
type Store interface {
	CountByStatus(ctx context.Context, userID string) (map[models.Status]int, error)
	RecentApplications(ctx context.Context, userID string, limit int) ([]store.RecentApplication, error)
}

// QueueReader exposes the dispatcher's aggregate counters. Optional: stats
// degrade to database-only numbers when the dispatcher is unreachable.
type QueueReader interface {
	AggregateStats(ctx context.Context) (*dispatch.AggregateStats, error)
}

// Summary is the per-user statistics response.
type Summary struct {
	UserID   string                `json:"user_id"`
	Total    int                   `json:"total"`
	ByStatus map[models.Status]int `json:"by_status"`

	// Completed entries that reported success, as a share of all completed
	// and failed entries. Nil until at least one entry reached an outcome.
	SuccessRate *float64 `json:"success_rate,omitempty"`

	Recent []store.RecentApplication `json:"recent"`

	// Queue is the cluster-wide dispatcher view, absent when Redis is down.
	Queue *dispatch.AggregateStats `json:"queue,omitempty"`
}

// Aggregator composes summaries from the store and, when reachable, the
// dispatcher.
type Aggregator struct {
	store Store
	queue QueueReader
}

func NewAggregator(st Store, q QueueReader) *Aggregator {
	return &Aggregator{store: st, queue: q}
}

// Summarize builds the statistics view for one user. Every status appears in
// ByStatus even at zero. Dispatcher errors are logged, never surfaced.
func (a *Aggregator) Summarize(ctx context.Context, userID string) (Summary, error) {
	if userID == "" {
		return Summary{}, models.NewError(models.CodeValidation, "user id is required")
	}

	counts, err := a.store.CountByStatus(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("count by status: %w", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	recent, err := a.store.RecentApplications(ctx, userID, 10)
	if err != nil {
		return Summary{}, fmt.Errorf("recent applications: %w", err)
	}

	s := Summary{
		UserID:   userID,
		Total:    total,
		ByStatus: counts,
		Recent:   recent,
	}

	if done := counts[models.StatusCompleted] + counts[models.StatusFailed]; done > 0 {
		rate := float64(counts[models.StatusCompleted]) / float64(done)
		s.SuccessRate = &rate
	}

	if a.queue != nil {
		qs, err := a.queue.AggregateStats(ctx)
		if err != nil {
			log.Printf("dispatcher stats unavailable: %v", err)
		} else {
			s.Queue = qs
		}
	}
	return s, nil
}
