package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobswipe-core/internal/dispatch"
	"jobswipe-core/internal/models"
	"jobswipe-core/internal/store"
)

type fakeStore struct {
	counts map[models.Status]int
	recent []store.RecentApplication
}

func (f *fakeStore) CountByStatus(_ context.Context, _ string) (map[models.Status]int, error) {
	// Mirror the real store: every status present, zero-filled.
	out := make(map[models.Status]int, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		out[s] = f.counts[s]
	}
	return out, nil
}

func (f *fakeStore) RecentApplications(_ context.Context, _ string, limit int) ([]store.RecentApplication, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

type fakeQueue struct {
	stats *dispatch.AggregateStats
	err   error
}

func (f *fakeQueue) AggregateStats(_ context.Context) (*dispatch.AggregateStats, error) {
	return f.stats, f.err
}

func TestSummarize(t *testing.T) {
	st := &fakeStore{
		counts: map[models.Status]int{
			models.StatusCompleted: 6,
			models.StatusFailed:    2,
			models.StatusPending:   1,
		},
		recent: []store.RecentApplication{{ID: "a1", Title: "Backend Engineer", Company: "Acme"}},
	}
	q := &fakeQueue{stats: &dispatch.AggregateStats{ReadyTotal: 4, InFlight: 2}}

	s, err := NewAggregator(st, q).Summarize(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 9, s.Total)
	assert.Len(t, s.ByStatus, len(models.AllStatuses), "every status appears even at zero")
	assert.Equal(t, 0, s.ByStatus[models.StatusCancelled])
	require.NotNil(t, s.SuccessRate)
	assert.InDelta(t, 0.75, *s.SuccessRate, 1e-9)
	require.NotNil(t, s.Queue)
	assert.Equal(t, int64(4), s.Queue.ReadyTotal)
	require.Len(t, s.Recent, 1)
}

func TestSummarizeEmptyUser(t *testing.T) {
	s, err := NewAggregator(&fakeStore{}, nil).Summarize(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Total)
	assert.Nil(t, s.SuccessRate, "no outcomes yet means no rate, not zero")
	assert.Nil(t, s.Queue)
}

func TestSummarizeToleratesDispatcherOutage(t *testing.T) {
	st := &fakeStore{counts: map[models.Status]int{models.StatusPending: 3}}
	q := &fakeQueue{err: errors.New("connection refused")}

	s, err := NewAggregator(st, q).Summarize(context.Background(), "user-1")
	require.NoError(t, err, "queue stats are best-effort")
	assert.Equal(t, 3, s.Total)
	assert.Nil(t, s.Queue)
}

func TestSummarizeRequiresUser(t *testing.T) {
	_, err := NewAggregator(&fakeStore{}, nil).Summarize(context.Background(), "")
	assert.True(t, models.IsCode(err, models.CodeValidation))
}
