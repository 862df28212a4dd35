package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobswipe-core/internal/dispatch"
	"jobswipe-core/internal/models"
)

type fakeStore struct {
	due       []models.Application
	snapshots map[string]models.JobSnapshot
	queued    []string
	events    []string
}

func (f *fakeStore) DueRetries(_ context.Context, _, _ time.Time, _ int) ([]models.Application, error) {
	return f.due, nil
}

func (f *fakeStore) GetSnapshot(_ context.Context, applicationID string) (models.JobSnapshot, error) {
	return f.snapshots[applicationID], nil
}

func (f *fakeStore) MarkQueued(_ context.Context, id string) (bool, error) {
	f.queued = append(f.queued, id)
	return true, nil
}

func (f *fakeStore) AppendEvent(_ context.Context, applicationID, event, _ string) error {
	f.events = append(f.events, applicationID+":"+event)
	return nil
}

type fakeDispatcher struct {
	items     []dispatch.WorkItem
	high      []bool
	reclaimed []string
	failAll   bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, item dispatch.WorkItem, high bool) error {
	if f.failAll {
		return errors.New("redis down")
	}
	f.items = append(f.items, item)
	f.high = append(f.high, high)
	return nil
}

func (f *fakeDispatcher) RequeueExpired(_ context.Context, _ time.Time, _ int64) ([]string, error) {
	return f.reclaimed, nil
}

func (f *fakeDispatcher) ReadyDepth(_ context.Context) (int64, error) {
	return int64(len(f.items)), nil
}

func TestSweepPromotesDueEntries(t *testing.T) {
	st := &fakeStore{
		due: []models.Application{
			{ID: "a1", UserID: "u1", JobID: "j1", Priority: models.PriorityNormal, Attempts: 1},
			{ID: "a2", UserID: "u2", JobID: "j2", Priority: models.PriorityImmediate},
		},
		snapshots: map[string]models.JobSnapshot{
			"a1": {ID: "s1", JobBoard: "greenhouse", ApplyURL: "https://boards.greenhouse.io/x/1"},
			"a2": {ID: "s2", JobBoard: "lever", ApplyURL: "https://jobs.lever.co/y/2"},
		},
	}
	d := &fakeDispatcher{}

	New(st, d, Options{}).sweepOnce(context.Background())

	require.Len(t, d.items, 2)
	assert.Equal(t, "s1", d.items[0].SnapshotID)
	assert.Equal(t, 2, d.items[0].Attempt, "attempt counts the upcoming try")
	assert.False(t, d.high[0])
	assert.True(t, d.high[1], "immediate tier re-enters at the front")
	assert.Equal(t, []string{"a1", "a2"}, st.queued)
	assert.Contains(t, st.events, "a1:dispatched")
}

func TestSweepLeavesEntriesOnDispatchFailure(t *testing.T) {
	st := &fakeStore{
		due:       []models.Application{{ID: "a1", Priority: models.PriorityNormal}},
		snapshots: map[string]models.JobSnapshot{"a1": {ID: "s1"}},
	}
	d := &fakeDispatcher{failAll: true}

	New(st, d, Options{}).sweepOnce(context.Background())

	assert.Empty(t, st.queued, "entries stay pending for the next sweep when dispatch fails")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(&fakeStore{}, &fakeDispatcher{}, Options{Interval: time.Millisecond}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
