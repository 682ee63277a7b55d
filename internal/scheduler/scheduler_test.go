package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yama-lei/plantodo/internal"
)

type recordingUpdater struct {
	mu      sync.Mutex
	seen    []string
	failFor map[string]bool
}

func (u *recordingUpdater) ComputeDailyMood(ctx context.Context, userID string, date time.Time) (*internal.MoodRecord, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seen = append(u.seen, userID)
	if u.failFor[userID] {
		return nil, internal.PersistenceError("write failed", nil)
	}
	return &internal.MoodRecord{Date: date.Format("2006-01-02"), Score: 5}, nil
}

func staticUsers(ids ...string) UserLister {
	return func(ctx context.Context) ([]string, error) {
		return ids, nil
	}
}

func TestRunOnce_ProcessesAllUsers(t *testing.T) {
	updater := &recordingUpdater{}
	s := New("01:00", staticUsers("u1", "u2", "u3"), updater, internal.NopLogger{})

	count := s.RunOnce(context.Background())
	assert.Equal(t, 3, count)
	assert.Len(t, updater.seen, 3)
}

func TestRunOnce_FailureDoesNotSinkBatch(t *testing.T) {
	updater := &recordingUpdater{failFor: map[string]bool{"u2": true}}
	s := New("01:00", staticUsers("u1", "u2", "u3"), updater, internal.NopLogger{})

	count := s.RunOnce(context.Background())
	assert.Equal(t, 2, count)
	assert.Len(t, updater.seen, 3)
}

func TestRunOnce_ListFailureAborts(t *testing.T) {
	updater := &recordingUpdater{}
	lister := func(ctx context.Context) ([]string, error) {
		return nil, internal.PersistenceError("store unavailable", nil)
	}
	s := New("01:00", lister, updater, internal.NopLogger{})

	count := s.RunOnce(context.Background())
	assert.Equal(t, 0, count)
	assert.Empty(t, updater.seen)
}

func TestNextRun_TodayOrTomorrow(t *testing.T) {
	s := New("01:00", staticUsers(), &recordingUpdater{}, internal.NopLogger{})

	beforeFiring := time.Date(2025, 3, 12, 0, 30, 0, 0, time.UTC)
	next := s.nextRun(beforeFiring)
	assert.Equal(t, time.Date(2025, 3, 12, 1, 0, 0, 0, time.UTC), next)

	afterFiring := time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)
	next = s.nextRun(afterFiring)
	assert.Equal(t, time.Date(2025, 3, 13, 1, 0, 0, 0, time.UTC), next)
}

func TestNextRun_BadScheduleFallsBack(t *testing.T) {
	s := New("25:99", staticUsers(), &recordingUpdater{}, internal.NopLogger{})

	now := time.Date(2025, 3, 12, 0, 30, 0, 0, time.UTC)
	next := s.nextRun(now)
	assert.Equal(t, time.Date(2025, 3, 12, 1, 0, 0, 0, time.UTC), next)
}

func TestStartAndStop(t *testing.T) {
	updater := &recordingUpdater{}
	s := New("01:00", staticUsers("u1"), updater, internal.NopLogger{})

	done := make(chan struct{})
	go func() {
		s.Start()
		close(done)
	}()

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
