// Package scheduler runs the recurring daily mood batch.
package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yama-lei/plantodo/internal"
)

// defaultWorkers bounds batch concurrency so the generation provider and
// record store are not flooded.
const defaultWorkers = 5

// MoodUpdater is the slice of the mood service the scheduler needs.
type MoodUpdater interface {
	ComputeDailyMood(ctx context.Context, userID string, date time.Time) (*internal.MoodRecord, error)
}

// UserLister provides the users to score each night.
type UserLister func(ctx context.Context) ([]string, error)

// Scheduler triggers the mood batch once per day at a fixed local time.
// Per-user failures are logged and skipped; the scheduler never retries.
type Scheduler struct {
	At      string // "HH:MM"
	Workers int

	users  UserLister
	moods  MoodUpdater
	logger internal.Logger

	stopChan chan struct{}
	now      func() time.Time
}

func New(at string, users UserLister, moods MoodUpdater, logger internal.Logger) *Scheduler {
	return &Scheduler{
		At:       at,
		Workers:  defaultWorkers,
		users:    users,
		moods:    moods,
		logger:   logger,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start blocks until Stop is called, firing the batch at the configured
// time each day. Run it in its own goroutine.
func (s *Scheduler) Start() {
	for {
		next := s.nextRun(s.now())
		s.logger.Infof("next mood batch scheduled for %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.RunOnce(context.Background())
		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// nextRun resolves the next occurrence of the configured time of day,
// today if it is still ahead, otherwise tomorrow.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	at, err := time.Parse("15:04", s.At)
	if err != nil {
		at, _ = time.Parse("15:04", "01:00")
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunOnce scores every known user for today with bounded concurrency.
// It returns the number of users processed successfully.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.logger.Info("starting daily mood batch")

	userIDs, err := s.users(ctx)
	if err != nil {
		s.logger.Errorf("mood batch aborted, failed to list users: %v", err)
		return 0
	}

	today := s.now()
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	succeeded := make(chan struct{}, len(userIDs))
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if _, err := s.moods.ComputeDailyMood(ctx, userID, today); err != nil {
				// One bad user must not sink the batch.
				s.logger.Errorf("mood update failed for user %s: %v", userID, err)
				return nil
			}
			s.logger.Infof("mood updated for user %s", userID)
			succeeded <- struct{}{}
			return nil
		})
	}
	_ = g.Wait()
	close(succeeded)

	count := len(succeeded)
	s.logger.Infof("daily mood batch finished, %d/%d users updated", count, len(userIDs))
	return count
}
