package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/ai"
	"github.com/yama-lei/plantodo/internal/storage"
)

type stubGenerator struct {
	out   string
	err   error
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, opts ai.Options) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.out, nil
}

func reposFor(s *storage.FileStorage) *storage.Repositories {
	return &storage.Repositories{Users: s, Tasks: s, Posts: s, Conversations: s, Plants: s}
}

func seedDay(store *storage.FileStorage, day time.Time, completed, total, happyPosts, messages int) {
	ctx := context.Background()
	for i := 0; i < total; i++ {
		task := &internal.Task{
			ID:        fmt.Sprintf("t%d", i),
			UserID:    "u1",
			Title:     fmt.Sprintf("task %d", i),
			CreatedAt: day.Add(time.Duration(i) * time.Minute),
			UpdatedAt: day,
		}
		if i < completed {
			task.Completed = true
			done := day.Add(2 * time.Hour)
			task.CompletedAt = &done
		}
		_ = store.SaveTask(ctx, task)
	}
	for i := 0; i < happyPosts; i++ {
		store.AddPost(&internal.Post{
			ID:        fmt.Sprintf("post%d", i),
			UserID:    "u1",
			Content:   "great day",
			Mood:      internal.MoodHappy,
			Type:      internal.PostTypeDiary,
			CreatedAt: day,
			UpdatedAt: day.Add(time.Hour),
		})
	}
	for i := 0; i < messages; i++ {
		store.AddMessage(&internal.ConversationMessage{
			ID:        fmt.Sprintf("msg%d", i),
			UserID:    "u1",
			PlantID:   "p1",
			Sender:    internal.SenderUser,
			Content:   "hello",
			Timestamp: day.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestComputeDailyMood_EmptyDayScoresFloor(t *testing.T) {
	store := newTestStorage(t)
	svc := NewMoodService(reposFor(store), nil, time.Second, internal.NopLogger{})

	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	record, err := svc.ComputeDailyMood(context.Background(), "u1", day)
	assert.NoError(t, err)
	assert.Equal(t, "2025-03-10", record.Date)
	assert.Equal(t, 1, record.Score)
	assert.Equal(t, internal.MoodSourceFallback, record.Details.Source)
}

func TestComputeDailyMood_FullDayScoresCeiling(t *testing.T) {
	store := newTestStorage(t)
	svc := NewMoodService(reposFor(store), nil, time.Second, internal.NopLogger{})

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	// 4/4 tasks done (4.0) + two happy posts (3.0) + six messages (3.0).
	seedDay(store, day, 4, 4, 2, 6)

	record, err := svc.ComputeDailyMood(context.Background(), "u1", day)
	assert.NoError(t, err)
	assert.Equal(t, 10, record.Score)
	assert.Equal(t, 4, record.Details.TaskCount)
	assert.Equal(t, 4, record.Details.CompletedTaskCount)
	assert.Equal(t, 2, record.Details.PostCount)
	assert.Equal(t, 6, record.Details.ConversationCount)
}

func TestComputeDailyMood_AIPath(t *testing.T) {
	store := newTestStorage(t)
	gen := &stubGenerator{out: `Here you go: {"score": 7, "reason": "steady progress"}`}
	svc := NewMoodService(reposFor(store), gen, time.Second, internal.NopLogger{})

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	record, err := svc.ComputeDailyMood(context.Background(), "u1", day)
	assert.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 7, record.Score)
	assert.Equal(t, internal.MoodSourceAI, record.Details.Source)
	assert.Equal(t, "steady progress", record.Details.Analysis)
}

func TestComputeDailyMood_AIFailureFallsBack(t *testing.T) {
	store := newTestStorage(t)
	gen := &stubGenerator{err: internal.UpstreamError("provider down", nil)}
	svc := NewMoodService(reposFor(store), gen, time.Second, internal.NopLogger{})

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	seedDay(store, day, 1, 2, 0, 0)

	record, err := svc.ComputeDailyMood(context.Background(), "u1", day)
	assert.NoError(t, err)
	assert.Equal(t, internal.MoodSourceFallback, record.Details.Source)
	assert.Equal(t, 2, record.Score)
}

func TestComputeDailyMood_MalformedAIResponseFallsBack(t *testing.T) {
	store := newTestStorage(t)
	gen := &stubGenerator{out: "I had a wonderful time scoring your day"}
	svc := NewMoodService(reposFor(store), gen, time.Second, internal.NopLogger{})

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	record, err := svc.ComputeDailyMood(context.Background(), "u1", day)
	assert.NoError(t, err)
	assert.Equal(t, internal.MoodSourceFallback, record.Details.Source)
}

func TestComputeDailyMood_UnknownUser(t *testing.T) {
	store := newTestStorage(t)
	svc := NewMoodService(reposFor(store), nil, time.Second, internal.NopLogger{})

	_, err := svc.ComputeDailyMood(context.Background(), "ghost", time.Now())
	assert.Error(t, err)
	assert.Equal(t, internal.KindNotFound, internal.KindOf(err))
}

func TestMoodHistory_ReplacesSameDayAndCaps(t *testing.T) {
	store := newTestStorage(t)
	svc := NewMoodService(reposFor(store), nil, time.Second, internal.NopLogger{})
	ctx := context.Background()

	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MoodHistoryLimit+5; i++ {
		_, err := svc.ComputeDailyMood(ctx, "u1", day.AddDate(0, 0, i))
		assert.NoError(t, err)
	}
	// Recomputing an existing day replaces its record, not appends.
	_, err := svc.ComputeDailyMood(ctx, "u1", day.AddDate(0, 0, MoodHistoryLimit+4))
	assert.NoError(t, err)

	history, err := svc.MoodHistory(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, history, MoodHistoryLimit)
	// Newest first, oldest entries evicted.
	assert.Equal(t, "2025-02-04", history[0].Date)
	assert.Equal(t, "2025-01-06", history[len(history)-1].Date)
}

func TestMoodHistory_ConcurrentReadersAndWriters(t *testing.T) {
	store := newTestStorage(t)
	svc := NewMoodService(reposFor(store), nil, time.Second, internal.NopLogger{})
	ctx := context.Background()

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.ComputeDailyMood(ctx, "u1", day)
	assert.NoError(t, err)

	// Writers upserting records must never tear the history a concurrent
	// reader is copying.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_, _ = svc.ComputeDailyMood(ctx, "u1", day.AddDate(0, 0, i%3))
		}
	}()
	for i := 0; i < 50; i++ {
		history, err := svc.MoodHistory(ctx, "u1")
		assert.NoError(t, err)
		for _, rec := range history {
			assert.NotEmpty(t, rec.Date)
		}
	}
	<-done
}

func TestFallbackMoodScore_PostMoodAverage(t *testing.T) {
	posts := []internal.Post{
		{Mood: internal.MoodHappy},
		{Mood: internal.MoodSad},
	}
	score, breakdown := fallbackMoodScore(nil, posts, nil)
	// happy=3, sad=1 averages to 2.
	assert.Equal(t, 2.0, breakdown.postScore)
	assert.Equal(t, 2, score)
}

func TestFallbackMoodScore_ConversationCap(t *testing.T) {
	msgs := make([]internal.ConversationMessage, 20)
	_, breakdown := fallbackMoodScore(nil, nil, msgs)
	assert.Equal(t, 3.0, breakdown.conversationScore)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 1, clampScore(-4))
	assert.Equal(t, 1, clampScore(0))
	assert.Equal(t, 5, clampScore(5))
	assert.Equal(t, 10, clampScore(42))
}
