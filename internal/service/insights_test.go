package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yama-lei/plantodo/internal"
)

func TestWeekStart_AlwaysMonday(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		// Wednesday maps back to the preceding Monday.
		{time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		// Monday maps to itself at midnight.
		{time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		// Sunday belongs to the week that started six days earlier.
		{time.Date(2025, 3, 16, 1, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got := weekStart(c.in)
		assert.Equal(t, c.want, got)
		assert.Equal(t, time.Monday, got.Weekday())
	}
}

func TestPeriodStart_InvalidPeriod(t *testing.T) {
	_, err := periodStart(time.Now(), "fortnight")
	assert.Error(t, err)
	assert.Equal(t, internal.KindValidation, internal.KindOf(err))
}

func TestSummarizeTasks_RatesAndProductiveDay(t *testing.T) {
	store := newTestStorage(t)
	svc := NewInsightService(reposFor(store), nil, internal.NopLogger{})
	// Fix "now" on a Friday so the whole seeded week is in range.
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	mkTask := func(id string, created time.Time, completedAt *time.Time) {
		task := &internal.Task{ID: id, UserID: "u1", Title: id, CreatedAt: created, UpdatedAt: created}
		if completedAt != nil {
			task.Completed = true
			task.CompletedAt = completedAt
		}
		assert.NoError(t, store.SaveTask(ctx, task))
	}

	tue := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	wed := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	doneTue := tue.Add(30 * time.Minute)
	doneWed1 := wed.Add(30 * time.Minute)
	doneWed2 := wed.Add(90 * time.Minute)
	mkTask("t1", tue, &doneTue)
	mkTask("t2", wed, &doneWed1)
	mkTask("t3", wed, &doneWed2)
	mkTask("t4", wed, nil)

	summary, err := svc.SummarizeTasks(ctx, "u1", PeriodWeek)
	assert.NoError(t, err)
	assert.Equal(t, 3, summary.CompletedTasks)
	assert.Equal(t, 1, summary.PendingTasks)
	assert.Equal(t, 75.0, summary.CompletionRate)
	// (30 + 30 + 90) / 3 = 50 minutes.
	assert.Equal(t, "50 minutes", summary.AverageCompletionTime)
	assert.Equal(t, "Wednesday", summary.MostProductiveDay)
	assert.NotEmpty(t, summary.Insights)
	// Rate above 50 keeps the single base recommendation.
	assert.Len(t, summary.Recommendations, 1)
}

func TestSummarizeTasks_EmptyPeriod(t *testing.T) {
	store := newTestStorage(t)
	svc := NewInsightService(reposFor(store), nil, internal.NopLogger{})

	summary, err := svc.SummarizeTasks(context.Background(), "u1", PeriodDay)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, summary.CompletionRate)
	assert.Equal(t, "unknown", summary.AverageCompletionTime)
	assert.Equal(t, "no data", summary.MostProductiveDay)
	// Rate 0 adds the productivity recommendation.
	assert.Len(t, summary.Recommendations, 2)
}

func TestSummarizeWeek_ScoreAndPlan(t *testing.T) {
	store := newTestStorage(t)
	svc := NewInsightService(reposFor(store), nil, internal.NopLogger{})
	ctx := context.Background()

	wed := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	done := wed.Add(time.Hour)
	for i, id := range []string{"t1", "t2", "t3", "t4"} {
		task := &internal.Task{ID: id, UserID: "u1", Title: id, CreatedAt: wed, UpdatedAt: wed}
		if i < 2 {
			task.Completed = true
			task.CompletedAt = &done
		}
		assert.NoError(t, store.SaveTask(ctx, task))
	}
	store.AddPost(&internal.Post{ID: "post1", UserID: "u1", Mood: internal.MoodHappy, Type: internal.PostTypeDiary, CreatedAt: wed, UpdatedAt: wed})

	// One pending task due next week feeds the plan.
	due := time.Date(2025, 3, 18, 12, 0, 0, 0, time.UTC)
	assert.NoError(t, store.SaveTask(ctx, &internal.Task{ID: "t5", UserID: "u1", Title: "ship it", Deadline: &due, CreatedAt: wed, UpdatedAt: wed}))

	summary, err := svc.SummarizeWeek(ctx, "u1", wed)
	assert.NoError(t, err)
	assert.Equal(t, "2025-03-10", summary.WeekStart)
	assert.Equal(t, "2025-03-16", summary.WeekEnd)
	assert.Equal(t, 2, summary.TasksCompleted)
	assert.Equal(t, 1, summary.PostsWritten)
	assert.Equal(t, 20, summary.ExperienceGained)
	// 2/5 completed: 0.4*60=24, posts 5, xp 20/5=4.
	assert.Equal(t, 33, summary.ProductivityScore)
	assert.Equal(t, "Watch the tasks with imminent deadlines", summary.NextWeekPlan.SuggestedFocus)
	assert.Len(t, summary.NextWeekPlan.UpcomingDeadlines, 1)
	assert.Equal(t, "ship it", summary.NextWeekPlan.UpcomingDeadlines[0].Title)
}

func TestSummarizeWeek_CountsPostsByCreationTime(t *testing.T) {
	store := newTestStorage(t)
	svc := NewInsightService(reposFor(store), nil, internal.NopLogger{})
	ctx := context.Background()

	wed := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	// Written this week, edited long after: still part of this week.
	laterEdit := wed.AddDate(0, 1, 0)
	store.AddPost(&internal.Post{ID: "p1", UserID: "u1", Mood: internal.MoodHappy, Type: internal.PostTypeDiary, CreatedAt: wed, UpdatedAt: laterEdit})
	// Written before the week, touched during it: belongs to its own week.
	earlier := wed.AddDate(0, 0, -10)
	store.AddPost(&internal.Post{ID: "p2", UserID: "u1", Mood: internal.MoodNeutral, Type: internal.PostTypeThought, CreatedAt: earlier, UpdatedAt: wed})

	summary, err := svc.SummarizeWeek(ctx, "u1", wed)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.PostsWritten)
}

func TestAnalyzeWithAI_GeneratorSuccess(t *testing.T) {
	store := newTestStorage(t)
	gen := &stubGenerator{out: `Overall assessment: Solid week.
Achievements: You cleared your queue.
Suggestions: Keep the streak alive.
Next steps: Add tomorrow's tasks tonight.`}
	svc := NewInsightService(reposFor(store), gen, internal.NopLogger{})
	ctx := context.Background()

	now := time.Now()
	done := now.Add(time.Hour)
	assert.NoError(t, store.SaveTask(ctx, &internal.Task{ID: "t1", UserID: "u1", Title: "write tests", Completed: true, CreatedAt: now, UpdatedAt: now, CompletedAt: &done}))

	report, err := svc.AnalyzeWithAI(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, internal.MoodSourceAI, report.Source)
	assert.Equal(t, "Solid week.", report.Analysis.Overview)
	assert.Equal(t, 1, report.CompletedTasks)
	assert.Equal(t, 100, report.CompletionRate)
}

func TestAnalyzeWithAI_GeneratorFailureFallsBack(t *testing.T) {
	store := newTestStorage(t)
	gen := &stubGenerator{err: internal.UpstreamError("provider down", nil)}
	svc := NewInsightService(reposFor(store), gen, internal.NopLogger{})
	ctx := context.Background()

	now := time.Now()
	assert.NoError(t, store.SaveTask(ctx, &internal.Task{ID: "t1", UserID: "u1", Title: "water plants", Important: true, CreatedAt: now, UpdatedAt: now}))

	report, err := svc.AnalyzeWithAI(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, internal.MoodSourceFallback, report.Source)
	assert.Equal(t, 1, report.PendingTasks)
	assert.Contains(t, report.Analysis.Suggestions, "important")
}

func TestAnalyzeWithAI_NilGeneratorUsesFallback(t *testing.T) {
	store := newTestStorage(t)
	svc := NewInsightService(reposFor(store), nil, internal.NopLogger{})

	report, err := svc.AnalyzeWithAI(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, internal.MoodSourceFallback, report.Source)
	assert.Contains(t, report.Analysis.Overview, "No task data yet")
}

func TestSummarizeTasks_UnknownUser(t *testing.T) {
	store := newTestStorage(t)
	svc := NewInsightService(reposFor(store), nil, internal.NopLogger{})

	_, err := svc.SummarizeTasks(context.Background(), "ghost", PeriodWeek)
	assert.Error(t, err)
	assert.Equal(t, internal.KindNotFound, internal.KindOf(err))
}
