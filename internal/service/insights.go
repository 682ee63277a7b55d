package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/ai"
	"github.com/yama-lei/plantodo/internal/storage"
)

// Aggregation periods accepted by SummarizeTasks.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// analysisTaskLimit bounds how many recent tasks AnalyzeWithAI reads.
const analysisTaskLimit = 50

// promptTitleLimit caps the task titles listed in the analysis prompt.
const promptTitleLimit = 5

type TaskSummary struct {
	Period                string           `json:"period"`
	CompletedTasks        int              `json:"completed_tasks"`
	PendingTasks          int              `json:"pending_tasks"`
	CompletionRate        float64          `json:"completion_rate"`
	AverageCompletionTime string           `json:"average_completion_time"`
	MostProductiveDay     string           `json:"most_productive_day"`
	Insights              []string         `json:"insights"`
	Recommendations       []Recommendation `json:"recommendations"`
}

type Recommendation struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type WeekSummary struct {
	WeekStart         string       `json:"week_start"`
	WeekEnd           string       `json:"week_end"`
	ProductivityScore int          `json:"productivity_score"`
	TasksCompleted    int          `json:"tasks_completed"`
	PostsWritten      int          `json:"posts_written"`
	ExperienceGained  int          `json:"experience_gained"`
	Insights          []string     `json:"insights"`
	NextWeekPlan      NextWeekPlan `json:"next_week_plan"`
}

type NextWeekPlan struct {
	SuggestedFocus    string             `json:"suggested_focus"`
	UpcomingDeadlines []UpcomingDeadline `json:"upcoming_deadlines"`
}

type UpcomingDeadline struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Deadline time.Time `json:"deadline"`
}

type AnalysisReport struct {
	Analysis       Analysis `json:"analysis"`
	CompletedTasks int      `json:"completed_tasks"`
	PendingTasks   int      `json:"pending_tasks"`
	CompletionRate int      `json:"completion_rate"`
	Source         string   `json:"source"`
}

// InsightService derives productivity summaries from a user's tasks and
// posts. Every entry point is read-only with respect to the record store.
type InsightService struct {
	tasks         storage.TaskRepository
	posts         storage.PostRepository
	plants        storage.PlantRepository
	users         storage.UserRepository
	conversations storage.ConversationRepository
	gen           ai.TextGenerator // typically an *ai.Retryer; nil disables the AI path
	logger        internal.Logger
	now           func() time.Time
}

func NewInsightService(repos *storage.Repositories, gen ai.TextGenerator, logger internal.Logger) *InsightService {
	return &InsightService{
		tasks:         repos.Tasks,
		posts:         repos.Posts,
		plants:        repos.Plants,
		users:         repos.Users,
		conversations: repos.Conversations,
		gen:           gen,
		logger:        logger,
		now:           time.Now,
	}
}

// periodStart resolves the inclusive start of an aggregation window.
// Weeks start on Monday.
func periodStart(now time.Time, period string) (time.Time, error) {
	switch period {
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	case PeriodWeek:
		return weekStart(now), nil
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	default:
		return time.Time{}, internal.ValidationError("invalid period %q, expected day, week or month", period)
	}
}

// weekStart returns Monday 00:00:00 of the week containing t.
func weekStart(t time.Time) time.Time {
	daysBack := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysBack)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

func (s *InsightService) SummarizeTasks(ctx context.Context, userID, period string) (*TaskSummary, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	start, err := periodStart(now, period)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListTasksInRange(ctx, userID, start, now)
	if err != nil {
		return nil, err
	}

	var completed, pending []internal.Task
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}

	rate := 0.0
	if len(tasks) > 0 {
		rate = math.Round(float64(len(completed))/float64(len(tasks))*1000) / 10
	}

	summary := &TaskSummary{
		Period:                period,
		CompletedTasks:        len(completed),
		PendingTasks:          len(pending),
		CompletionRate:        rate,
		AverageCompletionTime: averageCompletionTime(completed),
		MostProductiveDay:     mostProductiveDay(completed),
	}

	if len(completed) > 0 {
		summary.Insights = append(summary.Insights, fmt.Sprintf("You completed %d tasks this %s.", len(completed), period))
	}
	if summary.MostProductiveDay != "no data" {
		summary.Insights = append(summary.Insights, fmt.Sprintf("%s was your most productive day.", summary.MostProductiveDay))
	}
	if len(pending) > 0 {
		summary.Insights = append(summary.Insights, fmt.Sprintf("You still have %d tasks to finish.", len(pending)))
	}

	summary.Recommendations = []Recommendation{{
		Type:    "timeManagement",
		Content: "Schedule demanding tasks between 10:00 and 12:00, when most people are at their sharpest.",
	}}
	if rate < 50 {
		summary.Recommendations = append(summary.Recommendations, Recommendation{
			Type:    "productivity",
			Content: "Split large tasks into smaller ones; they are easier to start and finish.",
		})
	}

	return summary, nil
}

// averageCompletionTime reports the mean time from creation to
// completion, only over tasks carrying both timestamps.
func averageCompletionTime(completed []internal.Task) string {
	var total time.Duration
	counted := 0
	for _, t := range completed {
		if t.CompletedAt != nil {
			total += t.CompletedAt.Sub(t.CreatedAt)
			counted++
		}
	}
	if counted == 0 {
		return "unknown"
	}

	avgMinutes := total.Minutes() / float64(counted)
	switch {
	case avgMinutes < 60:
		return fmt.Sprintf("%d minutes", int(math.Round(avgMinutes)))
	case avgMinutes < 60*24:
		return fmt.Sprintf("%d hours", int(math.Round(avgMinutes/60)))
	default:
		return fmt.Sprintf("%.1f days", avgMinutes/(60*24))
	}
}

// mostProductiveDay finds the weekday with the most completions; ties
// keep the first day encountered.
func mostProductiveDay(completed []internal.Task) string {
	byDate := make(map[string]int)
	var order []string
	for _, t := range completed {
		if t.CompletedAt == nil {
			continue
		}
		date := t.CompletedAt.Format(dateLayout)
		if _, seen := byDate[date]; !seen {
			order = append(order, date)
		}
		byDate[date]++
	}

	best := ""
	max := 0
	for _, date := range order {
		if byDate[date] > max {
			max = byDate[date]
			best = date
		}
	}
	if best == "" {
		return "no data"
	}
	day, _ := time.Parse(dateLayout, best)
	return day.Weekday().String()
}

func (s *InsightService) SummarizeWeek(ctx context.Context, userID string, date time.Time) (*WeekSummary, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	start := weekStart(date)
	end := start.AddDate(0, 0, 6)
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), end.Location())

	tasks, err := s.tasks.ListTasksInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	// The week counts posts written in the window; edits to older posts
	// belong to the mood pipeline's UpdatedAt view, not here.
	posts, err := s.posts.ListPostsCreatedInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	experienceGained := completed * 10

	score := 0
	if len(tasks) > 0 {
		rate := float64(completed) / float64(len(tasks))
		score += int(math.Round(rate * 60))
		score += int(math.Min(float64(len(posts))*5, 20))
		score += int(math.Min(float64(experienceGained)/5, 20))
	}

	summary := &WeekSummary{
		WeekStart:         start.Format(dateLayout),
		WeekEnd:           end.Format(dateLayout),
		ProductivityScore: score,
		TasksCompleted:    completed,
		PostsWritten:      len(posts),
		ExperienceGained:  experienceGained,
	}

	if completed > 0 {
		summary.Insights = append(summary.Insights, fmt.Sprintf("You completed %d tasks this week.", completed))
	}
	if len(posts) > 0 {
		summary.Insights = append(summary.Insights, fmt.Sprintf("You captured %d moments from your life.", len(posts)))
	}
	if plant, err := s.plants.GetMainPlant(ctx, userID); err == nil {
		summary.Insights = append(summary.Insights, fmt.Sprintf("Your plant %q keeps on growing.", plant.Name))
	}

	nextStart := start.AddDate(0, 0, 7)
	nextEnd := nextStart.AddDate(0, 0, 6)
	nextEnd = time.Date(nextEnd.Year(), nextEnd.Month(), nextEnd.Day(), 23, 59, 59, int(999*time.Millisecond), nextEnd.Location())
	upcoming, err := s.tasks.ListTasksDueInRange(ctx, userID, nextStart, nextEnd)
	if err != nil {
		return nil, err
	}

	plan := NextWeekPlan{SuggestedFocus: "Plan something new to learn"}
	if len(upcoming) > 0 {
		plan.SuggestedFocus = "Watch the tasks with imminent deadlines"
	}
	for _, t := range upcoming {
		plan.UpcomingDeadlines = append(plan.UpcomingDeadlines, UpcomingDeadline{ID: t.ID, Title: t.Title, Deadline: *t.Deadline})
	}
	summary.NextWeekPlan = plan

	return summary, nil
}

// AnalyzeWithAI produces a four-section productivity analysis, preferring
// the generation provider (with the retryer's bounded backoff) and
// degrading to the deterministic template when it is exhausted.
func (s *InsightService) AnalyzeWithAI(ctx context.Context, userID string) (*AnalysisReport, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tasks) > analysisTaskLimit {
		tasks = tasks[:analysisTaskLimit]
	}

	var completedTitles, pendingTitles []string
	data := AnalysisData{}
	for _, t := range tasks {
		if t.Completed {
			data.CompletedTasksCount++
			if len(completedTitles) < promptTitleLimit {
				completedTitles = append(completedTitles, t.Title)
			}
		} else {
			data.PendingTasksCount++
			if len(pendingTitles) < promptTitleLimit {
				pendingTitles = append(pendingTitles, t.Title)
			}
			if t.Important {
				data.ImportantPendingCount++
			}
		}
	}
	if len(tasks) > 0 {
		data.CompletionRate = int(math.Round(float64(data.CompletedTasksCount) / float64(len(tasks)) * 100))
	}
	if plant, err := s.plants.GetMainPlant(ctx, userID); err == nil {
		data.MainPlantName = plant.Name
	}

	report := &AnalysisReport{
		CompletedTasks: data.CompletedTasksCount,
		PendingTasks:   data.PendingTasksCount,
		CompletionRate: data.CompletionRate,
	}

	if s.gen != nil {
		prompt := buildAnalysisPrompt(data, completedTitles, pendingTitles)
		text, err := s.gen.Generate(ctx, prompt, ai.Options{MaxTokens: 500})
		if err == nil {
			report.Analysis = ParseAnalysis(text)
			report.Source = internal.MoodSourceAI
			return report, nil
		}
		s.logger.Warnf("AI analysis unavailable, using fallback: %v", err)
	}

	report.Analysis = FallbackAnalysis(data)
	report.Source = internal.MoodSourceFallback
	return report, nil
}

func buildAnalysisPrompt(data AnalysisData, completedTitles, pendingTitles []string) string {
	plantName := data.MainPlantName
	if plantName == "" {
		plantName = "their plant"
	}
	var b strings.Builder
	b.WriteString("You are the assistant of a task-management app. Analyze the following data and provide a short summary with advice.\n\n")
	fmt.Fprintf(&b, "Completed tasks: %d\n", data.CompletedTasksCount)
	fmt.Fprintf(&b, "Pending tasks: %d\n", data.PendingTasksCount)
	fmt.Fprintf(&b, "Completion rate: %d%%\n", data.CompletionRate)
	fmt.Fprintf(&b, "Important pending tasks: %d\n", data.ImportantPendingCount)
	fmt.Fprintf(&b, "The user's plant companion: %s\n", plantName)
	if len(completedTitles) > 0 {
		fmt.Fprintf(&b, "Recently completed: %s\n", strings.Join(completedTitles, "; "))
	}
	if len(pendingTitles) > 0 {
		fmt.Fprintf(&b, "Still pending: %s\n", strings.Join(pendingTitles, "; "))
	}
	b.WriteString(`
Answer in exactly this format:
Overall assessment: (one short sentence)
Achievements: (what the user has accomplished)
Suggestions: (one or two suggestions)
Next steps: (one concrete action)
`)
	return b.String()
}
