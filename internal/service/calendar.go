package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/yama-lei/plantodo/internal"
)

// busyDayThreshold is the number of deadlines on one date that marks it
// busy in the monthly statistics.
const busyDayThreshold = 3

// CalendarDay is one cell of the monthly view: the tasks due that day,
// the posts written that day, and the completion counters.
type CalendarDay struct {
	Date      string          `json:"date"`
	Tasks     []internal.Task `json:"tasks"`
	Posts     []CalendarPost  `json:"posts"`
	TaskCount TaskCount       `json:"task_count"`
}

// CalendarPost is the trimmed post shape the calendar exposes; content
// stays out of the month view.
type CalendarPost struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Mood      string    `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
}

type TaskCount struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type MonthCalendar struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}

// DayDetail is the drill-down for a single date: full tasks and posts,
// the plant conversation, and the day's completion statistics.
type DayDetail struct {
	Date       string                         `json:"date"`
	DayOfWeek  string                         `json:"day_of_week"`
	Tasks      []internal.Task                `json:"tasks"`
	Posts      []internal.Post                `json:"posts"`
	Messages   []internal.ConversationMessage `json:"messages"`
	Statistics DayStatistics                  `json:"statistics"`
}

type DayStatistics struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// MonthStatistics aggregates a month of deadlines and posts: totals,
// per-weekday and per-importance task distribution, and the dates with
// enough deadlines to count as busy.
type MonthStatistics struct {
	Year           int            `json:"year"`
	Month          int            `json:"month"`
	TotalTasks     int            `json:"total_tasks"`
	CompletedTasks int            `json:"completed_tasks"`
	CompletionRate float64        `json:"completion_rate"`
	TotalPosts     int            `json:"total_posts"`
	PostsByType    map[string]int `json:"posts_by_type"`
	ByWeekday      map[string]int `json:"by_weekday"`
	ByImportance   map[string]int `json:"by_importance"`
	BusyDays       []string       `json:"busy_days"`
}

func validateYearMonth(year, month int) error {
	if month < 1 || month > 12 || year < 2000 || year > 2100 {
		return internal.ValidationError("invalid year/month %d-%d", year, month)
	}
	return nil
}

// monthBounds returns the inclusive [first instant, last instant] of the
// given month in loc.
func monthBounds(year, month int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// MonthCalendar builds the day-by-day view of a month: tasks grouped by
// deadline date, posts by creation date.
func (s *InsightService) MonthCalendar(ctx context.Context, userID string, year, month int) (*MonthCalendar, error) {
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	loc := s.now().Location()
	start, end := monthBounds(year, month, loc)

	tasks, err := s.tasks.ListTasksByDeadline(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsCreatedInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	tasksByDate := make(map[string][]internal.Task)
	for _, t := range tasks {
		date := t.Deadline.In(loc).Format(dateLayout)
		tasksByDate[date] = append(tasksByDate[date], t)
	}
	postsByDate := make(map[string][]CalendarPost)
	for _, p := range posts {
		date := p.CreatedAt.In(loc).Format(dateLayout)
		postsByDate[date] = append(postsByDate[date], CalendarPost{
			ID:        p.ID,
			Type:      p.Type,
			Mood:      p.Mood,
			CreatedAt: p.CreatedAt,
		})
	}

	cal := &MonthCalendar{Year: year, Month: month}
	daysInMonth := start.AddDate(0, 1, -1).Day()
	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc).Format(dateLayout)
		dayTasks := tasksByDate[date]
		completed := 0
		for _, t := range dayTasks {
			if t.Completed {
				completed++
			}
		}
		cal.Days = append(cal.Days, CalendarDay{
			Date:  date,
			Tasks: dayTasks,
			Posts: postsByDate[date],
			TaskCount: TaskCount{
				Total:     len(dayTasks),
				Completed: completed,
				Pending:   len(dayTasks) - completed,
			},
		})
	}
	return cal, nil
}

// DayDetail collects everything recorded for one date. A day without
// tasks reports a 100% completion rate: nothing was due, nothing slipped.
func (s *InsightService) DayDetail(ctx context.Context, userID string, date time.Time) (*DayDetail, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.Add(24*time.Hour - time.Millisecond)

	tasks, err := s.tasks.ListTasksByDeadline(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsCreatedInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	msgs, err := s.conversations.ListMessagesInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	rate := 100.0
	if len(tasks) > 0 {
		rate = math.Round(float64(completed)/float64(len(tasks))*1000) / 10
	}

	return &DayDetail{
		Date:      start.Format(dateLayout),
		DayOfWeek: start.Weekday().String(),
		Tasks:     tasks,
		Posts:     posts,
		Messages:  msgs,
		Statistics: DayStatistics{
			TotalTasks:     len(tasks),
			CompletedTasks: completed,
			CompletionRate: rate,
		},
	}, nil
}

// MonthStatistics aggregates the month the way the calendar's summary
// panel presents it.
func (s *InsightService) MonthStatistics(ctx context.Context, userID string, year, month int) (*MonthStatistics, error) {
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	loc := s.now().Location()
	start, end := monthBounds(year, month, loc)

	tasks, err := s.tasks.ListTasksByDeadline(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsCreatedInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	stats := &MonthStatistics{
		Year:         year,
		Month:        month,
		TotalTasks:   len(tasks),
		TotalPosts:   len(posts),
		PostsByType:  map[string]int{internal.PostTypeDiary: 0, internal.PostTypeThought: 0},
		ByWeekday:    make(map[string]int, 7),
		ByImportance: map[string]int{"important": 0, "normal": 0},
	}

	perDate := make(map[string]int)
	for _, t := range tasks {
		if t.Completed {
			stats.CompletedTasks++
		}
		deadline := t.Deadline.In(loc)
		perDate[deadline.Format(dateLayout)]++
		stats.ByWeekday[weekdayKey(deadline.Weekday())]++
		if t.Important {
			stats.ByImportance["important"]++
		} else {
			stats.ByImportance["normal"]++
		}
	}
	if len(tasks) > 0 {
		stats.CompletionRate = math.Round(float64(stats.CompletedTasks)/float64(len(tasks))*1000) / 10
	}

	for _, p := range posts {
		stats.PostsByType[p.Type]++
	}

	for date, count := range perDate {
		if count >= busyDayThreshold {
			stats.BusyDays = append(stats.BusyDays, date)
		}
	}
	sort.Strings(stats.BusyDays)

	return stats, nil
}

func weekdayKey(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}
