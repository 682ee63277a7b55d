package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/storage"
)

// TaskStatsLimit caps the embedded per-user daily task counters.
const TaskStatsLimit = 30

// Importance accepts either a JSON boolean or the legacy string
// "true"/"false" some old clients still send, and canonicalizes to bool
// right at the ingress edge.
type Importance bool

func (f *Importance) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Importance(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Importance(s == "true")
		return nil
	}
	return internal.ValidationError("important must be a boolean")
}

type TaskRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	Important   Importance `json:"important"`
}

func ValidateTaskRequest(req *TaskRequest) error {
	if err := validate.Struct(req); err != nil {
		return internal.ValidationError("invalid task request: %v", err)
	}
	return nil
}

type CompletionResult struct {
	Task        *internal.Task    `json:"task"`
	Reward      int               `json:"reward"`
	PlantResult *ExperienceResult `json:"plant,omitempty"`
}

// TaskService owns the task completion flow: marking done, feeding the
// reward into the main plant, and keeping the daily counters current.
type TaskService struct {
	tasks  storage.TaskRepository
	users  storage.UserRepository
	plants *PlantService
	logger internal.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewTaskService(tasks storage.TaskRepository, users storage.UserRepository, plants *PlantService, logger internal.Logger) *TaskService {
	return &TaskService{
		tasks:     tasks,
		users:     users,
		plants:    plants,
		logger:    logger,
		userLocks: make(map[string]*sync.Mutex),
	}
}

func (s *TaskService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

func (s *TaskService) CreateTask(ctx context.Context, userID string, req *TaskRequest) (*internal.Task, error) {
	if err := ValidateTaskRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	task := &internal.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		Important:   bool(req.Important),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.SaveTask(ctx, task); err != nil {
		return nil, err
	}

	if err := s.bumpDailyStat(ctx, userID, now, 1, 0); err != nil {
		s.logger.Warnf("failed to update daily stats for user %s: %v", userID, err)
	}
	return task, nil
}

// CompleteTask marks a task done exactly once, credits the reward to the
// user's main plant, and increments today's completion counter.
func (s *TaskService) CompleteTask(ctx context.Context, userID, taskID string) (*CompletionResult, error) {
	task, err := s.tasks.GetTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task.Completed {
		return nil, internal.ValidationError("task %s is already completed", taskID)
	}

	now := time.Now()
	task.Completed = true
	task.CompletedAt = &now
	task.UpdatedAt = now
	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, err
	}

	reward := CompletionReward(task)
	plantResult, err := s.plants.RewardMainPlant(ctx, userID, reward)
	if err != nil {
		s.logger.Warnf("failed to reward plant for user %s: %v", userID, err)
	}

	if err := s.bumpDailyStat(ctx, userID, now, 0, 1); err != nil {
		s.logger.Warnf("failed to update daily stats for user %s: %v", userID, err)
	}

	return &CompletionResult{Task: task, Reward: reward, PlantResult: plantResult}, nil
}

// defaultSystemTasks is the recurring-habit set seeded per user. Each
// completion rewards the main plant with the listed experience.
var defaultSystemTasks = []struct {
	Title       string
	Description string
	Reward      int
}{
	{"Water your plant", "Give your plant companion some water", 10},
	{"Get some fresh air", "Spend at least 15 minutes outdoors", 15},
	{"Learn something new", "Read, watch or practice for a while", 12},
	{"Tidy your space", "Clear your desk or a corner of the room", 20},
	{"Reach out to a friend", "Send a message or make a call", 18},
}

// SystemTasks lists the user's seeded habit tasks, newest first like the
// regular task listing.
func (s *TaskService) SystemTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	system := make([]internal.Task, 0)
	for _, t := range tasks {
		if t.System {
			system = append(system, t)
		}
	}
	return system, nil
}

// InitSystemTasks seeds the default habit set for a user. Seeding is a
// one-time operation; a second call is rejected rather than duplicating
// the set.
func (s *TaskService) InitSystemTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	existing, err := s.SystemTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, internal.ValidationError("system tasks already initialized")
	}

	now := time.Now()
	seeded := make([]internal.Task, 0, len(defaultSystemTasks))
	for _, def := range defaultSystemTasks {
		task := &internal.Task{
			ID:          uuid.NewString(),
			UserID:      userID,
			Title:       def.Title,
			Description: def.Description,
			System:      true,
			Reward:      def.Reward,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.tasks.SaveTask(ctx, task); err != nil {
			return nil, err
		}
		seeded = append(seeded, *task)
	}
	s.logger.Infof("seeded %d system tasks for user %s", len(seeded), userID)
	return seeded, nil
}

// bumpDailyStat adjusts today's counters under the per-user lock and
// applies the retention cap.
func (s *TaskService) bumpDailyStat(ctx context.Context, userID string, day time.Time, totalDelta, completedDelta int) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	// GetUser shares the stored slice header; copy before mutating so
	// concurrent readers never observe a partial write.
	date := day.Format(dateLayout)
	stats := append([]internal.DailyTaskStat(nil), user.TaskStats...)
	found := false
	for i := range stats {
		if stats[i].Date == date {
			stats[i].Total += totalDelta
			stats[i].Completed += completedDelta
			found = true
			break
		}
	}
	if !found {
		stats = append(stats, internal.DailyTaskStat{Date: date, Total: totalDelta, Completed: completedDelta})
	}

	stats = capStats(stats)
	return s.users.UpdateTaskStats(ctx, userID, stats)
}

func capStats(stats []internal.DailyTaskStat) []internal.DailyTaskStat {
	if len(stats) > TaskStatsLimit {
		sort.Slice(stats, func(i, j int) bool { return stats[i].Date > stats[j].Date })
		stats = stats[:TaskStatsLimit]
	}
	return stats
}

// RebuildDailyStats recomputes the full stat window from stored tasks,
// replacing whatever the incremental path accumulated.
func (s *TaskService) RebuildDailyStats(ctx context.Context, userID string) ([]internal.DailyTaskStat, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*internal.DailyTaskStat)
	for _, t := range tasks {
		date := t.CreatedAt.Format(dateLayout)
		stat, ok := byDate[date]
		if !ok {
			stat = &internal.DailyTaskStat{Date: date}
			byDate[date] = stat
		}
		stat.Total++
		if t.Completed {
			stat.Completed++
		}
	}

	stats := make([]internal.DailyTaskStat, 0, len(byDate))
	for _, stat := range byDate {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date > stats[j].Date })
	if len(stats) > TaskStatsLimit {
		stats = stats[:TaskStatsLimit]
	}

	if err := s.users.UpdateTaskStats(ctx, userID, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
