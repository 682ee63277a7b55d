package storage

import (
	"context"
	"time"

	"github.com/yama-lei/plantodo/internal"
)

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*internal.User, error)
	GetUserByToken(ctx context.Context, token string) (*internal.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)
	// UpdateMoodHistory replaces the user's embedded mood records in one write.
	UpdateMoodHistory(ctx context.Context, userID string, records []internal.MoodRecord) error
	// UpdateTaskStats replaces the user's embedded daily task counters.
	UpdateTaskStats(ctx context.Context, userID string, stats []internal.DailyTaskStat) error
}

type TaskRepository interface {
	SaveTask(ctx context.Context, task *internal.Task) error
	UpdateTask(ctx context.Context, task *internal.Task) error
	GetTask(ctx context.Context, id, userID string) (*internal.Task, error)
	ListTasks(ctx context.Context, userID string) ([]internal.Task, error)
	// ListTasksInRange filters by CreatedAt, inclusive on both ends.
	ListTasksInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Task, error)
	// ListTasksDueInRange filters pending tasks by Deadline.
	ListTasksDueInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Task, error)
	// ListTasksByDeadline filters all tasks, completed or not, by Deadline.
	// The calendar views key on deadlines rather than creation times.
	ListTasksByDeadline(ctx context.Context, userID string, from, to time.Time) ([]internal.Task, error)
}

type PostRepository interface {
	// ListPostsInRange filters by UpdatedAt, inclusive on both ends.
	ListPostsInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Post, error)
	// ListPostsCreatedInRange filters by CreatedAt. The weekly summary and
	// calendar count what was written in the window, not what was touched.
	ListPostsCreatedInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Post, error)
}

type ConversationRepository interface {
	// ListMessagesInRange filters by message Timestamp, inclusive on both ends.
	ListMessagesInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.ConversationMessage, error)
}

type PlantRepository interface {
	SavePlant(ctx context.Context, plant *internal.Plant) error
	UpdatePlant(ctx context.Context, plant *internal.Plant) error
	GetPlant(ctx context.Context, id, userID string) (*internal.Plant, error)
	GetMainPlant(ctx context.Context, userID string) (*internal.Plant, error)
	ListPlants(ctx context.Context, userID string) ([]internal.Plant, error)
	// ClearMainPlant unsets IsMainPlant on every plant the user owns.
	ClearMainPlant(ctx context.Context, userID string) error
	DeletePlant(ctx context.Context, id, userID string) error
}
