package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yama-lei/plantodo/internal"
)

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(dsn string, logger internal.Logger) (*PostgresStorage, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// --- UserRepository ---

func (p *PostgresStorage) GetUser(ctx context.Context, id string) (*internal.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, token, username, mood_history, task_stats, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (p *PostgresStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, token, username, mood_history, task_stats, created_at FROM users WHERE token = $1`, token)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*internal.User, error) {
	var u internal.User
	var moodJSON, statsJSON []byte
	if err := row.Scan(&u.ID, &u.Token, &u.Username, &moodJSON, &statsJSON, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, internal.NotFoundError("user not found")
		}
		return nil, internal.PersistenceError("failed to load user", err)
	}
	if len(moodJSON) > 0 {
		if err := json.Unmarshal(moodJSON, &u.MoodHistory); err != nil {
			return nil, internal.PersistenceError("corrupt mood history", err)
		}
	}
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &u.TaskStats); err != nil {
			return nil, internal.PersistenceError("corrupt task stats", err)
		}
	}
	return &u, nil
}

func (p *PostgresStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		p.logger.Errorf("failed to list users: %v", err)
		return nil, internal.PersistenceError("failed to list users", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, internal.PersistenceError("failed to scan user id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *PostgresStorage) UpdateMoodHistory(ctx context.Context, userID string, records []internal.MoodRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return internal.PersistenceError("failed to encode mood history", err)
	}
	tag, err := p.pool.Exec(ctx, `UPDATE users SET mood_history = $2 WHERE id = $1`, userID, data)
	if err != nil {
		p.logger.Errorf("failed to update mood history: %v", err)
		return internal.PersistenceError("failed to update mood history", err)
	}
	if tag.RowsAffected() == 0 {
		return internal.NotFoundError("user %s not found", userID)
	}
	return nil
}

func (p *PostgresStorage) UpdateTaskStats(ctx context.Context, userID string, stats []internal.DailyTaskStat) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return internal.PersistenceError("failed to encode task stats", err)
	}
	tag, err := p.pool.Exec(ctx, `UPDATE users SET task_stats = $2 WHERE id = $1`, userID, data)
	if err != nil {
		p.logger.Errorf("failed to update task stats: %v", err)
		return internal.PersistenceError("failed to update task stats", err)
	}
	if tag.RowsAffected() == 0 {
		return internal.NotFoundError("user %s not found", userID)
	}
	return nil
}

// --- TaskRepository ---

const taskColumns = `id, user_id, title, description, deadline, completed, important, system, reward, created_at, updated_at, completed_at`

func (p *PostgresStorage) SaveTask(ctx context.Context, t *internal.Task) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.UserID, t.Title, t.Description, t.Deadline, t.Completed, t.Important, t.System, t.Reward, t.CreatedAt, t.UpdatedAt, t.CompletedAt)
	if err != nil {
		p.logger.Errorf("failed to insert task: %v", err)
		return internal.PersistenceError("failed to insert task", err)
	}
	return nil
}

func (p *PostgresStorage) UpdateTask(ctx context.Context, t *internal.Task) error {
	tag, err := p.pool.Exec(ctx, `UPDATE tasks SET title=$2, description=$3, deadline=$4, completed=$5, important=$6, reward=$7, updated_at=$8, completed_at=$9 WHERE id=$1`,
		t.ID, t.Title, t.Description, t.Deadline, t.Completed, t.Important, t.Reward, t.UpdatedAt, t.CompletedAt)
	if err != nil {
		p.logger.Errorf("failed to update task: %v", err)
		return internal.PersistenceError("failed to update task", err)
	}
	if tag.RowsAffected() == 0 {
		return internal.NotFoundError("task %s not found", t.ID)
	}
	return nil
}

func (p *PostgresStorage) GetTask(ctx context.Context, id, userID string) (*internal.Task, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	var t internal.Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Deadline, &t.Completed, &t.Important, &t.System, &t.Reward, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, internal.NotFoundError("task %s not found", id)
		}
		return nil, internal.PersistenceError("failed to load task", err)
	}
	return &t, nil
}

func (p *PostgresStorage) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	return p.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (p *PostgresStorage) ListTasksInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Task, error) {
	return p.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3 ORDER BY created_at DESC`, userID, from, to)
}

func (p *PostgresStorage) ListTasksDueInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Task, error) {
	return p.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND completed = FALSE AND deadline >= $2 AND deadline <= $3 ORDER BY deadline ASC`, userID, from, to)
}

func (p *PostgresStorage) ListTasksByDeadline(ctx context.Context, userID string, from, to time.Time) ([]internal.Task, error) {
	return p.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND deadline >= $2 AND deadline <= $3 ORDER BY deadline ASC`, userID, from, to)
}

func (p *PostgresStorage) queryTasks(ctx context.Context, sql string, args ...interface{}) ([]internal.Task, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		p.logger.Errorf("failed to query tasks: %v", err)
		return nil, internal.PersistenceError("failed to query tasks", err)
	}
	defer rows.Close()

	var tasks []internal.Task
	for rows.Next() {
		var t internal.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Deadline, &t.Completed, &t.Important, &t.System, &t.Reward, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt); err != nil {
			return nil, internal.PersistenceError("failed to scan task", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// --- PostRepository ---

func (p *PostgresStorage) ListPostsInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Post, error) {
	return p.queryPosts(ctx, `SELECT id, user_id, content, mood, type, created_at, updated_at FROM posts WHERE user_id = $1 AND updated_at >= $2 AND updated_at <= $3`, userID, from, to)
}

func (p *PostgresStorage) ListPostsCreatedInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Post, error) {
	return p.queryPosts(ctx, `SELECT id, user_id, content, mood, type, created_at, updated_at FROM posts WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3`, userID, from, to)
}

func (p *PostgresStorage) queryPosts(ctx context.Context, sql string, args ...interface{}) ([]internal.Post, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		p.logger.Errorf("failed to query posts: %v", err)
		return nil, internal.PersistenceError("failed to query posts", err)
	}
	defer rows.Close()

	var posts []internal.Post
	for rows.Next() {
		var post internal.Post
		if err := rows.Scan(&post.ID, &post.UserID, &post.Content, &post.Mood, &post.Type, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, internal.PersistenceError("failed to scan post", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// --- ConversationRepository ---

func (p *PostgresStorage) ListMessagesInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.ConversationMessage, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, user_id, plant_id, sender, content, ts FROM conversation_messages WHERE user_id = $1 AND ts >= $2 AND ts <= $3 ORDER BY ts ASC`, userID, from, to)
	if err != nil {
		p.logger.Errorf("failed to query messages: %v", err)
		return nil, internal.PersistenceError("failed to query messages", err)
	}
	defer rows.Close()

	var msgs []internal.ConversationMessage
	for rows.Next() {
		var m internal.ConversationMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.PlantID, &m.Sender, &m.Content, &m.Timestamp); err != nil {
			return nil, internal.PersistenceError("failed to scan message", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// --- PlantRepository ---

const plantColumns = `id, user_id, name, type, emoji, level, experience, growth_stage, state, mood, is_main_plant, created_at, last_interaction`

func (p *PostgresStorage) SavePlant(ctx context.Context, plant *internal.Plant) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO plants (`+plantColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		plant.ID, plant.UserID, plant.Name, plant.Type, plant.Emoji, plant.Level, plant.Experience, plant.GrowthStage, plant.State, plant.Mood, plant.IsMainPlant, plant.CreatedAt, plant.LastInteraction)
	if err != nil {
		p.logger.Errorf("failed to insert plant: %v", err)
		return internal.PersistenceError("failed to insert plant", err)
	}
	return nil
}

func (p *PostgresStorage) UpdatePlant(ctx context.Context, plant *internal.Plant) error {
	tag, err := p.pool.Exec(ctx, `UPDATE plants SET name=$2, emoji=$3, level=$4, experience=$5, growth_stage=$6, state=$7, mood=$8, is_main_plant=$9, last_interaction=$10 WHERE id=$1`,
		plant.ID, plant.Name, plant.Emoji, plant.Level, plant.Experience, plant.GrowthStage, plant.State, plant.Mood, plant.IsMainPlant, plant.LastInteraction)
	if err != nil {
		p.logger.Errorf("failed to update plant: %v", err)
		return internal.PersistenceError("failed to update plant", err)
	}
	if tag.RowsAffected() == 0 {
		return internal.NotFoundError("plant %s not found", plant.ID)
	}
	return nil
}

func (p *PostgresStorage) GetPlant(ctx context.Context, id, userID string) (*internal.Plant, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+plantColumns+` FROM plants WHERE id = $1 AND user_id = $2`, id, userID)
	return scanPlant(row, id)
}

func (p *PostgresStorage) GetMainPlant(ctx context.Context, userID string) (*internal.Plant, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+plantColumns+` FROM plants WHERE user_id = $1 AND is_main_plant = TRUE`, userID)
	return scanPlant(row, "main")
}

func scanPlant(row pgx.Row, id string) (*internal.Plant, error) {
	var pl internal.Plant
	if err := row.Scan(&pl.ID, &pl.UserID, &pl.Name, &pl.Type, &pl.Emoji, &pl.Level, &pl.Experience, &pl.GrowthStage, &pl.State, &pl.Mood, &pl.IsMainPlant, &pl.CreatedAt, &pl.LastInteraction); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, internal.NotFoundError("plant %s not found", id)
		}
		return nil, internal.PersistenceError("failed to load plant", err)
	}
	return &pl, nil
}

func (p *PostgresStorage) ListPlants(ctx context.Context, userID string) ([]internal.Plant, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+plantColumns+` FROM plants WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		p.logger.Errorf("failed to query plants: %v", err)
		return nil, internal.PersistenceError("failed to query plants", err)
	}
	defer rows.Close()

	var plants []internal.Plant
	for rows.Next() {
		var pl internal.Plant
		if err := rows.Scan(&pl.ID, &pl.UserID, &pl.Name, &pl.Type, &pl.Emoji, &pl.Level, &pl.Experience, &pl.GrowthStage, &pl.State, &pl.Mood, &pl.IsMainPlant, &pl.CreatedAt, &pl.LastInteraction); err != nil {
			return nil, internal.PersistenceError("failed to scan plant", err)
		}
		plants = append(plants, pl)
	}
	return plants, rows.Err()
}

func (p *PostgresStorage) ClearMainPlant(ctx context.Context, userID string) error {
	_, err := p.pool.Exec(ctx, `UPDATE plants SET is_main_plant = FALSE WHERE user_id = $1 AND is_main_plant = TRUE`, userID)
	if err != nil {
		p.logger.Errorf("failed to clear main plant: %v", err)
		return internal.PersistenceError("failed to clear main plant", err)
	}
	return nil
}

func (p *PostgresStorage) DeletePlant(ctx context.Context, id, userID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM plants WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		p.logger.Errorf("failed to delete plant: %v", err)
		return internal.PersistenceError("failed to delete plant", err)
	}
	if tag.RowsAffected() == 0 {
		return internal.NotFoundError("plant %s not found", id)
	}
	return nil
}

// --- Compile-time assertions ---
var _ UserRepository = (*PostgresStorage)(nil)
var _ TaskRepository = (*PostgresStorage)(nil)
var _ PostRepository = (*PostgresStorage)(nil)
var _ ConversationRepository = (*PostgresStorage)(nil)
var _ PlantRepository = (*PostgresStorage)(nil)
