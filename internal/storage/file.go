package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/yama-lei/plantodo/internal"
)

type FilePaths struct {
	Users         string
	Tasks         string
	Posts         string
	Conversations string
	Plants        string
}

// FileStorage keeps every collection in memory and flushes each one to its
// own JSON file through a debounced background worker, so bursts of writes
// hit the disk once.
type FileStorage struct {
	users    map[string]*internal.User // id -> User
	tasks    map[string]*internal.Task // id -> Task
	posts    []*internal.Post
	messages []*internal.ConversationMessage
	plants   map[string]*internal.Plant // id -> Plant

	userTaskIndex map[string][]*internal.Task // userID -> tasks, newest first

	mu     sync.RWMutex
	paths  FilePaths
	logger internal.Logger

	saveChans    map[string]chan struct{}
	shutdownChan chan struct{}
	saveDelay    time.Duration
	workers      sync.WaitGroup
}

const (
	collUsers         = "users"
	collTasks         = "tasks"
	collPosts         = "posts"
	collConversations = "conversations"
	collPlants        = "plants"
)

// NewFileStorage loads all collections and starts the save workers.
func NewFileStorage(paths FilePaths, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		users:         make(map[string]*internal.User),
		tasks:         make(map[string]*internal.Task),
		plants:        make(map[string]*internal.Plant),
		userTaskIndex: make(map[string][]*internal.Task),
		paths:         paths,
		logger:        logger,
		saveChans:     make(map[string]chan struct{}),
		shutdownChan:  make(chan struct{}),
		saveDelay:     500 * time.Millisecond,
	}

	var users []*internal.User
	if err := loadJSONFile(paths.Users, &users); err != nil {
		return nil, fmt.Errorf("storage: failed to load users: %w", err)
	}
	var tasks []*internal.Task
	if err := loadJSONFile(paths.Tasks, &tasks); err != nil {
		return nil, fmt.Errorf("storage: failed to load tasks: %w", err)
	}
	if err := loadJSONFile(paths.Posts, &s.posts); err != nil {
		return nil, fmt.Errorf("storage: failed to load posts: %w", err)
	}
	if err := loadJSONFile(paths.Conversations, &s.messages); err != nil {
		return nil, fmt.Errorf("storage: failed to load conversations: %w", err)
	}
	var plants []*internal.Plant
	if err := loadJSONFile(paths.Plants, &plants); err != nil {
		return nil, fmt.Errorf("storage: failed to load plants: %w", err)
	}

	for _, u := range users {
		s.users[u.ID] = u
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
		s.userTaskIndex[t.UserID] = append(s.userTaskIndex[t.UserID], t)
	}
	for userID := range s.userTaskIndex {
		sortTasksDesc(s.userTaskIndex[userID])
	}
	for _, p := range plants {
		s.plants[p.ID] = p
	}

	for _, coll := range []string{collUsers, collTasks, collPosts, collConversations, collPlants} {
		ch := make(chan struct{}, 1)
		s.saveChans[coll] = ch
		s.workers.Add(1)
		go func(coll string, ch chan struct{}) {
			defer s.workers.Done()
			s.saveWorker(coll, ch)
		}(coll, ch)
	}

	return s, nil
}

// Close flushes every collection to disk and waits for the save workers
// to exit.
func (s *FileStorage) Close() {
	close(s.shutdownChan)
	s.workers.Wait()
}

func loadJSONFile(path string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

// saveWorker batches save signals for one collection to avoid frequent
// disk writes.
func (s *FileStorage) saveWorker(coll string, signal chan struct{}) {
	timer := time.NewTimer(s.saveDelay)
	defer timer.Stop()

	for {
		select {
		case <-signal:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := s.saveCollection(coll); err != nil {
				s.logger.Errorf("storage: error saving %s: %v", coll, err)
			}
		case <-s.shutdownChan:
			if err := s.saveCollection(coll); err != nil {
				s.logger.Errorf("storage: error saving %s on shutdown: %v", coll, err)
			}
			return
		}
	}
}

func (s *FileStorage) signalSave(coll string) {
	select {
	case s.saveChans[coll] <- struct{}{}:
	default:
	}
}

func (s *FileStorage) saveCollection(coll string) error {
	s.mu.RLock()
	var data interface{}
	var path string
	switch coll {
	case collUsers:
		users := make([]*internal.User, 0, len(s.users))
		for _, u := range s.users {
			users = append(users, u)
		}
		data, path = users, s.paths.Users
	case collTasks:
		tasks := make([]*internal.Task, 0, len(s.tasks))
		for _, t := range s.tasks {
			tasks = append(tasks, t)
		}
		data, path = tasks, s.paths.Tasks
	case collPosts:
		data, path = s.posts, s.paths.Posts
	case collConversations:
		data, path = s.messages, s.paths.Conversations
	case collPlants:
		plants := make([]*internal.Plant, 0, len(s.plants))
		for _, p := range s.plants {
			plants = append(plants, p)
		}
		data, path = plants, s.paths.Plants
	}
	s.mu.RUnlock()

	return atomicWriteFileJSON(path, data)
}

func sortTasksDesc(tasks []*internal.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// --- UserRepository ---

func (s *FileStorage) GetUser(ctx context.Context, id string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, internal.NotFoundError("user %s not found", id)
	}
	copied := *u
	return &copied, nil
}

func (s *FileStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Token == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, internal.NotFoundError("no user for token")
}

func (s *FileStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStorage) UpdateMoodHistory(ctx context.Context, userID string, records []internal.MoodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return internal.NotFoundError("user %s not found", userID)
	}
	u.MoodHistory = records
	s.signalSave(collUsers)
	return nil
}

func (s *FileStorage) UpdateTaskStats(ctx context.Context, userID string, stats []internal.DailyTaskStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return internal.NotFoundError("user %s not found", userID)
	}
	u.TaskStats = stats
	s.signalSave(collUsers)
	return nil
}

// --- TaskRepository ---

func (s *FileStorage) SaveTask(ctx context.Context, task *internal.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	s.userTaskIndex[task.UserID] = append(s.userTaskIndex[task.UserID], &copied)
	sortTasksDesc(s.userTaskIndex[task.UserID])
	s.signalSave(collTasks)
	return nil
}

func (s *FileStorage) UpdateTask(ctx context.Context, task *internal.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok {
		return internal.NotFoundError("task %s not found", task.ID)
	}
	*existing = *task
	s.signalSave(collTasks)
	return nil
}

func (s *FileStorage) GetTask(ctx context.Context, id, userID string) (*internal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, internal.NotFoundError("task %s not found", id)
	}
	copied := *t
	return &copied, nil
}

func (s *FileStorage) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.Task
	for _, t := range s.userTaskIndex[userID] {
		out = append(out, *t)
	}
	return out, nil
}

func (s *FileStorage) ListTasksInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.Task
	for _, t := range s.userTaskIndex[userID] {
		if inRange(t.CreatedAt, from, to) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *FileStorage) ListTasksDueInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.Task
	for _, t := range s.userTaskIndex[userID] {
		if !t.Completed && t.Deadline != nil && inRange(*t.Deadline, from, to) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *FileStorage) ListTasksByDeadline(ctx context.Context, userID string, from, to time.Time) ([]internal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.Task
	for _, t := range s.userTaskIndex[userID] {
		if t.Deadline != nil && inRange(*t.Deadline, from, to) {
			out = append(out, *t)
		}
	}
	return out, nil
}

// --- PostRepository ---

func (s *FileStorage) ListPostsInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.Post
	for _, p := range s.posts {
		if p.UserID == userID && inRange(p.UpdatedAt, from, to) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *FileStorage) ListPostsCreatedInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.Post
	for _, p := range s.posts {
		if p.UserID == userID && inRange(p.CreatedAt, from, to) {
			out = append(out, *p)
		}
	}
	return out, nil
}

// AddPost exists for seeding and tests; the engine itself never writes posts.
func (s *FileStorage) AddPost(post *internal.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *post
	s.posts = append(s.posts, &copied)
	s.signalSave(collPosts)
}

// --- ConversationRepository ---

func (s *FileStorage) ListMessagesInRange(ctx context.Context, userID string, from, to time.Time) ([]internal.ConversationMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.ConversationMessage
	for _, m := range s.messages {
		if m.UserID == userID && inRange(m.Timestamp, from, to) {
			out = append(out, *m)
		}
	}
	return out, nil
}

// AddMessage exists for seeding and tests.
func (s *FileStorage) AddMessage(msg *internal.ConversationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *msg
	s.messages = append(s.messages, &copied)
	s.signalSave(collConversations)
}

// --- PlantRepository ---

func (s *FileStorage) SavePlant(ctx context.Context, plant *internal.Plant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *plant
	s.plants[plant.ID] = &copied
	s.signalSave(collPlants)
	return nil
}

func (s *FileStorage) UpdatePlant(ctx context.Context, plant *internal.Plant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.plants[plant.ID]
	if !ok {
		return internal.NotFoundError("plant %s not found", plant.ID)
	}
	*existing = *plant
	s.signalSave(collPlants)
	return nil
}

func (s *FileStorage) GetPlant(ctx context.Context, id, userID string) (*internal.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plants[id]
	if !ok || p.UserID != userID {
		return nil, internal.NotFoundError("plant %s not found", id)
	}
	copied := *p
	return &copied, nil
}

func (s *FileStorage) GetMainPlant(ctx context.Context, userID string) (*internal.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plants {
		if p.UserID == userID && p.IsMainPlant {
			copied := *p
			return &copied, nil
		}
	}
	return nil, internal.NotFoundError("no main plant for user %s", userID)
}

func (s *FileStorage) ListPlants(ctx context.Context, userID string) ([]internal.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.Plant
	for _, p := range s.plants {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *FileStorage) ClearMainPlant(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plants {
		if p.UserID == userID && p.IsMainPlant {
			p.IsMainPlant = false
		}
	}
	s.signalSave(collPlants)
	return nil
}

func (s *FileStorage) DeletePlant(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plants[id]
	if !ok || p.UserID != userID {
		return internal.NotFoundError("plant %s not found", id)
	}
	delete(s.plants, id)
	s.signalSave(collPlants)
	return nil
}

// AddUser exists for seeding and tests.
func (s *FileStorage) AddUser(user *internal.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.ID] = &copied
	s.signalSave(collUsers)
}

// --- Compile-time assertions ---
var _ UserRepository = (*FileStorage)(nil)
var _ TaskRepository = (*FileStorage)(nil)
var _ PostRepository = (*FileStorage)(nil)
var _ ConversationRepository = (*FileStorage)(nil)
var _ PlantRepository = (*FileStorage)(nil)
