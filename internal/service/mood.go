package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/ai"
	"github.com/yama-lei/plantodo/internal/storage"
)

// MoodHistoryLimit caps the embedded per-user mood records.
const MoodHistoryLimit = 30

const dateLayout = "2006-01-02"

// MoodService computes daily mood scores from tasks, posts and plant
// conversations. The AI path is best effort; its failures never reach
// the caller.
type MoodService struct {
	users         storage.UserRepository
	tasks         storage.TaskRepository
	posts         storage.PostRepository
	conversations storage.ConversationRepository
	gen           ai.TextGenerator // nil disables the AI path
	aiTimeout     time.Duration
	logger        internal.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewMoodService(repos *storage.Repositories, gen ai.TextGenerator, aiTimeout time.Duration, logger internal.Logger) *MoodService {
	if aiTimeout <= 0 {
		aiTimeout = 30 * time.Second
	}
	return &MoodService{
		users:         repos.Users,
		tasks:         repos.Tasks,
		posts:         repos.Posts,
		conversations: repos.Conversations,
		gen:           gen,
		aiTimeout:     aiTimeout,
		logger:        logger,
		userLocks:     make(map[string]*sync.Mutex),
	}
}

// userLock serializes mood-history writes per user so concurrent upserts
// for the same user never lose records.
func (s *MoodService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// ComputeDailyMood scores one user's day on a 1–10 scale and upserts the
// result into the user's mood history. The only errors it returns are
// unknown user and persistence failures; an unavailable generation
// provider silently degrades to the deterministic fallback.
func (s *MoodService) ComputeDailyMood(ctx context.Context, userID string, date time.Time) (*internal.MoodRecord, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, int(999*time.Millisecond), date.Location())

	// The three sources are independent; fetch them concurrently.
	var (
		tasks []internal.Task
		posts []internal.Post
		msgs  []internal.ConversationMessage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = s.tasks.ListTasksInRange(gctx, userID, startOfDay, endOfDay)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = s.posts.ListPostsInRange(gctx, userID, startOfDay, endOfDay)
		return err
	})
	g.Go(func() error {
		var err error
		msgs, err = s.conversations.ListMessagesInRange(gctx, userID, startOfDay, endOfDay)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	record := internal.MoodRecord{Date: startOfDay.Format(dateLayout)}
	if details, ok := s.scoreWithAI(ctx, tasks, posts, msgs); ok {
		record.Score = clampScore(details.score)
		record.Details = s.buildDetails(tasks, posts, msgs, internal.MoodSourceAI)
		record.Details.Analysis = details.reason
	} else {
		score, breakdown := fallbackMoodScore(tasks, posts, msgs)
		record.Score = score
		record.Details = s.buildDetails(tasks, posts, msgs, internal.MoodSourceFallback)
		record.Details.TaskScore = breakdown.taskScore
		record.Details.PostScore = breakdown.postScore
		record.Details.ConversationScore = breakdown.conversationScore
		record.Details.Analysis = "scored without AI assistance"
	}

	if err := s.upsertMoodRecord(ctx, userID, record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *MoodService) buildDetails(tasks []internal.Task, posts []internal.Post, msgs []internal.ConversationMessage, source string) *internal.MoodDetails {
	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	return &internal.MoodDetails{
		TaskCount:          len(tasks),
		CompletedTaskCount: completed,
		PostCount:          len(posts),
		ConversationCount:  len(msgs),
		Source:             source,
	}
}

type aiMoodResult struct {
	score  int
	reason string
}

// scoreWithAI asks the generation provider for a {score, reason} JSON
// object. Any failure, including malformed output, reports ok=false.
func (s *MoodService) scoreWithAI(ctx context.Context, tasks []internal.Task, posts []internal.Post, msgs []internal.ConversationMessage) (aiMoodResult, bool) {
	if s.gen == nil {
		return aiMoodResult{}, false
	}

	prompt := buildMoodPrompt(tasks, posts, msgs)
	callCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	text, err := s.gen.Generate(callCtx, prompt, ai.Options{Temperature: 0.3, MaxTokens: 200})
	if err != nil {
		s.logger.Warnf("mood scoring via AI failed, using fallback: %v", err)
		return aiMoodResult{}, false
	}

	var parsed struct {
		Score  int    `json:"score"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil {
		s.logger.Warnf("mood response was not valid JSON, using fallback: %v", err)
		return aiMoodResult{}, false
	}
	return aiMoodResult{score: parsed.Score, reason: parsed.Reason}, true
}

// extractJSONObject trims markdown fences and surrounding prose, keeping
// the first top-level object.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func buildMoodPrompt(tasks []internal.Task, posts []internal.Post, msgs []internal.ConversationMessage) string {
	var b strings.Builder
	b.WriteString("Based on the following record of a user's day, assess their mental state and assign a score from 1 to 10.\n\n")

	b.WriteString("Tasks:\n")
	for _, t := range tasks {
		importance := "normal"
		if t.Important {
			importance = "important"
		}
		fmt.Fprintf(&b, "- %q completed=%t importance=%s\n", t.Title, t.Completed, importance)
	}

	b.WriteString("\nPosts:\n")
	for _, p := range posts {
		fmt.Fprintf(&b, "- [%s/%s] %s\n", p.Type, p.Mood, p.Content)
	}

	b.WriteString("\nConversation with their plant:\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "- (%s) %s\n", m.Timestamp.Format(time.RFC3339), m.Content)
	}

	b.WriteString(`
Provide:
1. An integer score from 1 (worst) to 10 (best).
2. A one-sentence rationale, at most 50 words.

Reply with JSON only, in this exact shape:
{
  "score": number,
  "reason": "rationale"
}
`)
	return b.String()
}

type fallbackBreakdown struct {
	taskScore         float64
	postScore         float64
	conversationScore float64
}

// fallbackMoodScore is the deterministic scoring path:
// completion ratio worth up to 4, average post mood up to 3, and half a
// point per conversation message capped at 3.
func fallbackMoodScore(tasks []internal.Task, posts []internal.Post, msgs []internal.ConversationMessage) (int, fallbackBreakdown) {
	var br fallbackBreakdown

	if len(tasks) > 0 {
		completed := 0
		for _, t := range tasks {
			if t.Completed {
				completed++
			}
		}
		br.taskScore = float64(completed) / float64(len(tasks)) * 4
	}

	if len(posts) > 0 {
		sum := 0
		for _, p := range posts {
			sum += moodValue(p.Mood)
		}
		br.postScore = float64(sum) / float64(len(posts))
	}

	br.conversationScore = math.Min(float64(len(msgs))*0.5, 3)

	total := int(math.Round(br.taskScore + br.postScore + br.conversationScore))
	return clampScore(total), br
}

func moodValue(mood string) int {
	switch mood {
	case internal.MoodHappy:
		return 3
	case internal.MoodSad:
		return 1
	default:
		return 2
	}
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// upsertMoodRecord replaces the record for the same date or appends a
// new one, then evicts the oldest entries beyond MoodHistoryLimit.
func (s *MoodService) upsertMoodRecord(ctx context.Context, userID string, record internal.MoodRecord) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	// GetUser shares the stored slice header; mutating it in place would
	// race with concurrent readers. Work on a copy and store that.
	history := append([]internal.MoodRecord(nil), user.MoodHistory...)
	replaced := false
	for i := range history {
		if history[i].Date == record.Date {
			history[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		history = append(history, record)
	}

	if len(history) > MoodHistoryLimit {
		sort.Slice(history, func(i, j int) bool { return history[i].Date > history[j].Date })
		history = history[:MoodHistoryLimit]
	}

	if err := s.users.UpdateMoodHistory(ctx, userID, history); err != nil {
		if internal.KindOf(err) == internal.KindNotFound {
			return err
		}
		return internal.PersistenceError("failed to persist mood history", err)
	}
	return nil
}

// MoodHistory returns the user's recorded moods, newest first.
func (s *MoodService) MoodHistory(ctx context.Context, userID string) ([]internal.MoodRecord, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	history := append([]internal.MoodRecord(nil), user.MoodHistory...)
	sort.Slice(history, func(i, j int) bool { return history[i].Date > history[j].Date })
	return history, nil
}
