package internal

import "time"

// Plant growth states, derived from GrowthStage.
const (
	StateSeedling = "seedling"
	StateGrowing  = "growing"
	StateMature   = "mature"
)

// Mood values shared by plants and posts.
const (
	MoodHappy   = "happy"
	MoodNeutral = "neutral"
	MoodSad     = "sad"
)

// Post types.
const (
	PostTypeDiary   = "diary"
	PostTypeThought = "thought"
)

// Conversation message senders.
const (
	SenderUser  = "user"
	SenderPlant = "plant"
)

type User struct {
	ID          string          `json:"id"`
	Token       string          `json:"token"`
	Username    string          `json:"username"`
	MoodHistory []MoodRecord    `json:"mood_history,omitempty"`
	TaskStats   []DailyTaskStat `json:"task_stats,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MoodRecord is one day's mood score for a user. Date is an ISO date
// string ("2006-01-02") and doubles as the record key.
type MoodRecord struct {
	Date    string       `json:"date"`
	Score   int          `json:"score"` // 1–10 scale
	Details *MoodDetails `json:"details,omitempty"`
}

// Values for MoodDetails.Source.
const (
	MoodSourceAI       = "ai"
	MoodSourceFallback = "fallback"
)

type MoodDetails struct {
	TaskCount          int     `json:"task_count"`
	CompletedTaskCount int     `json:"completed_task_count"`
	PostCount          int     `json:"post_count"`
	ConversationCount  int     `json:"conversation_count"`
	TaskScore          float64 `json:"task_score,omitempty"`
	PostScore          float64 `json:"post_score,omitempty"`
	ConversationScore  float64 `json:"conversation_score,omitempty"`
	Analysis           string  `json:"analysis,omitempty"`
	Source             string  `json:"source"`
}

// DailyTaskStat is a per-day task counter embedded on the user.
type DailyTaskStat struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Completed   bool       `json:"completed"`
	Important   bool       `json:"important"`
	System      bool       `json:"system,omitempty"`
	Reward      int        `json:"reward,omitempty"` // system tasks only
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Plant struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	Emoji           string    `json:"emoji,omitempty"`
	Level           int       `json:"level"`
	Experience      int       `json:"experience"`
	GrowthStage     int       `json:"growth_stage"` // 1–3
	State           string    `json:"state"`
	Mood            string    `json:"mood"`
	IsMainPlant     bool      `json:"is_main_plant"`
	CreatedAt       time.Time `json:"created_at"`
	LastInteraction time.Time `json:"last_interaction"`
}

// ConversationMessage is one message exchanged with a plant. The mood
// pipeline only reads counts and timestamps, never content.
type ConversationMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PlantID   string    `json:"plant_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
