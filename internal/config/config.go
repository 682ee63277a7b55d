package config

import (
	"errors"
	"os"
	"sync"
	"time"
)

type Config struct {
	Env      string
	LogLevel string

	DBType    string
	DBDSN     string
	FileUsers string
	FileTasks string
	FilePosts string
	FileConvs string
	FilePlant string

	AIProvider     string // deepseek, gemini or off
	DeepSeekAPIKey string
	GeminiAPIKey   string
	AITimeout      time.Duration

	MoodSchedule string // "HH:MM", local time
	AuthToken    string
}

var (
	cfg  *Config
	once sync.Once
)

func Load() *Config {
	once.Do(func() {
		_ = loadDotEnv()
		cfg = &Config{
			Env:            getEnv("APP_ENV", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			DBType:         getEnv("STORAGE_BACKEND", "file"),
			DBDSN:          getEnv("POSTGRES_DSN", ""),
			FileUsers:      getEnv("USERS_FILE", "data/users.json"),
			FileTasks:      getEnv("TASKS_FILE", "data/tasks.json"),
			FilePosts:      getEnv("POSTS_FILE", "data/posts.json"),
			FileConvs:      getEnv("CONVERSATIONS_FILE", "data/conversations.json"),
			FilePlant:      getEnv("PLANTS_FILE", "data/plants.json"),
			AIProvider:     getEnv("AI_PROVIDER", "deepseek"),
			DeepSeekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
			GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
			AITimeout:      getDuration("AI_TIMEOUT", 30*time.Second),
			MoodSchedule:   getEnv("MOOD_SCHEDULE", "01:00"),
			AuthToken:      getEnv("AUTH_TOKEN", "MOCK-TOKEN"),
		}
		if err := cfg.Validate(); err != nil {
			panic("Invalid config: " + err.Error())
		}
	})
	return cfg
}

func (c *Config) Validate() error {
	if c.DBType == "postgres" && c.DBDSN == "" {
		return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
	if c.DBType != "postgres" && c.DBType != "file" {
		return errors.New("STORAGE_BACKEND must be one of: file, postgres")
	}
	switch c.AIProvider {
	case "deepseek", "gemini", "off":
	default:
		return errors.New("AI_PROVIDER must be one of: deepseek, gemini, off")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if _, err := time.Parse("15:04", c.MoodSchedule); err != nil {
		return errors.New("MOOD_SCHEDULE must be in HH:MM format")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		f, err := os.Open(".env")
		if err != nil {
			return err
		}
		defer f.Close()
		var lines []string
		buf := make([]byte, 4096)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				lines = append(lines, string(buf[:n]))
			}
			if err != nil {
				break
			}
		}
		for _, line := range lines {
			for _, l := range splitLines(line) {
				if len(l) == 0 || l[0] == '#' {
					continue
				}
				kv := splitKV(l)
				if len(kv) == 2 {
					os.Setenv(kv[0], kv[1])
				}
			}
		}
	}
	return nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' || c == '\r' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func splitKV(s string) []string {
	for i, c := range s {
		if c == '=' {
			return []string{s[:i], s[i+1:]}
		}
	}
	return nil
}
