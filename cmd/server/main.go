package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/ai"
	"github.com/yama-lei/plantodo/internal/api"
	"github.com/yama-lei/plantodo/internal/auth"
	"github.com/yama-lei/plantodo/internal/config"
	"github.com/yama-lei/plantodo/internal/scheduler"
	"github.com/yama-lei/plantodo/internal/service"
	"github.com/yama-lei/plantodo/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := internal.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	repos, err := buildRepositories(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}

	gen := buildGenerator(cfg, logger)

	plantSvc := service.NewPlantService(repos.Plants, logger)
	taskSvc := service.NewTaskService(repos.Tasks, repos.Users, plantSvc, logger)
	moodSvc := service.NewMoodService(repos, gen, cfg.AITimeout, logger)

	var insightGen ai.TextGenerator
	if gen != nil {
		insightGen = ai.NewRetryer(gen, cfg.AITimeout, logger)
	}
	insightSvc := service.NewInsightService(repos, insightGen, logger)

	sched := scheduler.New(cfg.MoodSchedule, repos.Users.ListUserIDs, moodSvc, logger)
	go sched.Start()
	defer sched.Stop()

	app := api.NewApp(logger, plantSvc, taskSvc, moodSvc, insightSvc)
	provider := auth.NewStoreProvider(repos.Users, logger)
	r := api.NewRouter(app, provider)

	logger.Info("server running on :8088")
	if err := r.Run(":8088"); err != nil {
		logger.Fatalf("failed to start server: %v", err)
	}
}

func buildRepositories(cfg *config.Config, logger internal.Logger) (*storage.Repositories, error) {
	if cfg.DBType == "postgres" {
		return storage.NewPostgresRepositories(cfg.DBDSN, logger)
	}

	dataDir := filepath.Dir(cfg.FileUsers)
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		_ = os.MkdirAll(dataDir, 0755)
	}
	// Seed a default user so a fresh checkout works out of the box.
	if _, err := os.Stat(cfg.FileUsers); os.IsNotExist(err) {
		seed := `[{"id":"u1","token":"` + cfg.AuthToken + `","username":"Demo User"}]`
		_ = os.WriteFile(cfg.FileUsers, []byte(seed), 0644)
	}

	return storage.NewFileRepositories(storage.FilePaths{
		Users:         cfg.FileUsers,
		Tasks:         cfg.FileTasks,
		Posts:         cfg.FilePosts,
		Conversations: cfg.FileConvs,
		Plants:        cfg.FilePlant,
	}, logger)
}

func buildGenerator(cfg *config.Config, logger internal.Logger) ai.TextGenerator {
	switch cfg.AIProvider {
	case "gemini":
		gen, err := ai.NewGeminiClient(cfg.GeminiAPIKey, "", logger)
		if err != nil {
			logger.Warnf("gemini disabled: %v", err)
			return nil
		}
		return gen
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			logger.Warn("DEEPSEEK_API_KEY is not set, AI analysis will use the fallback path")
			return nil
		}
		return ai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.AITimeout, logger)
	default:
		return nil
	}
}
