package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/auth"
	"github.com/yama-lei/plantodo/internal/service"
)

type appImpl struct {
	logger   internal.Logger
	plants   *service.PlantService
	tasks    *service.TaskService
	moods    *service.MoodService
	insights *service.InsightService
}

func (a *appImpl) Logger() internal.Logger           { return a.logger }
func (a *appImpl) Plants() *service.PlantService     { return a.plants }
func (a *appImpl) Tasks() *service.TaskService       { return a.tasks }
func (a *appImpl) Moods() *service.MoodService       { return a.moods }
func (a *appImpl) Insights() *service.InsightService { return a.insights }

func NewApp(logger internal.Logger, plants *service.PlantService, tasks *service.TaskService, moods *service.MoodService, insights *service.InsightService) App {
	return &appImpl{logger: logger, plants: plants, tasks: tasks, moods: moods, insights: insights}
}

// NewRouter wires all engine routes behind token auth.
func NewRouter(app App, provider auth.Provider) *gin.Engine {
	r := gin.Default()
	r.Use(RequestIDMiddleware(app.Logger()))

	authorized := r.Group("/api")
	authorized.Use(auth.AuthMiddleware(provider))

	authorized.POST("/tasks", PostTask(app))
	authorized.PUT("/tasks/:id/complete", PutTaskComplete(app))
	authorized.POST("/tasks/stats/rebuild", PostRebuildTaskStats(app))
	authorized.GET("/tasks/system", GetSystemTasks(app))
	authorized.POST("/tasks/system/init", PostInitSystemTasks(app))

	authorized.GET("/plants", GetPlants(app))
	authorized.POST("/plants", PostPlant(app))
	authorized.PUT("/plants/:id/experience", PutPlantExperience(app))
	authorized.PUT("/plants/:id/main", PutMainPlant(app))
	authorized.DELETE("/plants/:id", DeletePlant(app))

	authorized.POST("/auto-mood/update", PostMoodUpdate(app))
	authorized.GET("/mood/history", GetMoodHistory(app))

	authorized.GET("/insights/tasks", GetTaskSummary(app))
	authorized.GET("/insights/weekly", GetWeeklySummary(app))
	authorized.GET("/insights/ai-analysis", GetAIAnalysis(app))

	authorized.GET("/calendar/monthly", GetMonthCalendar(app))
	authorized.GET("/calendar/day", GetDayDetail(app))
	authorized.GET("/calendar/statistics", GetMonthStatistics(app))

	return r
}
