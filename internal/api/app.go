package api

import (
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/service"
)

type App interface {
	Logger() internal.Logger
	Plants() *service.PlantService
	Tasks() *service.TaskService
	Moods() *service.MoodService
	Insights() *service.InsightService
}
