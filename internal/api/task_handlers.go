package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/service"
)

func PostTask(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var req service.TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), internal.ValidationError("invalid JSON: %v", err), "Invalid task request")
			return
		}

		task, err := app.Tasks().CreateTask(c.Request.Context(), user.ID, &req)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to create task")
			return
		}
		HandleSuccess(c, app.Logger(), task, nil)
	}
}

func PutTaskComplete(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		result, err := app.Tasks().CompleteTask(c.Request.Context(), user.ID, c.Param("id"))
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to complete task")
			return
		}
		HandleSuccess(c, app.Logger(), result, nil)
	}
}

func GetSystemTasks(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		tasks, err := app.Tasks().SystemTasks(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to list system tasks")
			return
		}
		HandleSuccess(c, app.Logger(), tasks, nil)
	}
}

func PostInitSystemTasks(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		tasks, err := app.Tasks().InitSystemTasks(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to initialize system tasks")
			return
		}
		HandleSuccess(c, app.Logger(), tasks, nil)
	}
}

func PostRebuildTaskStats(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		stats, err := app.Tasks().RebuildDailyStats(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to rebuild task stats")
			return
		}
		HandleSuccess(c, app.Logger(), stats, nil)
	}
}
