package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/service"
)

func GetTaskSummary(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		period := c.DefaultQuery("period", service.PeriodWeek)
		summary, err := app.Insights().SummarizeTasks(c.Request.Context(), user.ID, period)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to summarize tasks")
			return
		}
		HandleSuccess(c, app.Logger(), summary, nil)
	}
}

func GetWeeklySummary(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		date := time.Now()
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
			if err != nil {
				HandleError(c, app.Logger(), internal.ValidationError("invalid date format, expected YYYY-MM-DD"), "Invalid weekly summary request")
				return
			}
			date = parsed
		}

		summary, err := app.Insights().SummarizeWeek(c.Request.Context(), user.ID, date)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to summarize week")
			return
		}
		HandleSuccess(c, app.Logger(), summary, nil)
	}
}

func GetAIAnalysis(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		report, err := app.Insights().AnalyzeWithAI(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to run analysis")
			return
		}
		HandleSuccess(c, app.Logger(), report, nil)
	}
}
