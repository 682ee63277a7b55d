package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yama-lei/plantodo/internal"
)

type moodUpdateRequest struct {
	Date string `json:"date"` // "2006-01-02", defaults to today
}

func PostMoodUpdate(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var req moodUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			HandleError(c, app.Logger(), internal.ValidationError("invalid JSON: %v", err), "Invalid mood request")
			return
		}

		date := time.Now()
		if req.Date != "" {
			parsed, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
			if err != nil {
				HandleError(c, app.Logger(), internal.ValidationError("invalid date format, expected YYYY-MM-DD"), "Invalid mood request")
				return
			}
			date = parsed
		}

		record, err := app.Moods().ComputeDailyMood(c.Request.Context(), user.ID, date)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to compute mood")
			return
		}
		HandleSuccess(c, app.Logger(), record, nil)
	}
}

func GetMoodHistory(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		history, err := app.Moods().MoodHistory(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to fetch mood history")
			return
		}
		HandleSuccess(c, app.Logger(), history, nil)
	}
}
