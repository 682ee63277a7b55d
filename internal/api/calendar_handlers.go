package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yama-lei/plantodo/internal"
)

// yearMonthParams reads the year and month query parameters; range
// checks live in the service.
func yearMonthParams(c *gin.Context) (int, int, error) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		return 0, 0, internal.ValidationError("invalid year %q", c.Query("year"))
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		return 0, 0, internal.ValidationError("invalid month %q", c.Query("month"))
	}
	return year, month, nil
}

func GetMonthCalendar(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		year, month, err := yearMonthParams(c)
		if err != nil {
			HandleError(c, app.Logger(), err, "Invalid calendar request")
			return
		}
		cal, err := app.Insights().MonthCalendar(c.Request.Context(), user.ID, year, month)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to build calendar")
			return
		}
		HandleSuccess(c, app.Logger(), cal, nil)
	}
}

func GetDayDetail(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		date, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
		if err != nil {
			HandleError(c, app.Logger(), internal.ValidationError("invalid date format, expected YYYY-MM-DD"), "Invalid day detail request")
			return
		}
		detail, err := app.Insights().DayDetail(c.Request.Context(), user.ID, date)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to build day detail")
			return
		}
		HandleSuccess(c, app.Logger(), detail, nil)
	}
}

func GetMonthStatistics(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		year, month, err := yearMonthParams(c)
		if err != nil {
			HandleError(c, app.Logger(), err, "Invalid statistics request")
			return
		}
		stats, err := app.Insights().MonthStatistics(c.Request.Context(), user.ID, year, month)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to build statistics")
			return
		}
		HandleSuccess(c, app.Logger(), stats, nil)
	}
}
