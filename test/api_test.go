package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/api"
	"github.com/yama-lei/plantodo/internal/auth"
	"github.com/yama-lei/plantodo/internal/service"
	"github.com/yama-lei/plantodo/internal/storage"
)

func setupRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	usersFile := dir + "/users.json"
	assert.NoError(t, os.WriteFile(usersFile, []byte(`[{"id":"u1","token":"MOCK-TOKEN","username":"Test User"}]`), 0644))

	repos, err := storage.NewFileRepositories(storage.FilePaths{
		Users:         usersFile,
		Tasks:         dir + "/tasks.json",
		Posts:         dir + "/posts.json",
		Conversations: dir + "/conversations.json",
		Plants:        dir + "/plants.json",
	}, internal.NopLogger{})
	assert.NoError(t, err)

	logger := internal.NopLogger{}
	plantSvc := service.NewPlantService(repos.Plants, logger)
	taskSvc := service.NewTaskService(repos.Tasks, repos.Users, plantSvc, logger)
	moodSvc := service.NewMoodService(repos, nil, 0, logger)
	insightSvc := service.NewInsightService(repos, nil, logger)

	app := api.NewApp(logger, plantSvc, taskSvc, moodSvc, insightSvc)
	provider := auth.NewStoreProvider(repos.Users, logger)
	return api.NewRouter(app, provider)
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer MOCK-TOKEN")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	r := setupRouter(t)

	rec := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/plants", nil)
	r.ServeHTTP(rec, req)
	assert.Equal(t, 401, rec.Code)

	rec = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/plants", nil)
	req.Header.Set("Authorization", "Bearer WRONG-TOKEN")
	r.ServeHTTP(rec, req)
	assert.Equal(t, 401, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	r := setupRouter(t)

	// A plant to catch the completion reward.
	rec := doRequest(r, "POST", "/api/plants", `{"name":"Fern","type":"fern"}`)
	assert.Equal(t, 200, rec.Code)
	plant := dataOf(t, rec)
	assert.Equal(t, true, plant["is_main_plant"])

	rec = doRequest(r, "POST", "/api/tasks", `{"title":"write tests","important":true}`)
	assert.Equal(t, 200, rec.Code)
	task := dataOf(t, rec)
	taskID := task["id"].(string)
	assert.NotEmpty(t, taskID)

	rec = doRequest(r, "PUT", "/api/tasks/"+taskID+"/complete", "")
	assert.Equal(t, 200, rec.Code)
	result := dataOf(t, rec)
	assert.Equal(t, float64(50), result["reward"])

	// Completing twice is a client error.
	rec = doRequest(r, "PUT", "/api/tasks/"+taskID+"/complete", "")
	assert.Equal(t, 400, rec.Code)

	// Unknown task id.
	rec = doRequest(r, "PUT", "/api/tasks/nope/complete", "")
	assert.Equal(t, 404, rec.Code)
}

func TestPostTask_InvalidBody(t *testing.T) {
	r := setupRouter(t)

	rec := doRequest(r, "POST", "/api/tasks", `{"title":""}`)
	assert.Equal(t, 400, rec.Code)

	rec = doRequest(r, "POST", "/api/tasks", `not json`)
	assert.Equal(t, 400, rec.Code)
}

func TestPlantEndpoints(t *testing.T) {
	r := setupRouter(t)

	rec := doRequest(r, "POST", "/api/plants", `{"name":"Fern","type":"fern"}`)
	assert.Equal(t, 200, rec.Code)
	first := dataOf(t, rec)

	rec = doRequest(r, "POST", "/api/plants", `{"name":"Cactus","type":"cactus"}`)
	assert.Equal(t, 200, rec.Code)
	second := dataOf(t, rec)
	assert.Equal(t, false, second["is_main_plant"])

	rec = doRequest(r, "PUT", "/api/plants/"+second["id"].(string)+"/experience", `{"amount":150}`)
	assert.Equal(t, 200, rec.Code)
	grant := dataOf(t, rec)
	assert.Equal(t, true, grant["leveled_up"])

	rec = doRequest(r, "PUT", "/api/plants/"+second["id"].(string)+"/main", "")
	assert.Equal(t, 200, rec.Code)

	// The old main plant is deletable now.
	rec = doRequest(r, "DELETE", "/api/plants/"+first["id"].(string), "")
	assert.Equal(t, 200, rec.Code)

	// The current main plant is not.
	rec = doRequest(r, "DELETE", "/api/plants/"+second["id"].(string), "")
	assert.Equal(t, 400, rec.Code)

	// Rejected experience amounts.
	rec = doRequest(r, "PUT", "/api/plants/"+second["id"].(string)+"/experience", `{"amount":0}`)
	assert.Equal(t, 400, rec.Code)
}

func TestMoodEndpoints(t *testing.T) {
	r := setupRouter(t)

	// Empty body defaults to today.
	rec := doRequest(r, "POST", "/api/auto-mood/update", "")
	assert.Equal(t, 200, rec.Code)
	record := dataOf(t, rec)
	assert.Equal(t, "fallback", record["details"].(map[string]interface{})["source"])

	rec = doRequest(r, "POST", "/api/auto-mood/update", `{"date":"2025-03-10"}`)
	assert.Equal(t, 200, rec.Code)
	record = dataOf(t, rec)
	assert.Equal(t, "2025-03-10", record["date"])

	rec = doRequest(r, "POST", "/api/auto-mood/update", `{"date":"March 10"}`)
	assert.Equal(t, 400, rec.Code)

	rec = doRequest(r, "GET", "/api/mood/history", "")
	assert.Equal(t, 200, rec.Code)
	var history struct {
		Data []map[string]interface{} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history.Data, 2)
}

func TestInsightEndpoints(t *testing.T) {
	r := setupRouter(t)

	rec := doRequest(r, "POST", "/api/tasks", `{"title":"plan week"}`)
	assert.Equal(t, 200, rec.Code)

	rec = doRequest(r, "GET", "/api/insights/tasks", "")
	assert.Equal(t, 200, rec.Code)
	summary := dataOf(t, rec)
	assert.Equal(t, "week", summary["period"])

	rec = doRequest(r, "GET", "/api/insights/tasks?period=banana", "")
	assert.Equal(t, 400, rec.Code)

	rec = doRequest(r, "GET", "/api/insights/weekly", "")
	assert.Equal(t, 200, rec.Code)
	weekly := dataOf(t, rec)
	assert.NotEmpty(t, weekly["week_start"])

	rec = doRequest(r, "GET", "/api/insights/weekly?date=bogus", "")
	assert.Equal(t, 400, rec.Code)

	// No generator configured, so the analysis comes from the fallback.
	rec = doRequest(r, "GET", "/api/insights/ai-analysis", "")
	assert.Equal(t, 200, rec.Code)
	report := dataOf(t, rec)
	assert.Equal(t, "fallback", report["source"])
}

func TestSystemTaskEndpoints(t *testing.T) {
	r := setupRouter(t)

	rec := doRequest(r, "GET", "/api/tasks/system", "")
	assert.Equal(t, 200, rec.Code)

	rec = doRequest(r, "POST", "/api/tasks/system/init", "")
	assert.Equal(t, 200, rec.Code)
	var envelope struct {
		Data []map[string]interface{} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 5)
	assert.Equal(t, true, envelope.Data[0]["system"])

	// Re-seeding is a client error.
	rec = doRequest(r, "POST", "/api/tasks/system/init", "")
	assert.Equal(t, 400, rec.Code)

	// Habit completion pays the habit's own reward.
	taskID := envelope.Data[0]["id"].(string)
	reward := envelope.Data[0]["reward"].(float64)
	rec = doRequest(r, "PUT", "/api/tasks/"+taskID+"/complete", "")
	assert.Equal(t, 200, rec.Code)
	result := dataOf(t, rec)
	assert.Equal(t, reward, result["reward"])
}

func TestCalendarEndpoints(t *testing.T) {
	r := setupRouter(t)

	rec := doRequest(r, "POST", "/api/tasks", `{"title":"due soon","deadline":"2025-03-12T10:00:00Z"}`)
	assert.Equal(t, 200, rec.Code)

	rec = doRequest(r, "GET", "/api/calendar/monthly?year=2025&month=3", "")
	assert.Equal(t, 200, rec.Code)
	cal := dataOf(t, rec)
	days := cal["days"].([]interface{})
	assert.Len(t, days, 31)
	day12 := days[11].(map[string]interface{})
	assert.Equal(t, "2025-03-12", day12["date"])
	count := day12["task_count"].(map[string]interface{})
	assert.Equal(t, float64(1), count["total"])

	rec = doRequest(r, "GET", "/api/calendar/day?date=2025-03-12", "")
	assert.Equal(t, 200, rec.Code)
	detail := dataOf(t, rec)
	stats := detail["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["total_tasks"])
	assert.Equal(t, float64(0), stats["completion_rate"])

	rec = doRequest(r, "GET", "/api/calendar/statistics?year=2025&month=3", "")
	assert.Equal(t, 200, rec.Code)
	monthly := dataOf(t, rec)
	assert.Equal(t, float64(1), monthly["total_tasks"])

	// Out-of-range and malformed parameters.
	rec = doRequest(r, "GET", "/api/calendar/monthly?year=2025&month=13", "")
	assert.Equal(t, 400, rec.Code)
	rec = doRequest(r, "GET", "/api/calendar/statistics?year=abc&month=3", "")
	assert.Equal(t, 400, rec.Code)
	rec = doRequest(r, "GET", "/api/calendar/day?date=someday", "")
	assert.Equal(t, 400, rec.Code)
}

func TestTaskStatsRebuild(t *testing.T) {
	r := setupRouter(t)

	rec := doRequest(r, "POST", "/api/tasks", `{"title":"one"}`)
	assert.Equal(t, 200, rec.Code)
	rec = doRequest(r, "POST", "/api/tasks", `{"title":"two"}`)
	assert.Equal(t, 200, rec.Code)

	rec = doRequest(r, "POST", "/api/tasks/stats/rebuild", "")
	assert.Equal(t, 200, rec.Code)
	var envelope struct {
		Data []map[string]interface{} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 1)
	assert.Equal(t, float64(2), envelope.Data[0]["total"])
}
