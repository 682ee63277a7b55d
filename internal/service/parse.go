package service

import (
	"fmt"
	"regexp"
	"strings"
)

// Analysis is the structured result of an AI productivity analysis.
type Analysis struct {
	Overview     string `json:"overview"`
	Achievements string `json:"achievements"`
	Suggestions  string `json:"suggestions"`
	NextSteps    string `json:"next_steps"`
}

// AnalysisData feeds the deterministic fallback analysis.
type AnalysisData struct {
	CompletedTasksCount   int
	PendingTasksCount     int
	CompletionRate        int
	ImportantPendingCount int
	MainPlantName         string
}

var sectionLabels = []struct {
	key      string
	synonyms []string
}{
	{"overview", []string{"overall assessment", "overall evaluation", "overview", "general assessment"}},
	{"achievements", []string{"achievements and progress", "achievements", "accomplishments", "progress"}},
	{"suggestions", []string{"improvement suggestions", "suggestions", "recommendations"}},
	{"nextSteps", []string{"next steps", "next actions", "action plan", "what's next"}},
}

var defaultSections = map[string]string{
	"overview":     "You are making progress.",
	"achievements": "Keep it up.",
	"suggestions":  "Try setting and completing more tasks.",
	"nextSteps":    "Focus on your most important task.",
}

// ParseAnalysis extracts the four analysis sections from free-form model
// output. It is a best-effort layered parse: label matching first, then
// positional paragraphs, then per-section defaults. The result is always
// fully populated.
func ParseAnalysis(text string) Analysis {
	sections := matchLabeledSections(text)
	if empty(sections) {
		sections = splitPositional(text)
	}
	fillDefaults(sections)
	return Analysis{
		Overview:     sections["overview"],
		Achievements: sections["achievements"],
		Suggestions:  sections["suggestions"],
		NextSteps:    sections["nextSteps"],
	}
}

func empty(sections map[string]string) bool {
	for _, v := range sections {
		if v != "" {
			return false
		}
	}
	return true
}

// matchLabeledSections tries, per section, each synonym against three
// layouts in order: label+colon+inline text, label on its own line with
// the text on the next one, and label+space+inline text. The first match
// wins.
func matchLabeledSections(text string) map[string]string {
	normalized := strings.TrimSpace(text)
	normalized = regexp.MustCompile(`\n+`).ReplaceAllString(normalized, "\n")

	sections := make(map[string]string, len(sectionLabels))
	for _, section := range sectionLabels {
		for _, label := range section.synonyms {
			if sections[section.key] != "" {
				break
			}
			quoted := regexp.QuoteMeta(label)
			shapes := []string{
				`(?i)` + quoted + `[:：]\s*([^\n]+)`,
				`(?i)` + quoted + `[^\n]*?\n\s*([^\n]+)`,
				`(?i)` + quoted + `\s+([^\n]+)`,
			}
			for _, shape := range shapes {
				if m := regexp.MustCompile(shape).FindStringSubmatch(normalized); m != nil && strings.TrimSpace(m[1]) != "" {
					sections[section.key] = strings.TrimSpace(m[1])
					break
				}
			}
		}
	}
	return sections
}

// splitPositional maps the first four non-empty lines to the sections in
// order. Fewer than four lines fill what they can.
func splitPositional(text string) map[string]string {
	sections := make(map[string]string, len(sectionLabels))
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	keys := []string{"overview", "achievements", "suggestions", "nextSteps"}
	for i, key := range keys {
		if i < len(paragraphs) {
			sections[key] = paragraphs[i]
		}
	}
	return sections
}

func fillDefaults(sections map[string]string) {
	for key, fallback := range defaultSections {
		if sections[key] == "" {
			sections[key] = fallback
		}
	}
}

// FallbackAnalysis builds a deterministic analysis from task counts when
// the generation provider is unavailable or exhausted.
func FallbackAnalysis(data AnalysisData) Analysis {
	plantName := data.MainPlantName
	if plantName == "" {
		plantName = "your plant"
	}

	var a Analysis

	switch {
	case data.CompletedTasksCount == 0 && data.PendingTasksCount == 0:
		a.Overview = "No task data yet. Add some tasks to start tracking your progress!"
	case data.CompletionRate >= 70:
		a.Overview = fmt.Sprintf("Excellent! You have completed %d tasks with a %d%% completion rate. Keep up this pace!", data.CompletedTasksCount, data.CompletionRate)
	case data.CompletionRate >= 40:
		a.Overview = fmt.Sprintf("You have completed %d tasks with %d still pending, a %d%% completion rate. You are keeping a steady pace.", data.CompletedTasksCount, data.PendingTasksCount, data.CompletionRate)
	default:
		a.Overview = fmt.Sprintf("You have completed %d tasks with %d still pending, a %d%% completion rate. There is room to pick up the pace.", data.CompletedTasksCount, data.PendingTasksCount, data.CompletionRate)
	}

	if data.CompletedTasksCount > 0 {
		a.Achievements = fmt.Sprintf("You have finished %d tasks; every one of them counts. %s is proud of you.", data.CompletedTasksCount, plantName)
	} else {
		a.Achievements = fmt.Sprintf("Start your first task! %s is waiting to grow with you.", plantName)
	}

	switch {
	case data.ImportantPendingCount > 0:
		a.Suggestions = fmt.Sprintf("%d important tasks are still pending; tackle those first. Splitting big tasks into smaller ones makes them easier to start and finish.", data.ImportantPendingCount)
	case data.PendingTasksCount > 0:
		a.Suggestions = "Try assigning priorities to your tasks so you can spend your time and energy where it matters most."
	default:
		a.Suggestions = "No pending tasks right now. Plan some new goals and keep the momentum going!"
	}

	switch {
	case data.ImportantPendingCount > 0:
		a.NextSteps = fmt.Sprintf("Focus on the most important task and help %s grow.", plantName)
	case data.PendingTasksCount > 0:
		a.NextSteps = fmt.Sprintf("Keep up the good task habits and complete more tasks to help %s grow.", plantName)
	default:
		a.NextSteps = "Set a new goal, create new tasks, and keep growing!"
	}

	return a
}
