package logs

import (
	"encoding/json"
	"strings"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter selects log lines. Zero values match everything.
type Filter struct {
	Component string
	MinLevel  string
	JobID     string
}

// Match reports whether line passes the filter. Console lines look like
// "<ts> LEVEL component: message k=v"; JSON lines carry level, component
// and job_id keys.
func (f Filter) Match(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	level, component, job := parseLine(line)
	if f.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(f.MinLevel)]
		got, known := levelRank[level]
		if ok && (!known || got < want) {
			return false
		}
	}
	if f.Component != "" && !strings.EqualFold(component, f.Component) {
		return false
	}
	if f.JobID != "" && job != f.JobID {
		return false
	}
	return true
}

func parseLine(line string) (level, component, job string) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var record struct {
			Level     string `json:"level"`
			Component string `json:"component"`
			JobID     string `json:"job_id"`
		}
		if json.Unmarshal([]byte(trimmed), &record) == nil {
			return strings.ToLower(record.Level), record.Component, record.JobID
		}
	}

	fields := strings.Fields(trimmed)
	if len(fields) >= 2 {
		level = strings.ToLower(fields[1])
	}
	if len(fields) >= 3 && strings.HasSuffix(fields[2], ":") {
		component = strings.TrimSuffix(fields[2], ":")
	}
	for _, field := range fields {
		if value, ok := strings.CutPrefix(field, "job_id="); ok {
			job = strings.Trim(value, `"`)
			break
		}
	}
	return level, component, job
}
