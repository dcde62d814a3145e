package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mkrupp/taskmanager/internal/domain"
)

func TestBadge(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		age       time.Duration
		completed bool
		want      string
	}{
		{"fresh", time.Minute, false, badgeNew},
		{"almost a day", 23*time.Hour + 59*time.Minute, false, badgeNew},
		{"one day", 24 * time.Hour, false, badgeNormal},
		{"six days", 6 * 24 * time.Hour, false, badgeNormal},
		{"one week", 7 * 24 * time.Hour, false, badgeStale},
		{"completed old", 30 * 24 * time.Hour, true, badgeDone},
		{"completed fresh", time.Minute, true, badgeDone},
	}

	for _, tt := range tests {
		task := domain.Task{CreatedAt: now.Add(-tt.age), Completed: tt.completed}
		if got := badge(task, now); got != tt.want {
			t.Errorf("%s: badge() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestHumanAge(t *testing.T) {
	t.Parallel()

	tests := map[time.Duration]string{
		10 * time.Second:  "just now",
		5 * time.Minute:   "5m",
		3 * time.Hour:     "3h",
		50 * time.Hour:    "2d",
		400 * time.Hour:   "16d",
		-10 * time.Second: "just now",
	}

	for in, want := range tests {
		if got := humanAge(in); got != want {
			t.Errorf("humanAge(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderTasks(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "b", Title: "Walk the dog", CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)},
		{ID: "a", Title: "Buy milk", Description: "2 litres", Completed: true, CreatedAt: now.Add(-48 * time.Hour)},
	}

	var table bytes.Buffer
	if err := renderTasks(&table, tasks, formatTable, now); err != nil {
		t.Fatalf("renderTasks(table) error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(table.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "ID") {
		t.Fatalf("table = %q", table.String())
	}

	if !strings.Contains(lines[1], "[ ]") || !strings.Contains(lines[1], badgeNew) || !strings.Contains(lines[1], "1h") {
		t.Errorf("first row = %q", lines[1])
	}

	if !strings.Contains(lines[2], "[x]") || !strings.Contains(lines[2], badgeDone) {
		t.Errorf("second row = %q", lines[2])
	}

	var raw bytes.Buffer
	if err := renderTasks(&raw, tasks, formatJSON, now); err != nil {
		t.Fatalf("renderTasks(json) error = %v", err)
	}

	var views []taskView
	if err := json.Unmarshal(raw.Bytes(), &views); err != nil {
		t.Fatalf("unmarshal json output: %v", err)
	}

	if len(views) != 2 || views[0].Badge != badgeNew || views[1].Description != "2 litres" {
		t.Errorf("json views = %+v", views)
	}

	var yml bytes.Buffer
	if err := renderTasks(&yml, tasks, formatYAML, now); err != nil {
		t.Fatalf("renderTasks(yaml) error = %v", err)
	}

	for _, want := range []string{"- id: b", "badge: new", "badge: done", "description: 2 litres"} {
		if !strings.Contains(yml.String(), want) {
			t.Errorf("yaml output %q does not contain %q", yml.String(), want)
		}
	}

	var empty bytes.Buffer
	if err := renderTasks(&empty, nil, formatTable, now); err != nil || !strings.HasPrefix(empty.String(), "No tasks yet") {
		t.Errorf("renderTasks(empty) = %q, %v", empty.String(), err)
	}

	if err := renderTasks(&empty, tasks, "xml", now); err == nil {
		t.Error("renderTasks(xml) error = nil, want unknown format")
	}
}
