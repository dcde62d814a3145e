package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mkrupp/taskmanager/internal/domain"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// Priority badges, derived from completion and age.
const (
	badgeDone   = "done"
	badgeNew    = "new"
	badgeNormal = "normal"
	badgeStale  = "stale"
)

var errUnknownFormat = errors.New("unknown output format")

// badge classifies a task by age: completed tasks are done, otherwise younger
// than a day is new, younger than a week normal, anything older stale.
func badge(t domain.Task, now time.Time) string {
	age := now.Sub(t.CreatedAt)

	switch {
	case t.Completed:
		return badgeDone
	case age < 24*time.Hour:
		return badgeNew
	case age < 7*24*time.Hour:
		return badgeNormal
	default:
		return badgeStale
	}
}

// taskView is a task as shown to the user.
type taskView struct {
	ID          string    `json:"id"                    yaml:"id"`
	Title       string    `json:"title"                 yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Completed   bool      `json:"completed"             yaml:"completed"`
	Badge       string    `json:"badge"                 yaml:"badge"`
	CreatedAt   time.Time `json:"createdAt"             yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"             yaml:"updatedAt"`
}

func newTaskView(t domain.Task, now time.Time) taskView {
	return taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Badge:       badge(t, now),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// humanAge renders d coarsely: "just now", "5m", "3h", "12d".
func humanAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func checkbox(completed bool) string {
	if completed {
		return "[x]"
	}

	return "[ ]"
}

func renderTasks(w io.Writer, tasks []domain.Task, format string, now time.Time) error {
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(t, now))
	}

	switch format {
	case formatJSON:
		return writeJSON(w, views)
	case formatYAML:
		return writeYAML(w, views)
	case formatTable, "":
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No tasks yet. Add one with: taskctl add <title>")

		return err //nolint:wrapcheck
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tBADGE\tAGE\tTITLE")

	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.ID, checkbox(v.Completed), v.Badge, humanAge(now.Sub(v.CreatedAt)), v.Title)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}

	return nil
}

func renderTask(w io.Writer, t domain.Task, now time.Time) error {
	v := newTaskView(t, now)

	_, err := fmt.Fprintf(w, "%s %s %s (%s)\n", checkbox(v.Completed), v.Title, v.ID, v.Badge)
	if err == nil && v.Description != "" {
		_, err = fmt.Fprintf(w, "    %s\n", v.Description)
	}

	return err //nolint:wrapcheck
}

func renderProfile(w io.Writer, p domain.UserProfile) error {
	lastLogin := "never"
	if p.LastLogin != nil {
		lastLogin = p.LastLogin.Local().Format(time.DateTime)
	}

	_, err := fmt.Fprintf(w, "%s <%s>\n  id:           %s\n  member since: %s\n  last login:   %s\n",
		p.Username, p.Email, p.ID, p.CreatedAt.Local().Format(time.DateOnly), lastLogin)

	return err //nolint:wrapcheck
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}
