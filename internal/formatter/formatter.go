// package formatter provides functions to export task boards to various formats (CSV, Markdown, plain text, JSON)
// and to render coach replies and training figures for the terminal.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/tasks"
)

// Format is an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// ParseFormat accepts json, csv, markdown (or md) and txt (or text).
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, raw)
	}
}

// Extension is the file extension used for f.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	default:
		return string(f)
	}
}

// ExportToCSV converts tasks to CSV format with columns: ID, Title, Category, Priority, Status, Due Date, Subtasks, Created, Notes
func ExportToCSV(list []models.Task) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Category", "Priority", "Status", "Due Date", "Subtasks", "Created", "Notes"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range list {
		done, total := t.SubtaskProgress()
		created := ""
		if !t.Created.IsZero() {
			created = t.Created.Format(time.RFC3339)
		}
		record := []string{
			t.ID,
			t.Title,
			t.Category,
			string(t.Priority),
			string(t.Status),
			t.DueDate,
			fmt.Sprintf("%d/%d", done, total),
			created,
			t.Notes,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts tasks to a Markdown checklist grouped by status
func ExportToMarkdown(list []models.Task, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	stats := tasks.ComputeStats(list, now)

	buf.WriteString("# Training Tasks\n\n")
	fmt.Fprintf(&buf, "**Total**: %d | **Completed**: %d | **Pending**: %d | **Overdue**: %d\n\n",
		stats.Total, stats.Completed, stats.Pending, stats.Overdue)

	for _, status := range models.TaskStatuses {
		var lane []models.Task
		for _, t := range list {
			if t.Status == status {
				lane = append(lane, t)
			}
		}
		if len(lane) == 0 {
			continue
		}

		fmt.Fprintf(&buf, "## %s\n\n", titleCase(status.Label()))
		for _, t := range lane {
			check := " "
			if t.Status == models.StatusCompleted {
				check = "x"
			}
			fmt.Fprintf(&buf, "- [%s] **%s** (%s, %s)", check, t.Title, t.Priority, t.Category)
			if t.DueDate != "" {
				fmt.Fprintf(&buf, " due %s", t.DueDate)
			}
			if t.Overdue(now) {
				buf.WriteString(" ⚠ overdue")
			}
			buf.WriteString("\n")
			if t.Description != "" {
				fmt.Fprintf(&buf, "  > %s\n", t.Description)
			}
			for _, s := range t.Subtasks {
				mark := " "
				if s.Completed {
					mark = "x"
				}
				fmt.Fprintf(&buf, "  - [%s] %s\n", mark, s.Title)
			}
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts tasks to plain text format
func ExportToText(list []models.Task) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Tasks: %d\n\n", len(list))
	for i, t := range list {
		fmt.Fprintf(&buf, "%d. [%s] %s (%s)", i+1, t.Status.Label(), t.Title, t.Priority)
		if t.DueDate != "" {
			fmt.Fprintf(&buf, " due %s", t.DueDate)
		}
		if done, total := t.SubtaskProgress(); total > 0 {
			fmt.Fprintf(&buf, " %d/%d subtasks", done, total)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// Export renders tasks in format.
func Export(list []models.Task, format Format, now time.Time) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(list)
	case FormatMarkdown:
		return ExportToMarkdown(list, now)
	case FormatText:
		return ExportToText(list)
	case FormatJSON:
		return shared.MarshalJSON(list, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes tasks to path in format and returns the path written.
//
// Defaults to boxing_tasks.{ext} in the working directory.
func WriteExport(list []models.Task, format Format, path string, now time.Time) (string, error) {
	if path == "" {
		path = "boxing_tasks." + format.Extension()
	}

	data, err := Export(list, format, now)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
