// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasktrack/internal/service"
)

// UnsyncedMarker flags tasks the backend has not acknowledged yet.
const UnsyncedMarker = " *"

// FormatTask formats a task line.
// Format: "{N:>4}  [{x| }] {TITLE}[ *]\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	check := " "
	if task.Completed {
		check = "x"
	}
	marker := ""
	if !task.Synced {
		marker = UnsyncedMarker
	}
	fmt.Fprintf(w, "%4d  [%s] %s%s\n", num, check, normalizeTitle(task.Title), marker)
}

// FormatTaskDetail formats the indented detail lines shown by list --long.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "          id: %s\n", task.ID)
	if d := strings.TrimSpace(task.Description); d != "" {
		fmt.Fprintf(w, "          %s\n", normalizeTitle(d))
	}
	if task.Location != nil {
		fmt.Fprintf(w, "          at: %.6f, %.6f\n", task.Location.Latitude, task.Location.Longitude)
	}
	if task.PhotoURI != "" {
		fmt.Fprintf(w, "          photo: %s\n", task.PhotoURI)
	}
}

// FormatUser formats the signed-in user for whoami.
func FormatUser(w io.Writer, user service.User, usingMock bool) {
	line := user.Email
	if user.Name != "" {
		line = fmt.Sprintf("%s <%s>", user.Name, user.Email)
	}
	if usingMock {
		line += " [demo]"
	}
	fmt.Fprintln(w, line)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
