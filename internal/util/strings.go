// Package util provides terminal-output formatting helpers for the
// claudia CLI's table-shaped commands (task list, status).
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString truncates a string to maxLen runes, adding "..." if truncated.
// This is a simple truncation that does not account for ANSI escape codes or
// wide characters. For terminal output with styling, use TruncateANSI instead.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI truncates a string to maxWidth visual columns, adding "..." if truncated.
// This function properly handles ANSI escape codes and wide characters, making it
// suitable for terminal output with styling.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// Use ANSI-aware truncation to preserve escape sequences
	// ansi.Truncate includes the tail in the final width calculation
	return ansi.Truncate(s, maxWidth, "...")
}

// TaskTitleColumnWidth is the column width `claudia task list` truncates
// task titles to; the title is the last column, so a handful of long
// titles don't push rows off a normal terminal width.
const TaskTitleColumnWidth = 60

// TruncateTaskTitle truncates a task title to TaskTitleColumnWidth visual
// columns, ANSI- and wide-rune-aware.
func TruncateTaskTitle(title string) string {
	return TruncateANSI(title, TaskTitleColumnWidth)
}

// SessionIDColumnWidth is the column width claudia truncates a session
// id to when listing sessions in a table. Session ids are
// caller-supplied (often a generated UUID), so a fixed width keeps the
// following role/working-on columns aligned regardless of how long a
// given session chose to make its id.
const SessionIDColumnWidth = 24

// TruncateSessionID truncates a session id to SessionIDColumnWidth
// visual columns, ANSI- and wide-rune-aware. `claudia status` applies its
// staleness color after truncating.
func TruncateSessionID(id string) string {
	return TruncateANSI(id, SessionIDColumnWidth)
}
