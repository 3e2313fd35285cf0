package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"restronaut/internal/daemon"
	"restronaut/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}

// renderStatus formats a daemon status for the terminal.
func renderStatus(status daemon.Status, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	if status.Running {
		detail := fmt.Sprintf("Running (pid %d)", status.PID)
		if !status.StartedAt.IsZero() {
			detail += ", up " + time.Since(status.StartedAt).Round(time.Second).String()
		}
		lines = append(lines, renderStatusLine("Restronaut", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Restronaut", statusError, "Not running", colorize))
	}
	lines = append(lines, renderStatusLine("Log file", statusInfo, status.LogPath, colorize))
	if status.APIAddress != "" {
		lines = append(lines, renderStatusLine("API", statusInfo, status.APIAddress, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Preflight", colorize)...)
	if len(status.Preflight) == 0 {
		lines = append(lines, renderStatusLine("Checks", statusWarn, "not run", colorize))
	} else {
		lines = append(lines, preflightLines(status.Preflight, colorize)...)
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Folders", colorize)...)
	lines = append(lines, monitorTable(status))
	return strings.Join(lines, "\n") + "\n"
}

func monitorTable(status daemon.Status) string {
	headers := []string{"Folder", "Path", "Watching", "Deleted", "Skipped", "Retained", "Reported", "Archived", "Retries", "In flight", "Last error"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(status.Monitors))
	for _, m := range status.Monitors {
		lastErr := m.Stats.LastError
		if lastErr == "" {
			lastErr = m.LastError
		}
		rows = append(rows, []string{
			m.Directory,
			m.Path,
			yesNo(m.Running),
			strconv.FormatInt(m.Stats.Deleted+m.Stats.Discarded, 10),
			strconv.FormatInt(m.Stats.Skipped, 10),
			strconv.FormatInt(m.Stats.Retained, 10),
			strconv.FormatInt(m.Stats.Reported, 10),
			strconv.FormatInt(m.Stats.Archived, 10),
			strconv.FormatInt(m.Stats.Retries, 10),
			strconv.Itoa(m.InFlight),
			truncate(lastErr, 60),
		})
	}
	return renderTable(headers, rows, aligns)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
