package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/status"
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
		return colorText(kind, base)
	}
	return base
}

type kindStyle struct {
	label string
	color string
}

var kindStyles = map[statusKind]kindStyle{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func statusKindLabel(kind statusKind) string {
	if style, ok := kindStyles[kind]; ok {
		return style.label
	}
	return "INFO"
}

// colorText wraps text in the colour of kind; unknown kinds stay plain.
func colorText(kind statusKind, text string) string {
	if style, ok := kindStyles[kind]; ok {
		return style.color + text + ansiReset
	}
	return text
}

// kindForCode maps a status code tone onto a render kind.
func kindForCode(code status.Code) statusKind {
	switch code.Tone() {
	case status.ToneGood:
		return statusOK
	case status.ToneWarn:
		return statusWarn
	case status.ToneBad:
		return statusError
	default:
		return statusInfo
	}
}

func kindForSeverity(severity status.Severity) statusKind {
	switch severity {
	case status.SeverityError:
		return statusError
	case status.SeverityWarning:
		return statusWarn
	default:
		return statusInfo
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
