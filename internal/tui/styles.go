package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-segment-switch/internal/switcher"
	"github.com/litescript/ls-segment-switch/internal/theme"
)

// kindStyle picks the status bar style for a notification kind
func kindStyle(styles theme.Styles, kind switcher.Kind) lipgloss.Style {
	switch kind {
	case switcher.KindError:
		return styles.Error
	case switcher.KindWarning:
		return styles.Warning
	default:
		return styles.Info
	}
}

func phaseLabel(phase switcher.Phase) string {
	switch phase {
	case switcher.PhaseQueued:
		return "queued"
	case switcher.PhaseValidating:
		return "validating"
	case switcher.PhaseConnecting:
		return "connecting"
	case switcher.PhaseTheming:
		return "applying theme"
	case switcher.PhaseCommitting:
		return "saving"
	default:
		return "working"
	}
}

// TruncateString truncates a string to max runes with ellipsis
func TruncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// PadRight pads a string to a specific display width
func PadRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return TruncateString(s, width)
	}
	return s + strings.Repeat(" ", width-w)
}
