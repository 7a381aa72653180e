// Package cli renders search progress, result tables and audits for the
// terminal using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

var (
	// PrimaryColor is the accent used for titles.
	PrimaryColor = lipgloss.Color("#5B8DEF")
	// SuccessColor marks completed steps.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor marks degraded results.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor marks failures.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// SubtleColor is used for secondary text.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	// WarningStyle formats warnings.
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	// ErrorStyle formats errors.
	ErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor)
	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().Foreground(SubtleColor)
	// HeaderStyle formats table headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

	// BoxStyle is used for bordered summaries.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)
)

// Icons.
const (
	StepIcon    = "›"
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "!"
)

var priorityColors = map[prospect.Priority]lipgloss.Color{
	prospect.PriorityHot:    lipgloss.Color("#FF6B6B"),
	prospect.PriorityHigh:   lipgloss.Color("#FFA94D"),
	prospect.PriorityMedium: lipgloss.Color("#FFE66D"),
	prospect.PriorityLow:    lipgloss.Color("#95E1D3"),
	prospect.PriorityCold:   lipgloss.Color("#666666"),
}

// FormatPriority colours a priority bucket.
func FormatPriority(p prospect.Priority) string {
	color, ok := priorityColors[p]
	if !ok {
		return string(p)
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(string(p))
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatStep formats a pipeline step line.
func FormatStep(message string) string {
	return SubtleStyle.Render(StepIcon) + " " + message
}

// RenderBox renders content in a titled box.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), content))
}
