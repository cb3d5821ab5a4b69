package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)

	priorityStyles = map[string]lipgloss.Style{
		"HIGH":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		"MEDIUM": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"LOW":    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

// OK prints a success line.
func OK(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✔ "+msg))
}

// Fail prints an error line.
func Fail(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("✖ "+msg))
}

// Muted prints a faint hint line.
func Muted(w io.Writer, msg string) {
	fmt.Fprintln(w, mutedStyle.Render(msg))
}

// Panel prints lines inside a rounded border.
func Panel(w io.Writer, lines []string) {
	fmt.Fprintln(w, panelString(strings.Join(lines, "\n")))
}

func panelString(inner string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	return border.Render(inner)
}

// ProgressBar renders completion as a gradient bar followed by done/total.
func ProgressBar(done, total, width int) string {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(width))
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total)
	}
	return fmt.Sprintf("%s %d/%d", bar.ViewAs(pct), done, total)
}
