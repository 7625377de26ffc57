package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"autoscribe/internal/domain"
)

type styles struct {
	title    lipgloss.Style
	meta     lipgloss.Style
	question lipgloss.Style
	selected lipgloss.Style
	answer   lipgloss.Style
	caption  lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			title:    plain.Bold(true),
			meta:     plain,
			question: plain.Bold(true),
			selected: plain.Bold(true),
			answer:   plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
			caption:  plain.Italic(true),
			err:      plain,
			help:     plain,
		}
	}
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		meta:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		question: lipgloss.NewStyle().Bold(true),
		selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		answer:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1),
		caption:  lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("14")),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func render(state State, bar progress.Model, width int, noColor bool) string {
	st := newStyles(noColor)
	lines := []string{renderHeader(state, st)}

	if !state.HasView {
		lines = append(lines, st.meta.Render("Loading exam..."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	view := state.View
	lines = append(lines,
		bar.ViewAs(view.ProgressPercent/100),
		st.question.Render(wrap(fmt.Sprintf("Q%d. %s (%d marks)", view.QuestionIndex+1, view.QuestionText, view.Marks), width)),
	)
	if view.Mode == domain.QuestionKindMCQ {
		for i, option := range view.Options {
			line := fmt.Sprintf("  %s. %s", domain.OptionLetter(i), option)
			if view.SelectedOption != nil && *view.SelectedOption == i {
				line = st.selected.Render("> " + strings.TrimPrefix(line, "  "))
			}
			lines = append(lines, line)
		}
	} else {
		answer := view.AnswerText
		if answer == "" {
			answer = st.meta.Render("(speak your answer)")
		}
		if view.Locked {
			answer += "  [locked]"
		}
		lines = append(lines, st.answer.Render(wrap(answer, width-4)))
	}

	if state.Caption != "" {
		lines = append(lines, st.caption.Render(wrap("♪ "+state.Caption, width)))
	}
	if state.LastError != "" {
		lines = append(lines, st.err.Render(state.LastError))
	}
	lines = append(lines, st.help.Render("n next · p previous · s submit · space mic · q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderHeader(state State, st styles) string {
	name := state.ExamName
	if name == "" {
		name = "Exam"
	}
	parts := []string{st.title.Render(name)}
	if state.HasTime {
		parts = append(parts, formatRemaining(state.Remaining))
	}
	if status := phaseLabel(state); status != "" {
		parts = append(parts, st.meta.Render(status))
	}
	return strings.Join(parts, "  ")
}

func phaseLabel(state State) string {
	switch {
	case state.Phase == domain.FlowPhaseSubmitted:
		return "submitted"
	case state.Paused:
		return "mic paused"
	case state.Phase == "":
		return ""
	default:
		return string(state.Phase)
	}
}

func formatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	total := int(remaining.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
