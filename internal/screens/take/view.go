package take

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizdeck/internal/attempt"
	"github.com/abhisek/quizdeck/internal/quiz"
	"github.com/abhisek/quizdeck/internal/ui/components"
	"github.com/abhisek/quizdeck/internal/ui/layout"
	"github.com/abhisek/quizdeck/internal/ui/theme"
)

func (m *Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

func (m *Model) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	q := m.sess.Quiz()
	var body, status string
	switch m.sess.Phase() {
	case attempt.PhaseLanding:
		body = m.renderLanding(q)
	case attempt.PhaseActive:
		view := m.sess.View()
		status = theme.Countdown(view.RemainingSeconds).Render(clock(view.RemainingSeconds))
		if m.confirm {
			body = renderConfirm()
		} else {
			body = m.renderQuestion(view)
		}
	case attempt.PhaseFinished:
		body = m.renderResult()
	}
	if m.errMsg != "" {
		body += "\n\n" + theme.Warning.Render(m.errMsg)
	}

	header := layout.RenderHeader(q.Title, status, m.width)
	footer := layout.RenderFooter(m.keyHints(), m.width)
	return layout.RenderFrame(header, body, footer, m.width, m.height)
}

func (m *Model) keyHints() []layout.KeyHint {
	switch m.sess.Phase() {
	case attempt.PhaseLanding:
		return []layout.KeyHint{{Key: "Enter", Description: "Start"}, {Key: "q", Description: "Quit"}}
	case attempt.PhaseFinished:
		return []layout.KeyHint{{Key: "r", Description: "Retake"}, {Key: "q", Description: "Quit"}}
	}
	if m.confirm {
		return []layout.KeyHint{{Key: "y", Description: "Leave without submitting"}, {Key: "n", Description: "Keep going"}}
	}
	return []layout.KeyHint{
		{Key: "Tab/→", Description: "Next"},
		{Key: "Shift+Tab/←", Description: "Previous"},
		{Key: "Ctrl+S", Description: "Submit"},
		{Key: "Esc", Description: "Leave"},
	}
}

func (m *Model) renderLanding(q quiz.Quiz) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(q.Title))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s  ·  %d questions  ·  %d points\n", q.Difficulty, len(q.Questions), q.TotalPoints())
	fmt.Fprintf(&b, "Time limit: %s\n\n", clock(int(m.sess.Duration().Seconds())))
	b.WriteString(theme.Hint.Render("Answers are submitted automatically when time runs out."))
	return b.String()
}

func (m *Model) renderQuestion(view attempt.ActiveView) string {
	if view.QuestionCount == 0 {
		return theme.Hint.Render("This quiz has no questions. Press Ctrl+S to submit.")
	}

	var b strings.Builder
	answered := len(view.Answers)
	fmt.Fprintf(&b, "Question %d of %d", view.QuestionIndex+1, view.QuestionCount)
	b.WriteString(theme.Hint.Render(fmt.Sprintf("   %d answered   %d pts", answered, view.Question.Points)))
	b.WriteString("\n")
	b.WriteString(components.NewProgressBar("", float64(view.QuestionIndex+1)/float64(view.QuestionCount), false, min(40, m.width-8)).View())
	b.WriteString("\n\n")
	b.WriteString(theme.Body.Bold(true).Render(view.Question.Text))
	b.WriteString("\n\n")

	current, hasAnswer := view.Answers[view.Question.ID]
	switch body := view.Question.Body.(type) {
	case quiz.MultipleChoice:
		b.WriteString(components.ChoiceList{
			Options:   body.Options,
			Cursor:    m.cursor,
			Chosen:    current,
			HasChosen: hasAnswer,
		}.View())
		b.WriteString("\n" + theme.Hint.Render("Pick with 1-9 or arrows + Enter"))
	case quiz.ShortAnswer:
		b.WriteString("Answer: " + m.input.View())
	}

	if view.Submitting || m.busy {
		b.WriteString("\n\n" + theme.Hint.Render("Submitting..."))
	}
	return b.String()
}

func renderConfirm() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.Body.Bold(true).Render("Leave this attempt?"),
		theme.Hint.Render("Nothing is saved unless you submit."),
	)
}

func (m *Model) renderResult() string {
	res, ok := m.sess.Result()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(theme.Title.Render(fmt.Sprintf("%d / %d  (%d%%)", res.Attempt.EffectiveScore(), res.Attempt.TotalPoints, res.Percentage)))
	b.WriteString("\n\n")

	q := m.sess.Quiz()
	for i, r := range res.Breakdown {
		text := r.QuestionID
		if qu, ok := q.Question(r.QuestionID); ok {
			text = qu.Text
		}
		mark := theme.Incorrect.Render("✗")
		if r.Correct {
			mark = theme.Correct.Render("✓")
		}
		answer := r.Answer
		if !r.Answered {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "%s %d. %s  %s\n", mark, i+1, text, theme.Hint.Render(fmt.Sprintf("%s  %d/%d", answer, r.Awarded, r.Points)))
	}

	if m.advice != nil {
		b.WriteString("\n")
		b.WriteString(theme.Card.Render(m.advice.Message))
	}
	return b.String()
}

func clock(seconds int) string {
	seconds = max(0, seconds)
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
