// Package take is the terminal screen for sitting a timed quiz. It drives an
// attempt.Session in manual tick mode: the countdown is advanced by
// one-second tea.Tick messages.
package take

import (
	"context"
	"errors"
	"strconv"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/quizdeck/internal/attempt"
	"github.com/abhisek/quizdeck/internal/quiz"
	"github.com/abhisek/quizdeck/internal/suggest"
	"github.com/abhisek/quizdeck/internal/ui/components"
)

// SuggestFunc produces the follow-up shown after a successful submission.
type SuggestFunc func(ctx context.Context, a quiz.Attempt) (suggest.Suggestion, error)

type Model struct {
	ctx     context.Context
	sess    *attempt.Session
	suggest SuggestFunc

	width, height int

	input    textinput.Model
	cursor   int // highlighted option of a multiple-choice question
	tickGen  int
	confirm  bool // quit confirmation is showing
	busy     bool // a submission command is running
	fetching bool // the follow-up suggestion has been requested
	errMsg   string
	advice   *suggest.Suggestion
	abandons bool // the user left without submitting
}

// New builds the screen for s, which must be in the Landing phase and built
// with attempt.WithTickInterval(0). sf may be nil.
func New(ctx context.Context, s *attempt.Session, sf SuggestFunc) *Model {
	in := textinput.New()
	in.Placeholder = "Type your answer..."
	in.CharLimit = 200
	return &Model{ctx: ctx, sess: s, suggest: sf, input: in}
}

// Session returns the session currently on screen; retakes replace it.
func (m *Model) Session() *attempt.Session { return m.sess }

// Abandoned reports whether the user quit an active attempt.
func (m *Model) Abandoned() bool { return m.abandons }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if msg.gen != m.tickGen || m.sess.Phase() != attempt.PhaseActive {
			return m, nil
		}
		sess, ctx := m.sess, m.ctx
		return m, func() tea.Msg { return tickedMsg{gen: msg.gen, err: sess.Tick(ctx)} }

	case tickedMsg:
		if msg.gen != m.tickGen {
			return m, nil
		}
		return m.afterSubmitAttempt(msg.err, true)

	case submittedMsg:
		m.busy = false
		return m.afterSubmitAttempt(msg.err, false)

	case suggestionMsg:
		s := msg.s
		m.advice = &s
		if msg.err != nil && s.Message == "" {
			m.errMsg = msg.err.Error()
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	if m.activeShortAnswer() {
		return m.updateInput(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		if m.sess.Phase() == attempt.PhaseActive {
			m.abandons = true
		}
		m.sess.Close()
		return m, tea.Quit
	}

	switch m.sess.Phase() {
	case attempt.PhaseLanding:
		switch key {
		case "enter":
			if err := m.sess.Start(m.ctx); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
			m.errMsg = ""
			return m, tea.Batch(m.syncQuestion(), m.scheduleTick())
		case "q", "esc":
			m.sess.Close()
			return m, tea.Quit
		}
		return m, nil

	case attempt.PhaseFinished:
		switch key {
		case "r":
			next, err := m.sess.Retake()
			if err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
			m.sess = next
			m.advice = nil
			m.fetching = false
			m.errMsg = ""
			m.tickGen++
			return m, nil
		case "q", "esc", "enter":
			return m, tea.Quit
		}
		return m, nil
	}

	if m.confirm {
		switch key {
		case "y", "Y":
			m.abandons = true
			m.sess.Close()
			return m, tea.Quit
		case "n", "N", "esc":
			m.confirm = false
		}
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	switch key {
	case "esc":
		m.confirm = true
		return m, nil
	case "ctrl+s":
		return m.submit()
	case "tab", "right":
		m.sess.Next()
		return m, m.syncQuestion()
	case "shift+tab", "left":
		m.sess.Prev()
		return m, m.syncQuestion()
	}

	view := m.sess.View()
	if body, ok := view.Question.Body.(quiz.MultipleChoice); ok {
		return m.handleChoiceKey(key, body.Options)
	}
	if key == "enter" {
		if view.QuestionIndex == view.QuestionCount-1 {
			return m.submit()
		}
		m.sess.Next()
		return m, m.syncQuestion()
	}
	return m.updateInput(msg)
}

func (m *Model) handleChoiceKey(key string, options []string) (tea.Model, tea.Cmd) {
	list := components.ChoiceList{Options: options, Cursor: m.cursor}
	switch key {
	case "up", "k":
		m.cursor = list.Move(-1).Cursor
	case "down", "j":
		m.cursor = list.Move(1).Cursor
	case "enter", "space":
		m.record(options[m.cursor])
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(options) {
			m.cursor = n - 1
			m.record(options[m.cursor])
		}
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.record(v)
	}
	return m, cmd
}

// record stores an answer for the current question. After the deadline the
// session refuses it and the screen says so.
func (m *Model) record(answer string) {
	if err := m.sess.SetAnswer(answer); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
}

// syncQuestion resets the input widgets to the current question's stored
// answer.
func (m *Model) syncQuestion() tea.Cmd {
	view := m.sess.View()
	answer := view.Answers[view.Question.ID]
	m.cursor = 0
	if body, ok := view.Question.Body.(quiz.MultipleChoice); ok {
		for i, o := range body.Options {
			if o == answer {
				m.cursor = i
			}
		}
		m.input.Blur()
		return nil
	}
	m.input.SetValue(answer)
	m.input.CursorEnd()
	return m.input.Focus()
}

// submit starts a manual submission. Countdown ticks already in flight go
// stale.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	m.busy = true
	m.tickGen++
	m.errMsg = ""
	sess, ctx := m.sess, m.ctx
	return m, func() tea.Msg { return submittedMsg{err: sess.Submit(ctx)} }
}

// afterSubmitAttempt handles the outcome of a tick or a manual submit.
func (m *Model) afterSubmitAttempt(err error, fromTick bool) (tea.Model, tea.Cmd) {
	if err != nil && !errors.Is(err, quiz.ErrAlreadySubmitted) {
		m.errMsg = err.Error()
	}
	switch m.sess.Phase() {
	case attempt.PhaseFinished:
		return m, m.fetchSuggestion()
	case attempt.PhaseActive:
		if fromTick && m.sess.View().RemainingSeconds > 0 {
			return m, m.scheduleTick()
		}
		if !fromTick && err != nil {
			// A failed manual submit restarts the countdown.
			m.tickGen++
			return m, m.scheduleTick()
		}
	}
	return m, nil
}

func (m *Model) fetchSuggestion() tea.Cmd {
	res, ok := m.sess.Result()
	if !ok || m.suggest == nil || m.fetching {
		return nil
	}
	m.fetching = true
	sf, ctx := m.suggest, m.ctx
	return func() tea.Msg {
		s, err := sf(ctx, res.Attempt)
		return suggestionMsg{s: s, err: err}
	}
}

func (m *Model) scheduleTick() tea.Cmd {
	gen := m.tickGen
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

func (m *Model) activeShortAnswer() bool {
	if m.sess.Phase() != attempt.PhaseActive || m.confirm || m.busy {
		return false
	}
	_, ok := m.sess.View().Question.Body.(quiz.ShortAnswer)
	return ok
}

// Run shows m full screen until the user quits.
func Run(m *Model) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
