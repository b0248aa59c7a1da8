package review

import (
	"reflect"

	"github.com/abhisek/quizdeck/internal/quiz"
)

// Workspace is an instructor's working copy of one attempt. Setters change
// only the working copy; Service.Commit makes it durable.
type Workspace struct {
	quiz     quiz.Quiz
	baseline quiz.Attempt
	current  quiz.Attempt
}

// NewWorkspace seeds a working copy from a persisted attempt and its quiz.
func NewWorkspace(a quiz.Attempt, q quiz.Quiz) *Workspace {
	return &Workspace{quiz: q, baseline: a.Clone(), current: a.Clone()}
}

// Quiz returns the quiz the workspace was opened against.
func (w *Workspace) Quiz() quiz.Quiz { return w.quiz }

// Attempt returns a copy of the working state.
func (w *Workspace) Attempt() quiz.Attempt { return w.current.Clone() }

// Baseline returns a copy of the last loaded or committed state.
func (w *Workspace) Baseline() quiz.Attempt { return w.baseline.Clone() }

// Dirty reports whether the working copy differs from the baseline.
func (w *Workspace) Dirty() bool {
	return !reflect.DeepEqual(w.current, w.baseline)
}

// Reset discards uncommitted edits.
func (w *Workspace) Reset() { w.current = w.baseline.Clone() }

// SetQuestionOverride marks questionID correct or incorrect. Repeating the
// same request is a no-op.
func (w *Workspace) SetQuestionOverride(questionID string, markCorrect bool) error {
	next, err := SetQuestionOverride(w.current, w.quiz, questionID, markCorrect)
	if err != nil {
		return err
	}
	w.current = next
	return nil
}

// SetQuestionFeedback sets or clears the feedback on one question.
func (w *Workspace) SetQuestionFeedback(questionID, text string) error {
	next, err := SetQuestionFeedback(w.current, w.quiz, questionID, text)
	if err != nil {
		return err
	}
	w.current = next
	return nil
}

// SetOverallFeedback sets or clears the attempt-level feedback.
func (w *Workspace) SetOverallFeedback(text string) {
	w.current = SetOverallFeedback(w.current, text)
}

// SetFinalScore sets the effective score directly and makes it the baseline
// for later per-question overrides.
func (w *Workspace) SetFinalScore(value int) error {
	next, err := SetFinalScore(w.current, value)
	if err != nil {
		return err
	}
	w.current = next
	return nil
}

// ClearOverrides reverts the working copy to the automatic score.
func (w *Workspace) ClearOverrides() {
	w.current = ClearOverrides(w.current)
}

// committed replaces both copies with the persisted record.
func (w *Workspace) committed(saved quiz.Attempt, q quiz.Quiz) {
	w.quiz = q
	w.baseline = saved.Clone()
	w.current = saved.Clone()
}

// Edit is one grading change applied to a freshly opened workspace.
type Edit func(*Workspace) error

// OverrideQuestion returns an Edit that marks a question correct or incorrect.
func OverrideQuestion(questionID string, markCorrect bool) Edit {
	return func(w *Workspace) error { return w.SetQuestionOverride(questionID, markCorrect) }
}

// QuestionFeedback returns an Edit that sets feedback on one question.
func QuestionFeedback(questionID, text string) Edit {
	return func(w *Workspace) error { return w.SetQuestionFeedback(questionID, text) }
}

// OverallFeedback returns an Edit that sets the attempt-level feedback.
func OverallFeedback(text string) Edit {
	return func(w *Workspace) error { w.SetOverallFeedback(text); return nil }
}

// FinalScore returns an Edit that sets the effective score directly.
func FinalScore(value int) Edit {
	return func(w *Workspace) error { return w.SetFinalScore(value) }
}

// RevertOverrides returns an Edit that restores the automatic score.
func RevertOverrides() Edit {
	return func(w *Workspace) error { w.ClearOverrides(); return nil }
}
