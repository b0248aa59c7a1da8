// Package review lets an instructor grade a submitted attempt: per-question
// correctness overrides, feedback, and a directly entered final score. The
// automatic score is never modified; everything is layered on top of it.
package review

import (
	"fmt"

	"github.com/abhisek/quizdeck/internal/grading"
	"github.com/abhisek/quizdeck/internal/quiz"
)

// EffectiveCorrect reports whether a question currently counts as correct
// for a: the instructor override when one is recorded, the comparator's
// verdict on the stored answer otherwise.
func EffectiveCorrect(a quiz.Attempt, q quiz.Question) bool {
	if v, ok := a.Overrides[q.ID]; ok {
		return v
	}
	ans, answered := a.Answer(q.ID)
	return grading.IsCorrect(q, ans, answered)
}

// SetQuestionOverride marks a question correct or incorrect and moves the
// effective score by the question's points. If the question already has the
// requested effective correctness, a is returned unchanged, so repeating a
// call never awards points twice. The resulting score is kept within
// 0..TotalPoints.
func SetQuestionOverride(a quiz.Attempt, qz quiz.Quiz, questionID string, markCorrect bool) (quiz.Attempt, error) {
	q, ok := qz.Question(questionID)
	if !ok {
		return a, unknownQuestion("overrides", questionID)
	}
	if EffectiveCorrect(a, q) == markCorrect {
		return a, nil
	}

	out := a.Clone()
	score := out.EffectiveScore()
	if markCorrect {
		score += q.Points
	} else {
		score -= q.Points
	}
	score = max(0, min(score, out.TotalPoints))
	out.OverriddenScore = &score

	ans, answered := out.Answer(q.ID)
	if grading.IsCorrect(q, ans, answered) == markCorrect {
		// Back to the comparator's verdict; nothing left to record.
		delete(out.Overrides, q.ID)
		if len(out.Overrides) == 0 {
			out.Overrides = nil
		}
	} else {
		if out.Overrides == nil {
			out.Overrides = make(map[string]bool)
		}
		out.Overrides[q.ID] = markCorrect
	}
	return out, nil
}

// SetQuestionFeedback stores a note for one question. An empty note removes
// it. The score is not affected.
func SetQuestionFeedback(a quiz.Attempt, qz quiz.Quiz, questionID, text string) (quiz.Attempt, error) {
	if _, ok := qz.Question(questionID); !ok {
		return a, unknownQuestion("feedback", questionID)
	}
	out := a.Clone()
	if text == "" {
		delete(out.Feedback, questionID)
		if len(out.Feedback) == 0 {
			out.Feedback = nil
		}
		return out, nil
	}
	if out.Feedback == nil {
		out.Feedback = make(map[string]string)
	}
	out.Feedback[questionID] = text
	return out, nil
}

// SetOverallFeedback replaces the attempt-level note.
func SetOverallFeedback(a quiz.Attempt, text string) quiz.Attempt {
	out := a.Clone()
	out.OverallFeedback = text
	return out
}

// SetFinalScore sets the effective score directly. Later per-question
// overrides move the score relative to this value.
func SetFinalScore(a quiz.Attempt, value int) (quiz.Attempt, error) {
	if value < 0 || value > a.TotalPoints {
		return a, &quiz.ValidationError{
			Field:   "overriddenScore",
			Message: fmt.Sprintf("%d is outside 0..%d", value, a.TotalPoints),
		}
	}
	out := a.Clone()
	out.OverriddenScore = &value
	return out, nil
}

// ClearOverrides drops the score override and every per-question override,
// reverting to the automatic score. Feedback is kept.
func ClearOverrides(a quiz.Attempt) quiz.Attempt {
	out := a.Clone()
	out.OverriddenScore = nil
	out.Overrides = nil
	return out
}

// CheckOverlay verifies that every question id in the grading overlay
// exists on qz and that any overridden score lies within 0..TotalPoints.
func CheckOverlay(a quiz.Attempt, qz quiz.Quiz) error {
	if a.QuizID != qz.ID {
		return &quiz.ValidationError{Field: "quizId", Message: fmt.Sprintf("attempt belongs to %q, not %q", a.QuizID, qz.ID)}
	}
	if v := a.OverriddenScore; v != nil && (*v < 0 || *v > a.TotalPoints) {
		return &quiz.ValidationError{
			Field:   "overriddenScore",
			Message: fmt.Sprintf("%d is outside 0..%d", *v, a.TotalPoints),
		}
	}
	for id := range a.Overrides {
		if _, ok := qz.Question(id); !ok {
			return unknownQuestion("overrides", id)
		}
	}
	for id := range a.Feedback {
		if _, ok := qz.Question(id); !ok {
			return unknownQuestion("feedback", id)
		}
	}
	return nil
}

func unknownQuestion(field, id string) error {
	return &quiz.ValidationError{Field: field, Message: fmt.Sprintf("question %q is not on the quiz", id)}
}
