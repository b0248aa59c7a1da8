package quiz

import (
	"math"
	"time"
)

// Attempt is one student's submitted sitting of a quiz. Answers, Score,
// TotalPoints and SubmittedAt are fixed at submission; only the grading
// overlay changes afterwards.
type Attempt struct {
	ID          string            `json:"id"`
	QuizID      string            `json:"quizId"`
	StudentID   string            `json:"studentId"`
	Answers     map[string]string `json:"answers"`
	Score       int               `json:"score"`
	TotalPoints int               `json:"totalPoints"`
	SubmittedAt time.Time         `json:"submittedAt"`

	// Grading overlay.
	OverriddenScore *int              `json:"overriddenScore,omitempty"`
	Overrides       map[string]bool   `json:"overrides,omitempty"` // question id -> graded correct
	Feedback        map[string]string `json:"feedback,omitempty"`
	OverallFeedback string            `json:"overallFeedback,omitempty"`
	GradedBy        string            `json:"gradedBy,omitempty"`
	GradedAt        *time.Time        `json:"gradedAt,omitempty"`
}

// EffectiveScore is the score shown and aggregated everywhere: the
// instructor override when present, the automatic score otherwise.
func (a Attempt) EffectiveScore() int {
	if a.OverriddenScore != nil {
		return *a.OverriddenScore
	}
	return a.Score
}

// Percentage returns the effective score as a rounded percentage of
// TotalPoints. A zero total yields 0.
func (a Attempt) Percentage() int {
	return Percent(a.EffectiveScore(), a.TotalPoints)
}

// Graded reports whether a grade has been committed.
func (a Attempt) Graded() bool {
	return a.GradedAt != nil
}

// Answer returns the stored answer for a question and whether one was given.
func (a Attempt) Answer(questionID string) (string, bool) {
	v, ok := a.Answers[questionID]
	return v, ok
}

// Clone returns a deep copy so a working copy never aliases stored state.
func (a Attempt) Clone() Attempt {
	out := a
	out.Answers = cloneMap(a.Answers)
	out.Overrides = cloneMap(a.Overrides)
	out.Feedback = cloneMap(a.Feedback)
	if a.OverriddenScore != nil {
		v := *a.OverriddenScore
		out.OverriddenScore = &v
	}
	if a.GradedAt != nil {
		t := *a.GradedAt
		out.GradedAt = &t
	}
	return out
}

// Percent computes round(score/total*100), guarding a zero total.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
