package grading

import (
	"fmt"

	"github.com/abhisek/quizdeck/internal/quiz"
)

// QuestionResult is the per-question line of a graded attempt.
type QuestionResult struct {
	QuestionID string
	Answer     string
	Answered   bool
	Correct    bool
	Overridden bool // Correct was set by an instructor rather than the comparator
	Points     int
	Awarded    int
}

// Result is the outcome of scoring one set of answers.
type Result struct {
	Score       int
	TotalPoints int
	Breakdown   []QuestionResult
}

// ComputeScore grades answers against q. Every question counts toward the
// total whether answered or not; missing answers contribute 0. An empty quiz
// yields a zero result. Non-positive points are rejected.
func ComputeScore(q quiz.Quiz, answers map[string]string) (Result, error) {
	if err := checkPoints(q); err != nil {
		return Result{}, err
	}

	res := Result{
		TotalPoints: q.TotalPoints(),
		Breakdown:   make([]QuestionResult, 0, len(q.Questions)),
	}
	for _, qu := range q.Questions {
		ans, ok := answers[qu.ID]
		line := QuestionResult{
			QuestionID: qu.ID,
			Answer:     ans,
			Answered:   ok,
			Correct:    IsCorrect(qu, ans, ok),
			Points:     qu.Points,
		}
		if line.Correct {
			line.Awarded = qu.Points
			res.Score += qu.Points
		}
		res.Breakdown = append(res.Breakdown, line)
	}
	return res, nil
}

// Breakdown rebuilds the per-question view of a finished attempt, applying
// any instructor correctness overrides. The returned Score is the sum of the
// per-question awards; the attempt's effective score may differ when a final
// score was entered directly.
func Breakdown(a quiz.Attempt, q quiz.Quiz) (Result, error) {
	res, err := ComputeScore(q, a.Answers)
	if err != nil {
		return Result{}, err
	}
	res.TotalPoints = a.TotalPoints
	if len(a.Overrides) == 0 {
		return res, nil
	}

	res.Score = 0
	for i := range res.Breakdown {
		line := &res.Breakdown[i]
		if correct, ok := a.Overrides[line.QuestionID]; ok && correct != line.Correct {
			line.Correct = correct
			line.Overridden = true
			line.Awarded = 0
			if correct {
				line.Awarded = line.Points
			}
		}
		res.Score += line.Awarded
	}
	return res, nil
}

func checkPoints(q quiz.Quiz) error {
	for i, qu := range q.Questions {
		if qu.Points <= 0 {
			return &quiz.ValidationError{
				Field:   fmt.Sprintf("questions[%d].points", i),
				Message: fmt.Sprintf("question %q has non-positive points %d", qu.ID, qu.Points),
			}
		}
	}
	return nil
}
