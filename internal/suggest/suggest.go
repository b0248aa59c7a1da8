// Package suggest picks the follow-up for a finished attempt. The decision is
// pure and deterministic; Phraser may only reword its message.
package suggest

import (
	"fmt"
	"sort"

	"github.com/abhisek/quizdeck/internal/quiz"
)

// Outcome is the branch of the decision table that produced a Suggestion.
type Outcome string

const (
	OutcomePromote   Outcome = "promote"
	OutcomeMastered  Outcome = "mastered"
	OutcomeReinforce Outcome = "reinforce"
	OutcomeRetry     Outcome = "retry"
)

const (
	promoteAt   = 80
	reinforceAt = 50
)

type Suggestion struct {
	Percentage int
	// Tier is the difficulty the student should work at next.
	Tier     quiz.Difficulty
	NextQuiz *quiz.Quiz
	Message  string
	Outcome  Outcome
}

// Next decides what a student should do after attempt a of quiz q. course
// lists the quizzes of q's course; q itself may appear in it and is skipped.
func Next(a quiz.Attempt, q quiz.Quiz, course []quiz.Quiz) Suggestion {
	pct := quiz.Percent(a.EffectiveScore(), a.TotalPoints)
	s := Suggestion{Percentage: pct, Tier: q.Difficulty}

	switch {
	case pct < reinforceAt:
		s.Outcome = OutcomeRetry
		s.Message = fmt.Sprintf("You scored %d%% on %q. Review the course materials and retry this quiz.", pct, q.Title)
	case pct < promoteAt:
		s.Outcome = OutcomeReinforce
		s.Message = fmt.Sprintf("You scored %d%% on %q. Review the questions you missed to reinforce what you learned.", pct, q.Title)
	default:
		target, ok := q.Difficulty.Next()
		if ok {
			if next := pick(course, q, target); next != nil {
				s.Outcome = OutcomePromote
				s.Tier = target
				s.NextQuiz = next
				s.Message = fmt.Sprintf("You scored %d%%. You are ready for %s: try %q next.", pct, target, next.Title)
				return s
			}
		}
		s.Outcome = OutcomeMastered
		s.Message = fmt.Sprintf("You scored %d%% on %q. You have mastered this material.", pct, q.Title)
	}
	return s
}

// pick returns the earliest created quiz of the course at difficulty d,
// breaking ties by id.
func pick(course []quiz.Quiz, current quiz.Quiz, d quiz.Difficulty) *quiz.Quiz {
	var candidates []quiz.Quiz
	for _, c := range course {
		if c.ID == current.ID || c.Difficulty != d {
			continue
		}
		if current.CourseID != "" && c.CourseID != current.CourseID {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	next := candidates[0]
	return &next
}
