package review

import (
	"context"
	"math"

	"github.com/abhisek/quizdeck/internal/quiz"
)

// Stats aggregates the attempts made against one quiz. Every figure uses
// the effective score.
type Stats struct {
	QuizID         string
	Attempts       int
	Students       int
	Graded         int
	MeanPercentage float64
	Best           int // Percentage
	Worst          int // Percentage
}

// Summarize computes Stats over attempts. Attempts for other quizzes are
// ignored.
func Summarize(quizID string, attempts []quiz.Attempt) Stats {
	st := Stats{QuizID: quizID}
	students := make(map[string]bool)
	sum := 0
	for _, a := range attempts {
		if a.QuizID != quizID {
			continue
		}
		p := a.Percentage()
		if st.Attempts == 0 || p > st.Best {
			st.Best = p
		}
		if st.Attempts == 0 || p < st.Worst {
			st.Worst = p
		}
		st.Attempts++
		sum += p
		students[a.StudentID] = true
		if a.Graded() {
			st.Graded++
		}
	}
	st.Students = len(students)
	if st.Attempts > 0 {
		st.MeanPercentage = math.Round(float64(sum)/float64(st.Attempts)*10) / 10
	}
	return st
}

// QuizStats loads every attempt for a quiz and summarizes them.
func (s *Service) QuizStats(ctx context.Context, quizID string) (Stats, error) {
	attempts, err := s.Attempts.ListAttemptsByQuiz(ctx, quizID)
	if err != nil {
		return Stats{}, &quiz.PersistenceError{Op: "list attempts", Err: err}
	}
	return Summarize(quizID, attempts), nil
}
