// Package grading scores quiz answers. Everything here is pure: no I/O, no
// clock, no randomness, so a stored score can always be reproduced.
package grading

import (
	"strings"

	"github.com/abhisek/quizdeck/internal/quiz"
)

// IsCorrect reports whether answer matches the question's correct answer.
//
// Normalization rules:
// - Leading and trailing whitespace is trimmed
// - Comparison is case-insensitive
// - No partial credit, fuzzy matching or numeric tolerance
//
// An unanswered question is never correct.
func IsCorrect(q quiz.Question, answer string, answered bool) bool {
	if !answered {
		return false
	}
	switch q.Body.(type) {
	case quiz.MultipleChoice:
		// The stored answer is the option text, not its index.
		return normalizedEqual(answer, q.CorrectAnswer)
	case quiz.ShortAnswer:
		return normalizedEqual(answer, q.CorrectAnswer)
	}
	return false
}

func normalizedEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
