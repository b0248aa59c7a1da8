package quiz

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Difficulty is the tier a quiz targets.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// Next returns the tier above d. The second value is false for Advanced or
// an unknown tier.
func (d Difficulty) Next() (Difficulty, bool) {
	switch d {
	case Beginner:
		return Intermediate, true
	case Intermediate:
		return Advanced, true
	}
	return "", false
}

// Quiz is an ordered set of questions. Question order is both presentation
// and grading order.
type Quiz struct {
	ID              string     `json:"id" validate:"required"`
	CourseID        string     `json:"courseId" validate:"required"`
	Title           string     `json:"title" validate:"required"`
	Difficulty      Difficulty `json:"difficulty" validate:"oneof=Beginner Intermediate Advanced"`
	DurationMinutes int        `json:"durationMinutes" validate:"gte=0"`
	Questions       []Question `json:"questions" validate:"dive"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// TotalPoints is the sum of every question's points. Submission snapshots it
// into Attempt.TotalPoints; nothing else derives the total.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, qu := range q.Questions {
		total += qu.Points
	}
	return total
}

// Question looks up a question by id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, qu := range q.Questions {
		if qu.ID == id {
			return qu, true
		}
	}
	return Question{}, false
}

var (
	validateOnce sync.Once
	structValid  *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		structValid = validator.New()
	})
	return structValid
}

// Validate checks the quiz and its questions. It returns a *ValidationError
// naming the first offending field.
func (q Quiz) Validate() error {
	if err := structValidator().Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Message: fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return &ValidationError{Message: err.Error()}
	}

	seen := make(map[string]bool, len(q.Questions))
	for i, qu := range q.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if seen[qu.ID] {
			return &ValidationError{Field: field + ".id", Message: fmt.Sprintf("duplicate question id %q", qu.ID)}
		}
		seen[qu.ID] = true

		switch b := qu.Body.(type) {
		case MultipleChoice:
			if len(b.Options) == 0 {
				return &ValidationError{Field: field + ".options", Message: "multiple-choice question has no options"}
			}
			if !containsExact(b.Options, qu.CorrectAnswer) {
				return &ValidationError{Field: field + ".correctAnswer", Message: fmt.Sprintf("%q is not one of the options", qu.CorrectAnswer)}
			}
		case ShortAnswer:
		default:
			return &ValidationError{Field: field + ".type", Message: "unknown question type"}
		}
	}
	return nil
}

// fieldPath turns "Quiz.Questions[0].Points" into "questions[0].points".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Quiz.")
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}

func containsExact(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
