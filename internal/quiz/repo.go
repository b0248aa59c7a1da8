package quiz

import "context"

// QuizRepo reads and writes quiz definitions.
type QuizRepo interface {
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	PutQuiz(ctx context.Context, q Quiz) error

	// ListQuizzes returns every quiz ordered by creation time, then id.
	ListQuizzes(ctx context.Context) ([]Quiz, error)

	// ListQuizzesByCourse returns the course's quizzes ordered by creation
	// time, then id.
	ListQuizzesByCourse(ctx context.Context, courseID string) ([]Quiz, error)

	// DeleteQuiz removes the quiz and every attempt made against it.
	DeleteQuiz(ctx context.Context, id string) error
}

// AttemptRepo stores submitted attempts. Attempts are append-only history:
// a retake is a new record.
type AttemptRepo interface {
	// CreateAttempt persists a new attempt, assigning an id when empty.
	CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)

	// UpdateAttempt writes back the grading overlay of an existing attempt.
	// Answers, Score, TotalPoints and SubmittedAt are never rewritten.
	UpdateAttempt(ctx context.Context, a Attempt) (Attempt, error)

	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttemptsByStudent(ctx context.Context, studentID string) ([]Attempt, error)
	ListAttemptsByQuiz(ctx context.Context, quizID string) ([]Attempt, error)
}
