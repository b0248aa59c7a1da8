package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/quizdeck/internal/activity"
	"github.com/abhisek/quizdeck/internal/quiz"
)

// Service loads attempts for grading and commits the result.
type Service struct {
	Quizzes   quiz.QuizRepo
	Attempts  quiz.AttemptRepo
	Clock     func() time.Time
	Publisher activity.Publisher
}

// NewService creates a Service using the wall clock and no publisher.
func NewService(quizzes quiz.QuizRepo, attempts quiz.AttemptRepo) *Service {
	return &Service{Quizzes: quizzes, Attempts: attempts}
}

// Open loads the latest stored state of an attempt and its quiz.
func (s *Service) Open(ctx context.Context, attemptID string) (*Workspace, error) {
	a, err := s.Attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			return nil, fmt.Errorf("attempt %q: %w", attemptID, err)
		}
		return nil, &quiz.PersistenceError{Op: "get attempt", Err: err}
	}
	q, err := s.loadQuiz(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}
	return NewWorkspace(a, q), nil
}

// Commit stamps the grader and time on the working copy and persists it.
// The overlay is checked against the quiz as currently stored. If anything
// fails, ws is left exactly as it was.
func (s *Service) Commit(ctx context.Context, ws *Workspace, graderID string) (quiz.Attempt, error) {
	if graderID == "" {
		return quiz.Attempt{}, &quiz.ValidationError{Field: "gradedBy", Message: "must not be empty"}
	}
	q, err := s.loadQuiz(ctx, ws.current.QuizID)
	if err != nil {
		return quiz.Attempt{}, err
	}
	if err := CheckOverlay(ws.current, q); err != nil {
		return quiz.Attempt{}, err
	}

	out := ws.current.Clone()
	now := s.now()
	out.GradedBy = graderID
	out.GradedAt = &now

	saved, err := s.Attempts.UpdateAttempt(ctx, out)
	if err != nil {
		return quiz.Attempt{}, &quiz.PersistenceError{Op: "update attempt", Err: err}
	}
	ws.committed(saved, q)

	e := activity.NewEvent(activity.AttemptGraded, now)
	e.ActorID = graderID
	e.QuizID = saved.QuizID
	e.AttemptID = saved.ID
	e.Detail = fmt.Sprintf("%d/%d", saved.EffectiveScore(), saved.TotalPoints)
	s.publish(e)
	return saved, nil
}

// Apply opens the latest state of an attempt, applies edits in order and
// commits. No edit is persisted if any of them fails.
func (s *Service) Apply(ctx context.Context, attemptID, graderID string, edits ...Edit) (quiz.Attempt, error) {
	ws, err := s.Open(ctx, attemptID)
	if err != nil {
		return quiz.Attempt{}, err
	}
	for _, edit := range edits {
		if err := edit(ws); err != nil {
			return quiz.Attempt{}, err
		}
	}
	return s.Commit(ctx, ws, graderID)
}

func (s *Service) loadQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	q, err := s.Quizzes.GetQuiz(ctx, id)
	if err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			return quiz.Quiz{}, &quiz.ValidationError{Field: "quizId", Message: fmt.Sprintf("quiz %q no longer exists", id)}
		}
		return quiz.Quiz{}, &quiz.PersistenceError{Op: "get quiz", Err: err}
	}
	return q, nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Service) publish(e activity.Event) {
	if s.Publisher != nil {
		s.Publisher.Publish(e)
	}
}
