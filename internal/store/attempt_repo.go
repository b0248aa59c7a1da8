package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/abhisek/quizdeck/internal/quiz"
)

// AttemptRepo implements quiz.AttemptRepo.
type AttemptRepo struct {
	s *Store
}

var _ quiz.AttemptRepo = (*AttemptRepo)(nil)

const attemptColumns = `id, quiz_id, student_id, answers_json, score, total_points, submitted_at,
	overridden_score, overrides_json, feedback_json, overall_feedback, graded_by, graded_at`

// CreateAttempt inserts a new attempt, assigning a UUID when a.ID is empty.
func (r *AttemptRepo) CreateAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	answers, err := json.Marshal(nonNil(a.Answers))
	if err != nil {
		return quiz.Attempt{}, fmt.Errorf("marshal answers: %w", err)
	}
	overrides, feedback, err := encodeOverlay(a)
	if err != nil {
		return quiz.Attempt{}, err
	}

	_, err = r.s.db.ExecContext(ctx, r.s.rebind(`
		INSERT INTO attempts (`+attemptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.QuizID, a.StudentID, string(answers), a.Score, a.TotalPoints, toNanos(a.SubmittedAt),
		nullInt(a.OverriddenScore), overrides, feedback, a.OverallFeedback, a.GradedBy, nullTime(a),
	)
	if err != nil {
		return quiz.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return r.GetAttempt(ctx, a.ID)
}

// UpdateAttempt rewrites only the grading overlay of the stored attempt.
func (r *AttemptRepo) UpdateAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	overrides, feedback, err := encodeOverlay(a)
	if err != nil {
		return quiz.Attempt{}, err
	}
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		UPDATE attempts SET
			overridden_score = ?,
			overrides_json = ?,
			feedback_json = ?,
			overall_feedback = ?,
			graded_by = ?,
			graded_at = ?
		WHERE id = ?`),
		nullInt(a.OverriddenScore), overrides, feedback, a.OverallFeedback, a.GradedBy, nullTime(a), a.ID,
	)
	if err != nil {
		return quiz.Attempt{}, fmt.Errorf("update attempt %q: %w", a.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quiz.Attempt{}, fmt.Errorf("attempt %q: %w", a.ID, quiz.ErrNotFound)
	}
	return r.GetAttempt(ctx, a.ID)
}

func (r *AttemptRepo) GetAttempt(ctx context.Context, id string) (quiz.Attempt, error) {
	row := r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+attemptColumns+` FROM attempts WHERE id = ?`), id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Attempt{}, fmt.Errorf("attempt %q: %w", id, quiz.ErrNotFound)
	}
	if err != nil {
		return quiz.Attempt{}, fmt.Errorf("get attempt %q: %w", id, err)
	}
	return a, nil
}

// ListAttemptsByStudent returns the student's attempts oldest first.
func (r *AttemptRepo) ListAttemptsByStudent(ctx context.Context, studentID string) ([]quiz.Attempt, error) {
	return r.list(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE student_id = ? ORDER BY submitted_at, id`, studentID)
}

// ListAttemptsByQuiz returns the quiz's attempts oldest first.
func (r *AttemptRepo) ListAttemptsByQuiz(ctx context.Context, quizID string) ([]quiz.Attempt, error) {
	return r.list(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE quiz_id = ? ORDER BY submitted_at, id`, quizID)
}

func (r *AttemptRepo) list(ctx context.Context, query string, args ...any) ([]quiz.Attempt, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []quiz.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttempt(sc scanner) (quiz.Attempt, error) {
	var (
		a           quiz.Attempt
		answers     string
		submittedAt int64
		overridden  sql.NullInt64
		overrides   string
		feedback    string
		gradedAt    sql.NullInt64
	)
	if err := sc.Scan(&a.ID, &a.QuizID, &a.StudentID, &answers, &a.Score, &a.TotalPoints, &submittedAt,
		&overridden, &overrides, &feedback, &a.OverallFeedback, &a.GradedBy, &gradedAt); err != nil {
		return quiz.Attempt{}, err
	}
	a.SubmittedAt = fromNanos(submittedAt)
	if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
		return quiz.Attempt{}, fmt.Errorf("decode answers of %q: %w", a.ID, err)
	}
	if overridden.Valid {
		v := int(overridden.Int64)
		a.OverriddenScore = &v
	}
	if gradedAt.Valid {
		t := fromNanos(gradedAt.Int64)
		a.GradedAt = &t
	}
	if overrides != "" {
		if err := json.Unmarshal([]byte(overrides), &a.Overrides); err != nil {
			return quiz.Attempt{}, fmt.Errorf("decode overrides of %q: %w", a.ID, err)
		}
	}
	if feedback != "" {
		if err := json.Unmarshal([]byte(feedback), &a.Feedback); err != nil {
			return quiz.Attempt{}, fmt.Errorf("decode feedback of %q: %w", a.ID, err)
		}
	}
	return a, nil
}

// encodeOverlay stores empty maps as "" so they read back as nil.
func encodeOverlay(a quiz.Attempt) (overrides, feedback string, err error) {
	if len(a.Overrides) > 0 {
		b, err := json.Marshal(a.Overrides)
		if err != nil {
			return "", "", fmt.Errorf("marshal overrides: %w", err)
		}
		overrides = string(b)
	}
	if len(a.Feedback) > 0 {
		b, err := json.Marshal(a.Feedback)
		if err != nil {
			return "", "", fmt.Errorf("marshal feedback: %w", err)
		}
		feedback = string(b)
	}
	return overrides, feedback, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(a quiz.Attempt) sql.NullInt64 {
	if a.GradedAt == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*a.GradedAt), Valid: true}
}
