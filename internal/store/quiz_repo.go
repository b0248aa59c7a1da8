package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/quizdeck/internal/quiz"
)

// QuizRepo implements quiz.QuizRepo.
type QuizRepo struct {
	s *Store
}

var _ quiz.QuizRepo = (*QuizRepo)(nil)

const quizColumns = `id, course_id, title, difficulty, duration_minutes, questions_json, created_by, created_at`

// PutQuiz validates q and inserts or replaces it by id. A zero CreatedAt
// keeps the stored creation time of an existing quiz.
func (r *QuizRepo) PutQuiz(ctx context.Context, q quiz.Quiz) error {
	if err := q.Validate(); err != nil {
		return err
	}
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	createdAt := "excluded.created_at"
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
		createdAt = "quizzes.created_at"
	}

	_, err = r.s.db.ExecContext(ctx, r.s.rebind(`
		INSERT INTO quizzes (`+quizColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			course_id = excluded.course_id,
			title = excluded.title,
			difficulty = excluded.difficulty,
			duration_minutes = excluded.duration_minutes,
			questions_json = excluded.questions_json,
			created_by = excluded.created_by,
			created_at = `+createdAt),
		q.ID, q.CourseID, q.Title, string(q.Difficulty), q.DurationMinutes,
		string(questions), q.CreatedBy, toNanos(q.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save quiz %q: %w", q.ID, err)
	}
	return nil
}

func (r *QuizRepo) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	row := r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+quizColumns+` FROM quizzes WHERE id = ?`), id)
	q, err := scanQuiz(row)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Quiz{}, fmt.Errorf("quiz %q: %w", id, quiz.ErrNotFound)
	}
	if err != nil {
		return quiz.Quiz{}, fmt.Errorf("get quiz %q: %w", id, err)
	}
	return q, nil
}

func (r *QuizRepo) ListQuizzes(ctx context.Context) ([]quiz.Quiz, error) {
	return r.list(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY created_at, id`)
}

func (r *QuizRepo) ListQuizzesByCourse(ctx context.Context, courseID string) ([]quiz.Quiz, error) {
	return r.list(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE course_id = ? ORDER BY created_at, id`, courseID)
}

// DeleteQuiz removes the quiz and its attempts in one transaction.
func (r *QuizRepo) DeleteQuiz(ctx context.Context, id string) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.s.rebind(`DELETE FROM attempts WHERE quiz_id = ?`), id); err != nil {
		return fmt.Errorf("delete attempts of quiz %q: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, r.s.rebind(`DELETE FROM quizzes WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete quiz %q: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("quiz %q: %w", id, quiz.ErrNotFound)
	}
	return tx.Commit()
}

func (r *QuizRepo) list(ctx context.Context, query string, args ...any) ([]quiz.Quiz, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []quiz.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuiz(sc scanner) (quiz.Quiz, error) {
	var (
		q          quiz.Quiz
		difficulty string
		questions  string
		createdAt  int64
	)
	if err := sc.Scan(&q.ID, &q.CourseID, &q.Title, &difficulty, &q.DurationMinutes,
		&questions, &q.CreatedBy, &createdAt); err != nil {
		return quiz.Quiz{}, err
	}
	q.Difficulty = quiz.Difficulty(difficulty)
	q.CreatedAt = fromNanos(createdAt)
	if err := json.Unmarshal([]byte(questions), &q.Questions); err != nil {
		return quiz.Quiz{}, fmt.Errorf("decode questions of %q: %w", q.ID, err)
	}
	return q, nil
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
