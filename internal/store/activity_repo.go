package store

import (
	"context"
	"fmt"

	"github.com/abhisek/quizdeck/internal/activity"
)

// ActivityRepo persists activity events. It satisfies activity.Appender.
type ActivityRepo struct {
	s *Store
}

var _ activity.Appender = (*ActivityRepo)(nil)

func (r *ActivityRepo) AppendActivity(ctx context.Context, e activity.Event) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		INSERT INTO activity (id, type, at, actor_id, quiz_id, attempt_id, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, string(e.Type), toNanos(e.At), e.ActorID, e.QuizID, e.AttemptID, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("save activity %s: %w", e.Type, err)
	}
	return nil
}

// RecentActivity returns up to limit of the newest events, oldest first.
// A non-positive limit returns everything.
func (r *ActivityRepo) RecentActivity(ctx context.Context, limit int) ([]activity.Event, error) {
	query := `SELECT id, type, at, actor_id, quiz_id, attempt_id, detail FROM activity ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []activity.Event
	for rows.Next() {
		var (
			e   activity.Event
			typ string
			at  int64
		)
		if err := rows.Scan(&e.ID, &typ, &at, &e.ActorID, &e.QuizID, &e.AttemptID, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.Type = activity.Type(typ)
		e.At = fromNanos(at)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Prune deletes all but the keep most recent events.
func (r *ActivityRepo) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		DELETE FROM activity WHERE seq NOT IN (
			SELECT seq FROM activity ORDER BY seq DESC LIMIT ?
		)`), keep)
	if err != nil {
		return fmt.Errorf("prune activity: %w", err)
	}
	return nil
}
