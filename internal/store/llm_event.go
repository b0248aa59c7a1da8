package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/quizdeck/internal/quiz"
)

// LLMEvent captures a single LLM request.
type LLMEvent struct {
	Seq          int64 // Assigned by the store
	At           time.Time
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventLogger records LLM requests.
type LLMEventLogger interface {
	AppendLLMEvent(ctx context.Context, e LLMEvent) error
}

// LLMEventRepo stores LLM request events in the llm_events table.
type LLMEventRepo struct {
	s *Store
}

var _ LLMEventLogger = (*LLMEventRepo)(nil)

func (r *LLMEventRepo) AppendLLMEvent(ctx context.Context, e LLMEvent) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		INSERT INTO llm_events (at, provider, model, purpose, input_tokens, output_tokens,
			latency_ms, success, error_message, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		toNanos(e.At), e.Provider, e.Model, e.Purpose, e.InputTokens, e.OutputTokens,
		e.LatencyMs, e.Success, e.ErrorMessage, e.RequestBody, e.ResponseBody,
	)
	if err != nil {
		return fmt.Errorf("save LLM event: %w", err)
	}
	return nil
}

// RecentLLMEvents returns up to limit of the newest events, newest first.
func (r *LLMEventRepo) RecentLLMEvents(ctx context.Context, limit int) ([]LLMEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(`
		SELECT `+llmEventColumns+` FROM llm_events ORDER BY seq DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetLLMEvent returns one event by sequence number.
func (r *LLMEventRepo) GetLLMEvent(ctx context.Context, seq int64) (LLMEvent, error) {
	row := r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+llmEventColumns+` FROM llm_events WHERE seq = ?`), seq)
	e, err := scanLLMEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return LLMEvent{}, fmt.Errorf("LLM event %d: %w", seq, quiz.ErrNotFound)
	}
	if err != nil {
		return LLMEvent{}, fmt.Errorf("get LLM event %d: %w", seq, err)
	}
	return e, nil
}

const llmEventColumns = `seq, at, provider, model, purpose, input_tokens, output_tokens, latency_ms,
	success, error_message, request_body, response_body`

func scanLLMEvent(sc scanner) (LLMEvent, error) {
	var (
		e  LLMEvent
		at int64
	)
	if err := sc.Scan(&e.Seq, &at, &e.Provider, &e.Model, &e.Purpose, &e.InputTokens, &e.OutputTokens,
		&e.LatencyMs, &e.Success, &e.ErrorMessage, &e.RequestBody, &e.ResponseBody); err != nil {
		return LLMEvent{}, err
	}
	e.At = fromNanos(at)
	return e, nil
}

// LLMUsage aggregates events for one purpose and model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMUsage returns token and latency totals grouped by purpose and model.
func (r *LLMEventRepo) LLMUsage(ctx context.Context) ([]LLMUsage, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT purpose, model, COUNT(*), COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0), COALESCE(AVG(latency_ms), 0)
		FROM llm_events
		GROUP BY purpose, model
		ORDER BY purpose, model`)
	if err != nil {
		return nil, fmt.Errorf("query LLM usage: %w", err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var (
			u   LLMUsage
			avg float64
		)
		if err := rows.Scan(&u.Purpose, &u.Model, &u.Calls, &u.InputTokens, &u.OutputTokens, &avg); err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		u.AvgLatencyMs = int64(avg)
		out = append(out, u)
	}
	return out, rows.Err()
}
