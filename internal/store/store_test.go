package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizdeck/internal/activity"
	"github.com/abhisek/quizdeck/internal/quiz"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fixtureQuiz(id string, d quiz.Difficulty, created time.Time) quiz.Quiz {
	return quiz.Quiz{
		ID: id, CourseID: "js-101", Title: "Quiz " + id, Difficulty: d, DurationMinutes: 5,
		Questions: []quiz.Question{
			{ID: "q1", Text: "keyword", CorrectAnswer: "const", Points: 10,
				Body: quiz.MultipleChoice{Options: []string{"var", "const"}}},
			{ID: "q2", Text: "typeof null", CorrectAnswer: "object", Points: 10, Body: quiz.ShortAnswer{}},
		},
		CreatedBy: "prof",
		CreatedAt: created,
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		// journal_mode reports "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"},
	}
	for _, tt := range tests {
		var got string
		require.NoError(t, s.DB().QueryRow("PRAGMA "+tt.pragma).Scan(&got))
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]Driver{"": DriverSQLite, "SQLite": DriverSQLite, "postgresql": DriverPostgres, "pgx": DriverPostgres} {
		got, err := ParseDriver(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "ParseDriver(%q)", in)
	}
	_, err := ParseDriver("mysql")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	lite := &Store{driver: DriverSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestQuizRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Quizzes()

	created := time.Date(2026, 1, 5, 10, 0, 0, 123, time.UTC)
	in := fixtureQuiz("basics", quiz.Beginner, created)
	require.NoError(t, repo.PutQuiz(ctx, in))

	got, err := repo.GetQuiz(ctx, "basics")
	require.NoError(t, err)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, quiz.Beginner, got.Difficulty)
	assert.True(t, got.CreatedAt.Equal(created))
	require.Len(t, got.Questions, 2)
	assert.Equal(t, quiz.KindMultipleChoice, got.Questions[0].Kind())
	assert.Equal(t, []string{"var", "const"}, got.Questions[0].Options())
	assert.Equal(t, quiz.KindShortAnswer, got.Questions[1].Kind())

	// Upsert replaces by id.
	in.Title = "Renamed"
	require.NoError(t, repo.PutQuiz(ctx, in))
	got, err = repo.GetQuiz(ctx, "basics")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestPutQuizValidates(t *testing.T) {
	s := openTestStore(t)
	bad := fixtureQuiz("bad", quiz.Beginner, time.Now())
	bad.Questions[0].Points = 0
	err := s.Quizzes().PutQuiz(context.Background(), bad)
	assert.True(t, quiz.IsValidation(err), "got %v", err)
}

func TestGetQuizNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Quizzes().GetQuiz(context.Background(), "nope")
	assert.True(t, errors.Is(err, quiz.ErrNotFound), "got %v", err)
}

func TestListQuizzesByCourseOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Quizzes()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.PutQuiz(ctx, fixtureQuiz("c", quiz.Intermediate, base.Add(time.Hour))))
	require.NoError(t, repo.PutQuiz(ctx, fixtureQuiz("b", quiz.Intermediate, base)))
	require.NoError(t, repo.PutQuiz(ctx, fixtureQuiz("a", quiz.Intermediate, base)))
	other := fixtureQuiz("z", quiz.Beginner, base)
	other.CourseID = "go-101"
	require.NoError(t, repo.PutQuiz(ctx, other))

	got, err := repo.ListQuizzesByCourse(ctx, "js-101")
	require.NoError(t, err)
	var ids []string
	for _, q := range got {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	all, err := repo.ListQuizzes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPutQuizKeepsCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Quizzes()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.PutQuiz(ctx, fixtureQuiz("a", quiz.Intermediate, base)))
	require.NoError(t, repo.PutQuiz(ctx, fixtureQuiz("b", quiz.Intermediate, base.Add(time.Hour))))

	edited := fixtureQuiz("a", quiz.Advanced, time.Time{})
	edited.Title = "Quiz a, revised"
	require.NoError(t, repo.PutQuiz(ctx, edited))

	got, err := repo.GetQuiz(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Quiz a, revised", got.Title)
	assert.Equal(t, quiz.Advanced, got.Difficulty)
	assert.Equal(t, base.UnixNano(), got.CreatedAt.UnixNano())

	list, err := repo.ListQuizzesByCourse(ctx, "js-101")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	moved := fixtureQuiz("a", quiz.Advanced, base.Add(2*time.Hour))
	require.NoError(t, repo.PutQuiz(ctx, moved))
	got, err = repo.GetQuiz(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, moved.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())
}

func TestAttemptsAreAppendOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Quizzes().PutQuiz(ctx, fixtureQuiz("basics", quiz.Beginner, time.Now())))
	repo := s.Attempts()

	at := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	first, err := repo.CreateAttempt(ctx, quiz.Attempt{
		QuizID: "basics", StudentID: "s1", Answers: map[string]string{"q1": "const"},
		Score: 10, TotalPoints: 20, SubmittedAt: at,
	})
	require.NoError(t, err)
	second, err := repo.CreateAttempt(ctx, quiz.Attempt{
		QuizID: "basics", StudentID: "s1", Answers: map[string]string{"q1": "const", "q2": "object"},
		Score: 20, TotalPoints: 20, SubmittedAt: at.Add(time.Minute),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := repo.ListAttemptsByStudent(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, 20, list[1].Score)
	assert.True(t, list[0].SubmittedAt.Equal(at))
	assert.Nil(t, list[0].OverriddenScore)
	assert.False(t, list[0].Graded())
}

func TestUpdateAttemptTouchesOnlyOverlay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Quizzes().PutQuiz(ctx, fixtureQuiz("basics", quiz.Beginner, time.Now())))
	repo := s.Attempts()

	orig, err := repo.CreateAttempt(ctx, quiz.Attempt{
		QuizID: "basics", StudentID: "s1", Answers: map[string]string{"q2": "Object "},
		Score: 10, TotalPoints: 20, SubmittedAt: time.Now(),
	})
	require.NoError(t, err)

	over := 20
	graded := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	edit := orig.Clone()
	edit.Answers = map[string]string{"q1": "tampered"}
	edit.Score = 99
	edit.TotalPoints = 1
	edit.OverriddenScore = &over
	edit.Overrides = map[string]bool{"q1": true}
	edit.Feedback = map[string]string{"q1": "accepted"}
	edit.OverallFeedback = "well done"
	edit.GradedBy = "prof"
	edit.GradedAt = &graded

	saved, err := repo.UpdateAttempt(ctx, edit)
	require.NoError(t, err)

	assert.Equal(t, orig.Answers, saved.Answers)
	assert.Equal(t, 10, saved.Score)
	assert.Equal(t, 20, saved.TotalPoints)
	assert.True(t, saved.SubmittedAt.Equal(orig.SubmittedAt))
	require.NotNil(t, saved.OverriddenScore)
	assert.Equal(t, 20, saved.EffectiveScore())
	assert.Equal(t, map[string]bool{"q1": true}, saved.Overrides)
	assert.Equal(t, "accepted", saved.Feedback["q1"])
	assert.Equal(t, "prof", saved.GradedBy)
	require.NotNil(t, saved.GradedAt)
	assert.True(t, saved.GradedAt.Equal(graded))

	_, err = repo.UpdateAttempt(ctx, quiz.Attempt{ID: "missing"})
	assert.True(t, errors.Is(err, quiz.ErrNotFound), "got %v", err)
}

func TestDeleteQuizCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Quizzes().PutQuiz(ctx, fixtureQuiz("basics", quiz.Beginner, time.Now())))
	a, err := s.Attempts().CreateAttempt(ctx, quiz.Attempt{QuizID: "basics", StudentID: "s1", SubmittedAt: time.Now()})
	require.NoError(t, err)

	require.NoError(t, s.Quizzes().DeleteQuiz(ctx, "basics"))

	_, err = s.Attempts().GetAttempt(ctx, a.ID)
	assert.True(t, errors.Is(err, quiz.ErrNotFound), "got %v", err)
	err = s.Quizzes().DeleteQuiz(ctx, "basics")
	assert.True(t, errors.Is(err, quiz.ErrNotFound), "got %v", err)
}

func TestCreateAttemptRequiresQuiz(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Attempts().CreateAttempt(context.Background(), quiz.Attempt{QuizID: "ghost", StudentID: "s1", SubmittedAt: time.Now()})
	assert.Error(t, err)
}

func TestActivityRecentAndPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Activity()

	for i := 0; i < 5; i++ {
		e := activity.NewEvent(activity.AttemptSubmitted, time.Unix(int64(i), 0))
		e.Detail = fmt.Sprint(i)
		require.NoError(t, repo.AppendActivity(ctx, e))
	}

	got, err := repo.RecentActivity(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].Detail)
	assert.Equal(t, "4", got[1].Detail)
	assert.Equal(t, activity.AttemptSubmitted, got[1].Type)

	require.NoError(t, repo.Prune(ctx, 3))
	all, err := repo.RecentActivity(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2", all[0].Detail)
}

func TestActivitySinkIntoStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	bus := activity.NewBus(4)
	sink := activity.NewSink(ctx, bus, s.Activity())

	bus.Publish(activity.NewEvent(activity.QuizImported, time.Now()))
	sink.Close()

	got, err := s.Activity().RecentActivity(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, activity.QuizImported, got[0].Type)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.LLMEvents()

	require.NoError(t, repo.AppendLLMEvent(ctx, LLMEvent{Provider: "mock", Model: "mock", Purpose: "suggestion", Success: true, InputTokens: 12}))
	require.NoError(t, repo.AppendLLMEvent(ctx, LLMEvent{Provider: "mock", Model: "mock", Purpose: "suggestion", ErrorMessage: "boom"}))

	got, err := repo.RecentLLMEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[0].Success)
	assert.Equal(t, "boom", got[0].ErrorMessage)
	assert.True(t, got[1].Success)
	assert.Equal(t, 12, got[1].InputTokens)

	one, err := repo.GetLLMEvent(ctx, got[1].Seq)
	require.NoError(t, err)
	assert.Equal(t, "suggestion", one.Purpose)
	_, err = repo.GetLLMEvent(ctx, 999)
	assert.True(t, errors.Is(err, quiz.ErrNotFound), "got %v", err)
}

func TestLLMUsage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.LLMEvents()

	for _, e := range []LLMEvent{
		{Model: "gpt-4o-mini", Purpose: "suggestion", InputTokens: 100, OutputTokens: 10, LatencyMs: 200},
		{Model: "gpt-4o-mini", Purpose: "suggestion", InputTokens: 50, OutputTokens: 20, LatencyMs: 400},
		{Model: "claude-haiku", Purpose: "suggestion", InputTokens: 7, OutputTokens: 3, LatencyMs: 90},
	} {
		require.NoError(t, repo.AppendLLMEvent(ctx, e))
	}

	usage, err := repo.LLMUsage(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, LLMUsage{Purpose: "suggestion", Model: "claude-haiku", Calls: 1, InputTokens: 7, OutputTokens: 3, AvgLatencyMs: 90}, usage[0])
	assert.Equal(t, LLMUsage{Purpose: "suggestion", Model: "gpt-4o-mini", Calls: 2, InputTokens: 150, OutputTokens: 30, AvgLatencyMs: 300}, usage[1])
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("QUIZDECK_DB", filepath.Join(dir, "custom", "q.db"))
	p, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom", "q.db"), p)
	assert.DirExists(t, filepath.Join(dir, "custom"))

	t.Setenv("QUIZDECK_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	p, err = DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "quizdeck", "quizdeck.db"), p)
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizdeck.db")
	s, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
