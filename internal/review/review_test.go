package review

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/abhisek/quizdeck/internal/activity"
	"github.com/abhisek/quizdeck/internal/quiz"
)

func gradingQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID: "qz", CourseID: "c", Title: "T", Difficulty: quiz.Beginner,
		Questions: []quiz.Question{
			{ID: "q1", Text: "a", CorrectAnswer: "const", Points: 10, Body: quiz.MultipleChoice{Options: []string{"var", "const"}}},
			{ID: "q2", Text: "b", CorrectAnswer: "object", Points: 10, Body: quiz.MultipleChoice{Options: []string{"array", "object"}}},
			{ID: "q3", Text: "c", CorrectAnswer: "closure", Points: 20, Body: quiz.ShortAnswer{}},
		},
	}
}

// submitted scores 10/40: q1 right, q2 wrong, q3 unanswered.
func submitted() quiz.Attempt {
	return quiz.Attempt{
		ID: "a1", QuizID: "qz", StudentID: "s1",
		Answers:     map[string]string{"q1": "const", "q2": "array"},
		Score:       10,
		TotalPoints: 40,
		SubmittedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestOverride_Idempotent(t *testing.T) {
	q := gradingQuiz()
	a, err := SetQuestionOverride(submitted(), q, "q2", true)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if a.EffectiveScore() != 20 {
		t.Fatalf("effective = %d, want 20", a.EffectiveScore())
	}

	again, err := SetQuestionOverride(a, q, "q2", true)
	if err != nil {
		t.Fatalf("second override: %v", err)
	}
	if again.EffectiveScore() != 20 {
		t.Errorf("repeating mark-correct moved score to %d", again.EffectiveScore())
	}
	if again.Score != 10 {
		t.Errorf("automatic score changed to %d", again.Score)
	}
}

func TestOverride_NoOpWhenMatchesComparator(t *testing.T) {
	a, err := SetQuestionOverride(submitted(), gradingQuiz(), "q1", true)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if a.OverriddenScore != nil || a.Overrides != nil {
		t.Errorf("marking an already-correct question correct changed the overlay: %+v", a)
	}
}

func TestOverride_ToggleReturnsToAutomatic(t *testing.T) {
	q := gradingQuiz()
	a := submitted()

	steps := []struct {
		qid     string
		correct bool
		want    int
	}{
		{"q1", false, 0},
		{"q1", false, 0},
		{"q3", true, 20},
		{"q1", true, 30},
		{"q3", false, 10},
		{"q3", false, 10},
	}
	for i, st := range steps {
		var err error
		a, err = SetQuestionOverride(a, q, st.qid, st.correct)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if a.EffectiveScore() != st.want {
			t.Fatalf("step %d (%s=%v): effective = %d, want %d", i, st.qid, st.correct, a.EffectiveScore(), st.want)
		}
	}
	if len(a.Overrides) != 0 {
		t.Errorf("net overrides = %v, want none", a.Overrides)
	}
}

func TestOverride_UnknownQuestion(t *testing.T) {
	_, err := SetQuestionOverride(submitted(), gradingQuiz(), "q9", true)
	if !quiz.IsValidation(err) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestFinalScore_MovesBaseline(t *testing.T) {
	q := gradingQuiz()
	a, err := SetFinalScore(submitted(), 25)
	if err != nil {
		t.Fatalf("SetFinalScore: %v", err)
	}
	a, _ = SetQuestionOverride(a, q, "q2", true)
	if a.EffectiveScore() != 35 {
		t.Errorf("effective = %d, want 25+10", a.EffectiveScore())
	}
	a, _ = SetQuestionOverride(a, q, "q2", true)
	if a.EffectiveScore() != 35 {
		t.Errorf("repeat moved score to %d", a.EffectiveScore())
	}

	for _, bad := range []int{-1, 41} {
		if _, err := SetFinalScore(submitted(), bad); !quiz.IsValidation(err) {
			t.Errorf("SetFinalScore(%d) = %v, want validation error", bad, err)
		}
	}
}

func TestOverride_StaysWithinTotal(t *testing.T) {
	q := gradingQuiz()

	top, err := SetFinalScore(submitted(), 40)
	if err != nil {
		t.Fatalf("SetFinalScore(40): %v", err)
	}
	top, err = SetQuestionOverride(top, q, "q2", true)
	if err != nil {
		t.Fatalf("mark correct: %v", err)
	}
	if top.EffectiveScore() != 40 || top.Percentage() != 100 {
		t.Errorf("after max then mark-correct: %d (%d%%), want 40 (100%%)", top.EffectiveScore(), top.Percentage())
	}
	if !top.Overrides["q2"] {
		t.Error("q2 override should still be recorded")
	}

	bottom, err := SetFinalScore(submitted(), 0)
	if err != nil {
		t.Fatalf("SetFinalScore(0): %v", err)
	}
	bottom, err = SetQuestionOverride(bottom, q, "q1", false)
	if err != nil {
		t.Fatalf("mark incorrect: %v", err)
	}
	if bottom.EffectiveScore() != 0 || bottom.Percentage() != 0 {
		t.Errorf("after zero then mark-incorrect: %d (%d%%), want 0", bottom.EffectiveScore(), bottom.Percentage())
	}
}

func TestCheckOverlay_ScoreRange(t *testing.T) {
	q := gradingQuiz()
	for _, v := range []int{-10, 50} {
		a := submitted()
		a.OverriddenScore = &v
		if err := CheckOverlay(a, q); !quiz.IsValidation(err) {
			t.Errorf("CheckOverlay(score %d) = %v, want validation error", v, err)
		}
	}
	ok := 40
	a := submitted()
	a.OverriddenScore = &ok
	if err := CheckOverlay(a, q); err != nil {
		t.Errorf("CheckOverlay(score 40) = %v", err)
	}
}

func TestFeedbackHasNoScoreEffect(t *testing.T) {
	a, err := SetQuestionFeedback(submitted(), gradingQuiz(), "q2", "close, but arrays are objects too")
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	a = SetOverallFeedback(a, "good start")
	if a.OverriddenScore != nil || a.EffectiveScore() != 10 {
		t.Errorf("feedback changed the score: %+v", a)
	}
	if a.Feedback["q2"] == "" || a.OverallFeedback != "good start" {
		t.Errorf("feedback not stored: %+v", a)
	}

	a, _ = SetQuestionFeedback(a, gradingQuiz(), "q2", "")
	if a.Feedback != nil {
		t.Errorf("empty note should remove feedback, got %v", a.Feedback)
	}
}

func TestClearOverrides(t *testing.T) {
	a, _ := SetQuestionOverride(submitted(), gradingQuiz(), "q3", true)
	a, _ = SetQuestionFeedback(a, gradingQuiz(), "q3", "accepted")
	a = ClearOverrides(a)
	if a.OverriddenScore != nil || a.Overrides != nil || a.EffectiveScore() != 10 {
		t.Errorf("ClearOverrides left %+v", a)
	}
	if a.Feedback["q3"] != "accepted" {
		t.Error("ClearOverrides must keep feedback")
	}
}

func TestSetters_DoNotAliasInput(t *testing.T) {
	orig := submitted()
	orig.Feedback = map[string]string{"q1": "x"}
	_, _ = SetQuestionFeedback(orig, gradingQuiz(), "q1", "y")
	if orig.Feedback["q1"] != "x" {
		t.Error("setter mutated its input")
	}
}

type memRepo struct {
	quizzes   map[string]quiz.Quiz
	attempts  map[string]quiz.Attempt
	failWrite bool
	failRead  bool
	updates   int
}

func newMemRepo() *memRepo {
	q := gradingQuiz()
	a := submitted()
	return &memRepo{
		quizzes:  map[string]quiz.Quiz{q.ID: q},
		attempts: map[string]quiz.Attempt{a.ID: a},
	}
}

func (m *memRepo) GetQuiz(_ context.Context, id string) (quiz.Quiz, error) {
	if m.failRead {
		return quiz.Quiz{}, errors.New("io error")
	}
	q, ok := m.quizzes[id]
	if !ok {
		return quiz.Quiz{}, fmt.Errorf("quiz %q: %w", id, quiz.ErrNotFound)
	}
	return q, nil
}
func (m *memRepo) PutQuiz(_ context.Context, q quiz.Quiz) error { m.quizzes[q.ID] = q; return nil }
func (m *memRepo) ListQuizzes(context.Context) ([]quiz.Quiz, error) {
	return nil, nil
}
func (m *memRepo) ListQuizzesByCourse(context.Context, string) ([]quiz.Quiz, error) {
	return nil, nil
}
func (m *memRepo) DeleteQuiz(_ context.Context, id string) error { delete(m.quizzes, id); return nil }

func (m *memRepo) CreateAttempt(_ context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	m.attempts[a.ID] = a.Clone()
	return a, nil
}
func (m *memRepo) UpdateAttempt(_ context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	if m.failWrite {
		return quiz.Attempt{}, errors.New("disk full")
	}
	m.updates++
	m.attempts[a.ID] = a.Clone()
	return a.Clone(), nil
}
func (m *memRepo) GetAttempt(_ context.Context, id string) (quiz.Attempt, error) {
	a, ok := m.attempts[id]
	if !ok {
		return quiz.Attempt{}, fmt.Errorf("attempt %q: %w", id, quiz.ErrNotFound)
	}
	return a.Clone(), nil
}
func (m *memRepo) ListAttemptsByStudent(context.Context, string) ([]quiz.Attempt, error) {
	return nil, nil
}
func (m *memRepo) ListAttemptsByQuiz(_ context.Context, quizID string) ([]quiz.Attempt, error) {
	var out []quiz.Attempt
	for _, a := range m.attempts {
		if a.QuizID == quizID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func newService(repo *memRepo) *Service {
	at := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	return &Service{Quizzes: repo, Attempts: repo, Clock: func() time.Time { return at }}
}

func TestService_CommitStampsAndPersists(t *testing.T) {
	repo := newMemRepo()
	bus := activity.NewBus(4)
	svc := newService(repo)
	svc.Publisher = bus
	ctx := context.Background()

	ws, err := svc.Open(ctx, "a1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ws.SetQuestionOverride("q3", true); err != nil {
		t.Fatalf("override: %v", err)
	}
	if !ws.Dirty() {
		t.Error("workspace should be dirty after an edit")
	}

	saved, err := svc.Commit(ctx, ws, "prof")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if saved.GradedBy != "prof" || saved.GradedAt == nil {
		t.Errorf("grader not stamped: %+v", saved)
	}
	stored := repo.attempts["a1"]
	if stored.EffectiveScore() != 30 || stored.Score != 10 {
		t.Errorf("stored = %d (auto %d), want 30 (auto 10)", stored.EffectiveScore(), stored.Score)
	}
	if ws.Dirty() {
		t.Error("workspace should be clean after commit")
	}
	if ev := bus.Recent(1); len(ev) != 1 || ev[0].Type != activity.AttemptGraded {
		t.Errorf("events = %+v", ev)
	}
}

func TestService_CommitWithoutChanges(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	ws, _ := svc.Open(context.Background(), "a1")
	saved, err := svc.Commit(context.Background(), ws, "prof")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !saved.Graded() || saved.OverriddenScore != nil {
		t.Errorf("reviewed-no-changes commit = %+v", saved)
	}
}

func TestService_CommitFailureLeavesWorkspace(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	ctx := context.Background()
	ws, _ := svc.Open(ctx, "a1")
	_ = ws.SetQuestionOverride("q2", true)
	before := ws.Attempt()

	repo.failWrite = true
	_, err := svc.Commit(ctx, ws, "prof")
	var perr *quiz.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Commit = %v, want *PersistenceError", err)
	}
	after := ws.Attempt()
	if after.GradedAt != nil || after.EffectiveScore() != before.EffectiveScore() {
		t.Errorf("workspace changed on failure: %+v", after)
	}
	if ws.Baseline().OverriddenScore != nil {
		t.Error("baseline must not move on failure")
	}
	if repo.attempts["a1"].Graded() {
		t.Error("store was modified")
	}
}

func TestService_CommitRejectsStaleOverlay(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	ctx := context.Background()
	ws, _ := svc.Open(ctx, "a1")
	_ = ws.SetQuestionOverride("q3", true)

	// The quiz is edited and q3 removed before the grade is committed.
	edited := gradingQuiz()
	edited.Questions = edited.Questions[:2]
	repo.quizzes["qz"] = edited

	if _, err := svc.Commit(ctx, ws, "prof"); !quiz.IsValidation(err) {
		t.Fatalf("Commit = %v, want validation error", err)
	}
	if repo.updates != 0 {
		t.Error("stale overlay was persisted")
	}
}

func TestService_CommitRejectsOutOfRangeScore(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	ctx := context.Background()
	ws, _ := svc.Open(ctx, "a1")
	bad := 55
	ws.current.OverriddenScore = &bad

	if _, err := svc.Commit(ctx, ws, "prof"); !quiz.IsValidation(err) {
		t.Fatalf("Commit = %v, want validation error", err)
	}
	if repo.updates != 0 {
		t.Error("out-of-range score was persisted")
	}
}

func TestService_CommitRejectsDeletedQuiz(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	ctx := context.Background()
	ws, _ := svc.Open(ctx, "a1")
	delete(repo.quizzes, "qz")

	if _, err := svc.Commit(ctx, ws, "prof"); !quiz.IsValidation(err) {
		t.Fatalf("Commit = %v, want validation error", err)
	}
	if _, err := svc.Commit(ctx, ws, ""); !quiz.IsValidation(err) {
		t.Errorf("Commit without grader = %v, want validation error", err)
	}
}

func TestService_ReadFailureIsPersistenceError(t *testing.T) {
	repo := newMemRepo()
	repo.failRead = true
	_, err := newService(repo).Open(context.Background(), "a1")
	var perr *quiz.PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("Open = %v, want *PersistenceError", err)
	}

	repo.failRead = false
	if _, err := newService(repo).Open(context.Background(), "missing"); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("Open(missing) = %v, want ErrNotFound", err)
	}
}

func TestService_ApplyUsesLatestState(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	ctx := context.Background()

	if _, err := svc.Apply(ctx, "a1", "prof", QuestionFeedback("q1", "nice")); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	// A second grader's edit must not drop the first one's feedback.
	saved, err := svc.Apply(ctx, "a1", "ta", OverrideQuestion("q2", true), OverallFeedback("ok"))
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if saved.Feedback["q1"] != "nice" || saved.EffectiveScore() != 20 || saved.GradedBy != "ta" {
		t.Errorf("saved = %+v", saved)
	}

	// Re-applying the same override against fresh state is a no-op.
	saved, _ = svc.Apply(ctx, "a1", "ta", OverrideQuestion("q2", true))
	if saved.EffectiveScore() != 20 {
		t.Errorf("repeat Apply moved score to %d", saved.EffectiveScore())
	}

	if _, err := svc.Apply(ctx, "a1", "ta", FinalScore(99)); !quiz.IsValidation(err) {
		t.Errorf("Apply with bad final score = %v, want validation error", err)
	}
	saved, _ = svc.Apply(ctx, "a1", "ta", RevertOverrides())
	if saved.EffectiveScore() != 10 {
		t.Errorf("after revert effective = %d, want 10", saved.EffectiveScore())
	}
}

func TestSummarize(t *testing.T) {
	over := 40
	now := time.Now()
	attempts := []quiz.Attempt{
		{QuizID: "qz", StudentID: "s1", Score: 10, TotalPoints: 40},
		{QuizID: "qz", StudentID: "s1", Score: 20, TotalPoints: 40, OverriddenScore: &over, GradedAt: &now},
		{QuizID: "qz", StudentID: "s2", Score: 30, TotalPoints: 40},
		{QuizID: "other", StudentID: "s3", Score: 40, TotalPoints: 40},
	}
	st := Summarize("qz", attempts)
	if st.Attempts != 3 || st.Students != 2 || st.Graded != 1 {
		t.Errorf("counts = %+v", st)
	}
	if st.Best != 100 || st.Worst != 25 {
		t.Errorf("best/worst = %d/%d, want 100/25 (override counts)", st.Best, st.Worst)
	}
	if st.MeanPercentage != 66.7 {
		t.Errorf("mean = %v, want 66.7", st.MeanPercentage)
	}

	if empty := Summarize("none", nil); empty.Attempts != 0 || empty.MeanPercentage != 0 {
		t.Errorf("empty = %+v", empty)
	}
}

func TestService_QuizStats(t *testing.T) {
	repo := newMemRepo()
	st, err := newService(repo).QuizStats(context.Background(), "qz")
	if err != nil {
		t.Fatalf("QuizStats: %v", err)
	}
	if st.Attempts != 1 || st.Best != 25 {
		t.Errorf("stats = %+v", st)
	}
}
