// Package attempt runs one student's sitting of a quiz: start, navigate,
// answer, and submit exactly once, either by hand or when the countdown
// expires.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abhisek/quizdeck/internal/activity"
	"github.com/abhisek/quizdeck/internal/grading"
	"github.com/abhisek/quizdeck/internal/quiz"
)

// Phase is the lifecycle stage of a session.
type Phase int

const (
	PhaseLanding  Phase = iota // Quiz not started
	PhaseActive                // Countdown running, answers accumulating
	PhaseFinished              // Attempt persisted, results available
)

func (p Phase) String() string {
	switch p {
	case PhaseLanding:
		return "landing"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ErrNotActive is returned by operations that require an Active session
// that is still accepting answers.
var ErrNotActive = errors.New("attempt is not active")

// ErrDeadlinePassed is returned when an answer arrives after the countdown
// reached zero.
var ErrDeadlinePassed = errors.New("time is up")

// Recorder persists a finished attempt.
type Recorder interface {
	CreateAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error)
}

// Session is the state machine for one sitting. It is safe for concurrent
// use; the ticker goroutine and the caller may race to submit and only the
// first wins.
type Session struct {
	quiz      quiz.Quiz
	studentID string
	rec       Recorder
	opts      []Option
	cfg       Config
	clock     func() time.Time
	pub       activity.Publisher

	mu         sync.Mutex
	phase      Phase
	index      int
	answers    map[string]string
	remaining  int
	submitting bool
	lastErr    error
	parent     context.Context
	stopTicker context.CancelFunc
	tickerDone chan struct{}
	tickerGen  int
	attempt    quiz.Attempt
	result     grading.Result
}

// New creates a Landing session. The quiz is validated up front so that
// scoring at submission cannot fail on malformed data.
func New(q quiz.Quiz, studentID string, rec Recorder, opts ...Option) (*Session, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if studentID == "" {
		return nil, &quiz.ValidationError{Field: "studentId", Message: "must not be empty"}
	}
	o := options{cfg: DefaultConfig(), clock: time.Now, publisher: activity.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg.Duration < time.Second {
		return nil, &quiz.ValidationError{Field: "duration", Message: fmt.Sprintf("budget %s is shorter than one second", o.cfg.Duration)}
	}
	return &Session{
		quiz:      q,
		studentID: studentID,
		rec:       rec,
		opts:      opts,
		cfg:       o.cfg,
		clock:     o.clock,
		pub:       o.publisher,
		phase:     PhaseLanding,
		answers:   make(map[string]string),
	}, nil
}

// Quiz returns the quiz being taken.
func (s *Session) Quiz() quiz.Quiz { return s.quiz }

// Duration is the time budget the countdown starts from.
func (s *Session) Duration() time.Duration { return s.cfg.Duration }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Start moves Landing to Active: the countdown is reset to the full budget,
// the pointer to the first question, and the ticker is launched. ctx bounds
// the ticker and any automatic submission.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseLanding {
		s.mu.Unlock()
		return fmt.Errorf("start from %s: %w", s.phase, ErrNotActive)
	}
	s.phase = PhaseActive
	s.index = 0
	s.remaining = int(s.cfg.Duration / time.Second)
	s.parent = ctx
	s.startTickerLocked()
	s.mu.Unlock()

	e := s.event(activity.AttemptStarted)
	e.Detail = s.quiz.Title
	s.pub.Publish(e)
	return nil
}

// Next advances to the following question, stopping at the last one.
func (s *Session) Next() error {
	return s.move(func(i int) int { return i + 1 })
}

// Prev steps back one question, stopping at the first.
func (s *Session) Prev() error {
	return s.move(func(i int) int { return i - 1 })
}

// Goto jumps to question i, clamped to the valid range.
func (s *Session) Goto(i int) error {
	return s.move(func(int) int { return i })
}

func (s *Session) move(to func(int) int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive || s.submitting {
		return ErrNotActive
	}
	s.index = clamp(to(s.index), 0, len(s.quiz.Questions)-1)
	return nil
}

// SetAnswer records or overwrites the answer for the current question.
func (s *Session) SetAnswer(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acceptingLocked(); err != nil {
		return err
	}
	if len(s.quiz.Questions) == 0 {
		return nil
	}
	s.answers[s.quiz.Questions[s.index].ID] = text
	return nil
}

// SetAnswerFor records or overwrites the answer for a question by id.
func (s *Session) SetAnswerFor(questionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acceptingLocked(); err != nil {
		return err
	}
	if _, ok := s.quiz.Question(questionID); !ok {
		return &quiz.ValidationError{Field: "answers", Message: fmt.Sprintf("unknown question %q", questionID)}
	}
	s.answers[questionID] = text
	return nil
}

func (s *Session) acceptingLocked() error {
	if s.phase != PhaseActive || s.submitting {
		return ErrNotActive
	}
	if s.remaining <= 0 {
		return ErrDeadlinePassed
	}
	return nil
}

// Tick counts down one second. When the countdown reaches zero the answers
// held at that instant are submitted. Ticks outside Active, or while a
// submission is in flight, do nothing.
func (s *Session) Tick(ctx context.Context) error {
	return s.tick(ctx, -1)
}

// tick implements Tick. A non-negative gen identifies the ticker goroutine
// that fired; ticks from a ticker that has since been replaced are ignored.
func (s *Session) tick(ctx context.Context, gen int) error {
	s.mu.Lock()
	if gen >= 0 && gen != s.tickerGen {
		s.mu.Unlock()
		return nil
	}
	if s.phase != PhaseActive || s.submitting || s.remaining <= 0 {
		s.mu.Unlock()
		return nil
	}
	s.remaining--
	expired := s.remaining == 0
	s.mu.Unlock()

	if !expired {
		return nil
	}
	err := s.Submit(ctx)
	if errors.Is(err, quiz.ErrSubmissionInFlight) || errors.Is(err, quiz.ErrAlreadySubmitted) {
		return nil
	}
	return err
}

// Submit grades and persists the attempt. Only the first call can succeed;
// a call made while another is in flight gets ErrSubmissionInFlight and one
// made after success gets ErrAlreadySubmitted. If persisting fails the
// session stays Active, LastError reports the failure and Submit may be
// called again.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.phase == PhaseFinished:
		s.mu.Unlock()
		return quiz.ErrAlreadySubmitted
	case s.phase != PhaseActive:
		s.mu.Unlock()
		return ErrNotActive
	case s.submitting:
		s.mu.Unlock()
		return quiz.ErrSubmissionInFlight
	}
	s.submitting = true
	s.stopTickerLocked()
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	s.mu.Unlock()

	res, err := grading.ComputeScore(s.quiz, answers)
	if err != nil {
		s.fail(err)
		return err
	}

	saved, err := s.rec.CreateAttempt(ctx, quiz.Attempt{
		QuizID:      s.quiz.ID,
		StudentID:   s.studentID,
		Answers:     answers,
		Score:       res.Score,
		TotalPoints: res.TotalPoints,
		SubmittedAt: s.clock(),
	})
	if err != nil {
		perr := &quiz.PersistenceError{Op: "create attempt", Err: err}
		s.fail(perr)
		return perr
	}

	s.mu.Lock()
	s.phase = PhaseFinished
	s.submitting = false
	s.lastErr = nil
	s.attempt = saved
	s.result = res
	s.mu.Unlock()

	e := s.event(activity.AttemptSubmitted)
	e.AttemptID = saved.ID
	e.Detail = fmt.Sprintf("%d/%d", saved.Score, saved.TotalPoints)
	s.pub.Publish(e)
	return nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.lastErr = err
	if s.remaining > 0 {
		s.startTickerLocked()
	}
}

// LastError returns the failure of the most recent submission, or nil.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ActiveView is the read model for rendering an Active session.
type ActiveView struct {
	QuestionIndex    int
	QuestionCount    int
	Question         quiz.Question
	RemainingSeconds int
	Answers          map[string]string
	Submitting       bool
	Err              error
}

// View returns a snapshot of the in-progress state.
func (s *Session) View() ActiveView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := ActiveView{
		QuestionIndex:    s.index,
		QuestionCount:    len(s.quiz.Questions),
		RemainingSeconds: s.remaining,
		Answers:          make(map[string]string, len(s.answers)),
		Submitting:       s.submitting,
		Err:              s.lastErr,
	}
	if s.index < len(s.quiz.Questions) {
		v.Question = s.quiz.Questions[s.index]
	}
	for k, a := range s.answers {
		v.Answers[k] = a
	}
	return v
}

// Result is the read model for a Finished session.
type Result struct {
	Attempt    quiz.Attempt
	Percentage int
	Breakdown  []grading.QuestionResult
}

// Result returns the persisted outcome. The second value is false until the
// session is Finished.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseFinished {
		return Result{}, false
	}
	return Result{
		Attempt:    s.attempt.Clone(),
		Percentage: s.attempt.Percentage(),
		Breakdown:  append([]grading.QuestionResult(nil), s.result.Breakdown...),
	}, true
}

// Retake returns a fresh Landing session for the same quiz and student.
// The receiver is closed; its persisted attempt, if any, is untouched.
func (s *Session) Retake() (*Session, error) {
	s.Close()
	return New(s.quiz, s.studentID, s.rec, s.opts...)
}

// Close stops the ticker without submitting.
func (s *Session) Close() {
	s.mu.Lock()
	done := s.tickerDone
	s.stopTickerLocked()
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Session) startTickerLocked() {
	if s.cfg.TickInterval <= 0 || s.stopTicker != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.tickerGen++
	s.stopTicker = cancel
	s.tickerDone = done
	go s.runTicker(ctx, s.tickerGen, done)
}

func (s *Session) stopTickerLocked() {
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
}

func (s *Session) runTicker(ctx context.Context, gen int, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(s.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// Submission cancels ctx, so it runs on the parent context.
			if err := s.tick(context.WithoutCancel(ctx), gen); err != nil {
				return
			}
		}
	}
}

func (s *Session) event(typ activity.Type) activity.Event {
	e := activity.NewEvent(typ, s.clock())
	e.ActorID = s.studentID
	e.QuizID = s.quiz.ID
	return e
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
