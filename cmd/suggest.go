package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdeck/internal/llm"
	"github.com/abhisek/quizdeck/internal/quiz"
	"github.com/abhisek/quizdeck/internal/suggest"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <attempt-id>",
	Short: "Suggest what to take after an attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		phrase, _ := cmd.Flags().GetBool("phrase")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		a, err := e.store.Attempts().GetAttempt(ctx, args[0])
		if err != nil {
			return err
		}

		s, err := e.suggestFor(ctx, e.phraser(ctx, phrase), a)
		if err != nil {
			if s.Message == "" {
				return err
			}
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		fmt.Printf("Score:    %d%%\n", s.Percentage)
		fmt.Printf("Outcome:  %s\n", s.Outcome)
		fmt.Printf("Level:    %s\n", s.Tier)
		if s.NextQuiz != nil {
			fmt.Printf("Next:     %s (%s)\n", s.NextQuiz.Title, s.NextQuiz.ID)
		}
		fmt.Println()
		fmt.Println(s.Message)
		return nil
	},
}

// suggestFor loads the attempt's quiz and course siblings and decides the
// next step. A phrasing failure still returns the deterministic suggestion
// alongside the error.
func (e *env) suggestFor(ctx context.Context, p *suggest.Phraser, a quiz.Attempt) (suggest.Suggestion, error) {
	repo := e.store.Quizzes()
	q, err := repo.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return suggest.Suggestion{}, err
	}
	course, err := repo.ListQuizzesByCourse(ctx, q.CourseID)
	if err != nil {
		return suggest.Suggestion{}, &quiz.PersistenceError{Op: "list course quizzes", Err: err}
	}
	return p.Phrase(ctx, suggest.Next(a, q, course), q)
}

// phraser returns nil when phrasing is off or no provider can be built;
// callers then keep the standard wording.
func (e *env) phraser(ctx context.Context, enabled bool) *suggest.Phraser {
	if !enabled {
		return nil
	}
	cfg, ok, err := llm.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM config: %v\n", err)
		return nil
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "warning: no LLM provider configured; using standard suggestion text")
		return nil
	}
	p, err := llm.NewProvider(ctx, cfg, e.store.LLMEvents())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return nil
	}
	return suggest.NewPhraser(p)
}

func init() {
	suggestCmd.Flags().Bool("phrase", false, "Reword the suggestion with the configured LLM provider")
}
