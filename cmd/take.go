package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdeck/internal/attempt"
	"github.com/abhisek/quizdeck/internal/quiz"
	"github.com/abhisek/quizdeck/internal/screens/take"
	"github.com/abhisek/quizdeck/internal/suggest"
)

var takeCmd = &cobra.Command{
	Use:   "take <quiz-id>",
	Short: "Take a timed quiz in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		seconds, _ := cmd.Flags().GetInt("seconds")
		phrase, _ := cmd.Flags().GetBool("phrase")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		q, err := e.store.Quizzes().GetQuiz(ctx, args[0])
		if err != nil {
			return err
		}
		d, err := attemptDuration(q, seconds)
		if err != nil {
			return err
		}

		// The screen drives the countdown itself, one Tick per second.
		sess, err := attempt.New(q, student, e.store.Attempts(),
			attempt.WithDuration(d),
			attempt.WithTickInterval(0),
			attempt.WithPublisher(e.bus),
		)
		if err != nil {
			return err
		}

		p := e.phraser(ctx, phrase)
		m := take.New(ctx, sess, func(ctx context.Context, a quiz.Attempt) (suggest.Suggestion, error) {
			return e.suggestFor(ctx, p, a)
		})
		if err := take.Run(m); err != nil {
			return fmt.Errorf("run quiz screen: %w", err)
		}
		m.Session().Close()

		if res, ok := m.Session().Result(); ok {
			fmt.Printf("Saved attempt %s: %d / %d (%d%%)\n",
				res.Attempt.ID, res.Attempt.EffectiveScore(), res.Attempt.TotalPoints, res.Percentage)
		} else if m.Abandoned() {
			fmt.Println("Attempt abandoned; nothing was saved.")
		}
		return nil
	},
}

// attemptDuration picks the countdown budget: the --seconds flag, then
// QUIZDECK_ATTEMPT_SECONDS, then the quiz's own duration, then the default.
func attemptDuration(q quiz.Quiz, seconds int) (time.Duration, error) {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second, nil
	}
	if os.Getenv("QUIZDECK_ATTEMPT_SECONDS") != "" {
		cfg, err := attempt.ConfigFromEnv()
		if err != nil {
			return 0, err
		}
		return cfg.Duration, nil
	}
	if q.DurationMinutes > 0 {
		return time.Duration(q.DurationMinutes) * time.Minute, nil
	}
	return attempt.DefaultConfig().Duration, nil
}

func init() {
	takeCmd.Flags().StringP("student", "s", "", "Student id recorded on the attempt")
	takeCmd.Flags().Int("seconds", 0, "Countdown budget in seconds (default: quiz duration)")
	takeCmd.Flags().Bool("phrase", false, "Reword the end-of-quiz suggestion with the configured LLM provider")
	_ = takeCmd.MarkFlagRequired("student")
}
