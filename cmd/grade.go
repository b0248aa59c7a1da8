package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdeck/internal/review"
)

var gradeCmd = &cobra.Command{
	Use:   "grade <attempt-id>",
	Short: "Override correctness, leave feedback or set the final score of an attempt",
	Long: "grade applies its edits in order (--clear, --correct, --incorrect, --feedback,\n" +
		"--overall, --score) to the latest stored state of the attempt and saves them\n" +
		"in one write.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		grader, _ := cmd.Flags().GetString("grader")
		edits, err := gradeEdits(cmd)
		if err != nil {
			return err
		}
		if len(edits) == 0 {
			return errors.New("nothing to change; see --help for the available edits")
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		svc := review.NewService(e.store.Quizzes(), e.store.Attempts())
		svc.Publisher = e.bus

		ctx := cmd.Context()
		a, err := svc.Apply(ctx, args[0], grader, edits...)
		if err != nil {
			return err
		}
		q, err := e.store.Quizzes().GetQuiz(ctx, a.QuizID)
		if err != nil {
			return err
		}
		return printAttempt(os.Stdout, a, q)
	},
}

func gradeEdits(cmd *cobra.Command) ([]review.Edit, error) {
	var edits []review.Edit
	flags := cmd.Flags()

	if revert, _ := flags.GetBool("clear"); revert {
		edits = append(edits, review.RevertOverrides())
	}
	correct, _ := flags.GetStringSlice("correct")
	for _, id := range correct {
		edits = append(edits, review.OverrideQuestion(id, true))
	}
	incorrect, _ := flags.GetStringSlice("incorrect")
	for _, id := range incorrect {
		edits = append(edits, review.OverrideQuestion(id, false))
	}
	feedback, _ := flags.GetStringArray("feedback")
	for _, kv := range feedback {
		id, text, ok := strings.Cut(kv, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("--feedback %q: want <question-id>=<text>", kv)
		}
		edits = append(edits, review.QuestionFeedback(id, text))
	}
	if flags.Changed("overall") {
		overall, _ := flags.GetString("overall")
		edits = append(edits, review.OverallFeedback(overall))
	}
	if flags.Changed("score") {
		score, _ := flags.GetInt("score")
		edits = append(edits, review.FinalScore(score))
	}
	return edits, nil
}

func gradeFlags(c *cobra.Command) {
	c.Flags().StringP("grader", "g", "", "Grader id recorded on the attempt")
	c.Flags().StringSlice("correct", nil, "Mark questions correct (repeatable or comma separated)")
	c.Flags().StringSlice("incorrect", nil, "Mark questions incorrect (repeatable or comma separated)")
	c.Flags().StringArray("feedback", nil, "Per-question feedback as <question-id>=<text> (repeatable)")
	c.Flags().String("overall", "", "Overall feedback")
	c.Flags().Int("score", 0, "Set the final score directly")
	c.Flags().Bool("clear", false, "Revert question overrides to automatic grading first")
}

func init() {
	gradeFlags(gradeCmd)
	_ = gradeCmd.MarkFlagRequired("grader")
}
