package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdeck/internal/grading"
	"github.com/abhisek/quizdeck/internal/quiz"
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Inspect submitted attempts",
}

var attemptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attempts of a student or a quiz",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		quizID, _ := cmd.Flags().GetString("quiz")
		if (student == "") == (quizID == "") {
			return errors.New("use exactly one of --student or --quiz")
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		repo := e.store.Attempts()
		var attempts []quiz.Attempt
		if student != "" {
			attempts, err = repo.ListAttemptsByStudent(cmd.Context(), student)
		} else {
			attempts, err = repo.ListAttemptsByQuiz(cmd.Context(), quizID)
		}
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}

		if len(attempts) == 0 {
			fmt.Println("No attempts found.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %-16s  %-16s  %9s  %4s  %s\n",
			"ID", "Submitted", "Student", "Quiz", "Score", "%", "Graded")
		fmt.Println(strings.Repeat("─", 120))
		for _, a := range attempts {
			graded := ""
			if a.Graded() {
				graded = "✓ " + a.GradedBy
			}
			fmt.Printf("%-36s  %-19s  %-16s  %-16s  %9s  %4d  %s\n",
				a.ID,
				a.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(a.StudentID, 16),
				truncate(a.QuizID, 16),
				fmt.Sprintf("%d/%d", a.EffectiveScore(), a.TotalPoints),
				a.Percentage(),
				graded,
			)
		}
		return nil
	},
}

var attemptsShowCmd = &cobra.Command{
	Use:   "show <attempt-id>",
	Short: "Show an attempt with its per-question breakdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		q, err := e.store.Quizzes().GetQuiz(ctx, a.QuizID)
		if err != nil {
			return err
		}
		return printAttempt(os.Stdout, a, q)
	},
}

// printAttempt writes the report shared by "attempts show" and "grade".
func printAttempt(w io.Writer, a quiz.Attempt, q quiz.Quiz) error {
	res, err := grading.Breakdown(a, q)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Attempt:   %s\n", a.ID)
	fmt.Fprintf(w, "Quiz:      %s (%s)\n", q.Title, q.ID)
	fmt.Fprintf(w, "Student:   %s\n", a.StudentID)
	fmt.Fprintf(w, "Submitted: %s\n", a.SubmittedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Score:     %d / %d (%d%%)", a.EffectiveScore(), a.TotalPoints, a.Percentage())
	if a.OverriddenScore != nil {
		fmt.Fprintf(w, "  [automatic %d]", a.Score)
	}
	fmt.Fprintln(w)
	if a.Graded() {
		fmt.Fprintf(w, "Graded:    %s at %s\n", a.GradedBy, a.GradedAt.Local().Format("2006-01-02 15:04:05"))
	}

	fmt.Fprintln(w)
	for i, line := range res.Breakdown {
		mark := "✗"
		if line.Correct {
			mark = "✓"
		}
		if line.Overridden {
			mark += "*"
		}
		answer := line.Answer
		if !line.Answered {
			answer = "(no answer)"
		}
		fmt.Fprintf(w, "%2d. %-3s %-10s %d/%d  %s\n", i+1, mark, truncate(line.QuestionID, 10),
			line.Awarded, line.Points, answer)
		if fb := a.Feedback[line.QuestionID]; fb != "" {
			fmt.Fprintf(w, "        feedback: %s\n", fb)
		}
	}
	if a.OverallFeedback != "" {
		fmt.Fprintf(w, "\nFeedback: %s\n", a.OverallFeedback)
	}
	return nil
}

func init() {
	attemptsListCmd.Flags().String("student", "", "Student id")
	attemptsListCmd.Flags().String("quiz", "", "Quiz id")

	attemptsCmd.AddCommand(attemptsListCmd)
	attemptsCmd.AddCommand(attemptsShowCmd)
}
