package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdeck/internal/quiz"
	"github.com/abhisek/quizdeck/internal/review"
)

var statsCmd = &cobra.Command{
	Use:   "stats [quiz-id...]",
	Short: "Show attempt statistics per quiz",
	RunE: func(cmd *cobra.Command, args []string) error {
		course, _ := cmd.Flags().GetString("course")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		repo := e.store.Quizzes()
		var quizzes []quiz.Quiz
		switch {
		case len(args) > 0:
			for _, id := range args {
				q, err := repo.GetQuiz(ctx, id)
				if err != nil {
					return err
				}
				quizzes = append(quizzes, q)
			}
		case course != "":
			quizzes, err = repo.ListQuizzesByCourse(ctx, course)
		default:
			quizzes, err = repo.ListQuizzes(ctx)
		}
		if err != nil {
			return fmt.Errorf("list quizzes: %w", err)
		}
		if len(quizzes) == 0 {
			fmt.Println("No quizzes found.")
			return nil
		}

		svc := review.NewService(repo, e.store.Attempts())

		fmt.Printf("%-28s  %-12s  %8s  %8s  %6s  %6s  %5s  %5s\n",
			"Quiz", "Difficulty", "Attempts", "Students", "Graded", "Mean%", "Best", "Worst")
		fmt.Println(strings.Repeat("─", 94))
		for _, q := range quizzes {
			st, err := svc.QuizStats(ctx, q.ID)
			if err != nil {
				return err
			}
			if st.Attempts == 0 {
				fmt.Printf("%-28s  %-12s  %8d  %8s  %6s  %6s  %5s  %5s\n",
					truncate(q.Title, 28), q.Difficulty, 0, "-", "-", "-", "-", "-")
				continue
			}
			fmt.Printf("%-28s  %-12s  %8d  %8d  %6d  %6.1f  %5d  %5d\n",
				truncate(q.Title, 28), q.Difficulty, st.Attempts, st.Students, st.Graded,
				st.MeanPercentage, st.Best, st.Worst)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringP("course", "c", "", "Only show quizzes of this course")
}
