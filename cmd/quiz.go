package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdeck/internal/activity"
	"github.com/abhisek/quizdeck/internal/bundle"
	"github.com/abhisek/quizdeck/internal/quiz"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Manage quizzes",
}

var quizImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import quizzes from a bundle file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		b, err := bundle.Decode(r)
		if err != nil {
			return fmt.Errorf("read bundle: %w", err)
		}
		if dryRun {
			fmt.Printf("Bundle OK: %d quizzes (format %s)\n", len(b.Quizzes), b.FormatVersion)
			return nil
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := bundle.Import(cmd.Context(), e.store.Quizzes(), b)
		for _, id := range res.Created {
			e.publishQuiz(activity.QuizImported, id, "created")
		}
		for _, id := range res.Updated {
			e.publishQuiz(activity.QuizImported, id, "updated")
		}
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Printf("Imported %d quizzes (%d new, %d replaced)\n",
			len(res.Created)+len(res.Updated), len(res.Created), len(res.Updated))
		return nil
	},
}

var quizExportCmd = &cobra.Command{
	Use:   "export [quiz-id...]",
	Short: "Write quizzes to a bundle file (all quizzes when no id is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		quizzes, err := bundle.Export(cmd.Context(), e.store.Quizzes(), args...)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}

		w := io.Writer(os.Stdout)
		if out != "" && out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := bundle.Encode(w, quizzes, time.Now()); err != nil {
			return fmt.Errorf("write bundle: %w", err)
		}
		if w != os.Stdout {
			fmt.Fprintf(os.Stderr, "Exported %d quizzes to %s\n", len(quizzes), out)
		}
		return nil
	},
}

var quizListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quizzes",
	RunE: func(cmd *cobra.Command, args []string) error {
		course, _ := cmd.Flags().GetString("course")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		repo := e.store.Quizzes()
		ctx := cmd.Context()
		var quizzes []quiz.Quiz
		if course != "" {
			quizzes, err = repo.ListQuizzesByCourse(ctx, course)
		} else {
			quizzes, err = repo.ListQuizzes(ctx)
		}
		if err != nil {
			return fmt.Errorf("list quizzes: %w", err)
		}

		if len(quizzes) == 0 {
			fmt.Println("No quizzes found.")
			return nil
		}

		fmt.Printf("%-36s  %-12s  %-12s  %4s  %6s  %s\n",
			"ID", "Course", "Difficulty", "Qs", "Points", "Title")
		fmt.Println(strings.Repeat("─", 100))
		for _, q := range quizzes {
			fmt.Printf("%-36s  %-12s  %-12s  %4d  %6d  %s\n",
				truncate(q.ID, 36), truncate(q.CourseID, 12), q.Difficulty,
				len(q.Questions), q.TotalPoints(), q.Title)
		}
		return nil
	},
}

var quizDeleteCmd = &cobra.Command{
	Use:   "delete <quiz-id>",
	Short: "Delete a quiz and all of its attempts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.store.Quizzes().DeleteQuiz(cmd.Context(), args[0]); err != nil {
			return err
		}
		e.publishQuiz(activity.QuizDeleted, args[0], "")
		fmt.Printf("Deleted quiz %s\n", args[0])
		return nil
	},
}

func (e *env) publishQuiz(typ activity.Type, quizID, detail string) {
	ev := activity.NewEvent(typ, time.Now())
	ev.QuizID = quizID
	ev.Detail = detail
	e.bus.Publish(ev)
}

func init() {
	quizImportCmd.Flags().Bool("dry-run", false, "Validate the bundle without writing")
	quizExportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	quizListCmd.Flags().StringP("course", "c", "", "Only list quizzes of this course")

	quizCmd.AddCommand(quizImportCmd)
	quizCmd.AddCommand(quizExportCmd)
	quizCmd.AddCommand(quizListCmd)
	quizCmd.AddCommand(quizDeleteCmd)
}
