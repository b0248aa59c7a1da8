package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the recent activity log",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		keep, _ := cmd.Flags().GetInt("prune")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		repo := e.store.Activity()
		if cmd.Flags().Changed("prune") {
			if err := repo.Prune(cmd.Context(), keep); err != nil {
				return err
			}
			fmt.Printf("Kept the %d most recent events.\n", keep)
			return nil
		}

		events, err := repo.RecentActivity(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No activity recorded yet.")
			return nil
		}

		fmt.Printf("%-19s  %-18s  %-16s  %-16s  %s\n", "Time", "Event", "Actor", "Quiz", "Detail")
		fmt.Println(strings.Repeat("─", 100))
		for _, ev := range events {
			detail := ev.Detail
			if ev.AttemptID != "" {
				detail = strings.TrimSpace("attempt " + ev.AttemptID + " " + detail)
			}
			fmt.Printf("%-19s  %-18s  %-16s  %-16s  %s\n",
				ev.At.Local().Format("2006-01-02 15:04:05"),
				ev.Type,
				truncate(ev.ActorID, 16),
				truncate(ev.QuizID, 16),
				detail,
			)
		}
		return nil
	},
}

func init() {
	activityCmd.Flags().IntP("limit", "n", 30, "Number of events to show")
	activityCmd.Flags().Int("prune", 0, "Delete all but this many of the newest events instead of listing")
}
