package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/quizdeck/internal/activity"
	"github.com/abhisek/quizdeck/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "quizdeck",
	Short: "Timed quizzes with grading and next-quiz suggestions",
	Long: "quizdeck runs timed quizzes in the terminal, scores submissions, lets an\n" +
		"instructor override grades, and suggests what to take next.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadDotenv(".env")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database file (sqlite) or URL (postgres); overrides QUIZDECK_DB")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite or postgres; overrides QUIZDECK_DB_DRIVER")

	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(attemptsCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadDotenv reads KEY=value pairs from path into the environment. Variables
// already set win, and a missing file is not an error.
func loadDotenv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// resolveDB returns the driver and DSN using flags first, then
// QUIZDECK_DB_DRIVER / QUIZDECK_DB, then the default sqlite path.
func resolveDB(cmd *cobra.Command) (store.Driver, string, error) {
	name, _ := cmd.Flags().GetString("driver")
	if name == "" {
		name = os.Getenv("QUIZDECK_DB_DRIVER")
	}
	driver, err := store.ParseDriver(name)
	if err != nil {
		return "", "", err
	}

	dsn, _ := cmd.Flags().GetString("db")
	if driver == store.DriverPostgres {
		if dsn == "" {
			dsn = os.Getenv("QUIZDECK_DB")
		}
		if dsn == "" {
			return "", "", errors.New("postgres needs a connection URL in --db or QUIZDECK_DB")
		}
		return driver, dsn, nil
	}

	if dsn != "" {
		return driver, dsn, store.EnsureDir(dsn)
	}
	dsn, err = store.DefaultDBPath()
	return driver, dsn, err
}

// env bundles what most subcommands need: the store and an activity bus
// whose events are persisted to it.
type env struct {
	store *store.Store
	bus   *activity.Bus
	sink  *activity.Sink
}

func openEnv(cmd *cobra.Command) (*env, error) {
	driver, dsn, err := resolveDB(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	st, err := store.Open(cmd.Context(), driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	bus := activity.NewBus(256)
	return &env{
		store: st,
		bus:   bus,
		// Activity writes outlive a cancelled command so nothing buffered is lost.
		sink: activity.NewSink(context.WithoutCancel(cmd.Context()), bus, st.Activity()),
	}, nil
}

// Close flushes pending activity and closes the store.
func (e *env) Close() error {
	e.sink.Close()
	e.bus.Close()
	return e.store.Close()
}
