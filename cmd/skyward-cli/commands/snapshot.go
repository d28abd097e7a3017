package commands

import (
	"context"
	"database/sql"
	"log/slog"
	devenv "skyward-backend/dev/env"
	"skyward-backend/lib/gradestore"
	"skyward-backend/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Stores and reads gradebook snapshots.",
}

var snapshotFlags struct {
	files  documentFlags
	user   string
	format string
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapshotFlags.user, "user", "", "The user to key snapshots by, defaults to the configured user.")
	snapshotPushCmd.Flags().StringVar(&snapshotFlags.files.gradebook, "file", "", "Read the gradebook page from a file instead of fetching it.")
	addFormatFlag(snapshotPullCmd, &snapshotFlags.format)

	snapshotCmd.AddCommand(snapshotPushCmd, snapshotPullCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func openStore(ctx context.Context, config Config) (gradestore.Store, *sql.DB, error) {
	path, err := devenv.ResolvePath(config.Store)
	if err != nil {
		return gradestore.Store{}, nil, err
	}
	database, err := gradestore.Open(ctx, path)
	if err != nil {
		return gradestore.Store{}, nil, err
	}
	time, err := newTime(config)
	if err != nil {
		database.Close()
		return gradestore.Store{}, nil, err
	}
	return gradestore.NewStore(database, time, telemetry.SlogAPI{}), database, nil
}

func snapshotUser(config Config) string {
	if snapshotFlags.user != "" {
		return snapshotFlags.user
	}
	return config.User
}

var snapshotPushCmd = &cobra.Command{
	Use:   "push [--file <gradebook.html>] [--user <user>]",
	Short: "Stores the current gradebook as today's snapshot.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		service, err := newService(snapshotFlags.files)
		if err != nil {
			return err
		}
		record, err := service.Grades(cmd.Context())
		if err != nil {
			return err
		}

		store, database, err := openStore(cmd.Context(), config)
		if err != nil {
			return err
		}
		defer database.Close()

		batch, err := store.Push(cmd.Context(), gradestore.PushRequest{
			User:   snapshotUser(config),
			Record: record,
		})
		if err != nil {
			return err
		}
		slog.Info("stored snapshot", "user", snapshotUser(config), "batch", batch, "courses", len(record))
		return nil
	},
}

var snapshotPullCmd = &cobra.Command{
	Use:   "pull [--user <user>] [--format table|json|yaml]",
	Short: "Prints every stored snapshot series of a user.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		store, database, err := openStore(cmd.Context(), config)
		if err != nil {
			return err
		}
		defer database.Close()

		series, err := store.Pull(cmd.Context(), snapshotUser(config))
		if err != nil {
			return err
		}
		return write(snapshotFlags.format, series, func() {
			t := newTable()
			t.AppendHeader(table.Row{"Course", "Bucket", "Time", "Grade"})
			for _, s := range series {
				for _, snapshot := range s.Snapshots {
					t.AppendRow(table.Row{s.Course, s.Bucket, snapshot.Time.Format("2006-01-02 15:04"), snapshot.Value})
				}
				t.AppendSeparator()
			}
			t.Render()
		})
	},
}
