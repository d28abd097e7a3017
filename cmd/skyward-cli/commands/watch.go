package commands

import (
	"context"
	"log/slog"
	"skyward-backend/lib/chrono"
	"skyward-backend/lib/gradestore"
	"skyward-backend/lib/notify"
	"skyward-backend/lib/skyward/gradebook"
	"skyward-backend/lib/skyward/pipeline"
	"skyward-backend/lib/telemetry"
	"skyward-backend/lib/util/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var watchFlags struct {
	cron      string
	perfStats bool
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.cron, "cron", "0 */2 * * *", "The cron spec to check grades on.")
	watchCmd.Flags().BoolVar(&watchFlags.perfStats, "perf-stats", true, "Record process performance stats.")
	rootCmd.AddCommand(watchCmd)
}

type watcher struct {
	user    string
	service pipeline.Service
	store   gradestore.Store
	mailer  *notify.Mailer
}

// check pushes the current gradebook and notifies of every change since the previous push.
func (w watcher) check(ctx context.Context) error {
	record, err := w.service.Grades(ctx)
	if err != nil {
		return err
	}
	prev, _, err := w.store.Latest(ctx, w.user)
	if err != nil {
		return err
	}
	_, err = w.store.Push(ctx, gradestore.PushRequest{User: w.user, Record: record})
	if err != nil {
		return err
	}

	// the first snapshot is a baseline, not a change
	if prev == nil {
		slog.Info("stored baseline snapshot", "courses", len(record))
		return nil
	}
	changes := gradestore.Diff(prev, record)
	for _, c := range changes {
		slog.Info("grade changed", "change", c.String())
	}
	if w.mailer == nil {
		return nil
	}
	return w.mailer.Notify(ctx, w.user, changes)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--cron <spec>]",
	Short: "Periodically snapshots the gradebook and reports grade changes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := serviceutil.SignalContext(cmd.Context())
		tel := telemetry.SlogAPI{}

		config, err := loadConfig()
		if err != nil {
			return err
		}
		service, err := newLiveService(config, gradebook.NewCourseIndex(tel), tel)
		if err != nil {
			return err
		}
		store, database, err := openStore(ctx, config)
		if err != nil {
			return err
		}
		defer database.Close()

		w := watcher{user: config.User, service: service, store: store}
		if config.Smtp.Server != "" && len(config.NotifyTo) > 0 {
			mailer := notify.NewMailer(config.Smtp, config.NotifyTo, tel)
			w.mailer = &mailer
		}

		if watchFlags.perfStats {
			telemetry.InstrumentPerfStats(ctx, tel, time.Minute)
		}

		clock, err := newTime(config)
		if err != nil {
			return err
		}
		cron := chrono.NewStandardCron(clock, tel)
		defer cron.Stop()

		err = cron.Cron(watchFlags.cron, func() {
			err := w.check(ctx)
			if err != nil {
				slog.Error("grade check failed", "err", err.Error())
			}
		})
		if err != nil {
			return err
		}

		slog.Info("watching grades", "cron", watchFlags.cron, "user", config.User)
		<-ctx.Done()
		return nil
	},
}
