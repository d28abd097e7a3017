package chrono

import (
	"fmt"
	"skyward-backend/lib/telemetry"

	"github.com/robfig/cron/v3"
)

// CronAPI is the interface that anything depending on things to happen on a cron job should use.
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron is the standard implementation of CronAPI using `github.com/robfig/cron/v3`
type StandardCron struct {
	cron *cron.Cron
}

// NewStandardCron is the constructor of StandardCron, jobs are scheduled in the location of
// time. A job still running when its next tick comes is skipped for that tick and a panicking
// job is reported instead of crashing the scheduler. Call Stop to stop scheduling.
func NewStandardCron(time TimeAPI, tel telemetry.API) StandardCron {
	logger := cronLogger{tel: tel}
	cronner := cron.New(
		cron.WithLogger(logger),
		cron.WithLocation(time.Location()),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)
	cronner.Start()

	return StandardCron{
		cron: cronner,
	}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

// Stop stops the scheduler and blocks until running jobs complete.
func (s StandardCron) Stop() {
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	tel telemetry.API
}

// formatParams pairs up robfig's alternating keys and values, a trailing key without a
// value is dropped.
func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v=%v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(fmt.Sprintf("cron: %s", msg), l.formatParams(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(
		"cron",
		append([]any{fmt.Errorf("%s: %w", msg, err)}, l.formatParams(keysAndValues)...)...,
	)
}
