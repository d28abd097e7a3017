package chrono

import (
	"errors"
	"skyward-backend/lib/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardTime(t *testing.T) {
	la, err := NewStandardTime("America/Los_Angeles")
	require.NoError(t, err)
	require.Equal(t, "America/Los_Angeles", la.Now().Location().String())

	local, err := NewStandardTime("")
	require.NoError(t, err)
	require.Equal(t, time.Local, local.Location())

	_, err = NewStandardTime("Not/AZone")
	require.Error(t, err)
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("test", -7*60*60)
	at := time.Date(2024, 9, 3, 17, 45, 12, 99, loc)
	require.Equal(t, time.Date(2024, 9, 3, 0, 0, 0, 0, loc), StartOfDay(at))
}

func TestCronLogger(t *testing.T) {
	rec := telemetry.NewRecorder()
	logger := cronLogger{tel: rec}

	logger.Info("schedule", "entry", 1, "next", "soon")
	logger.Error(errors.New("boom"), "job failed", "entry", 1)

	reports := rec.Reports()
	require.Len(t, reports, 2)
	require.Equal(t, "cron: schedule", reports[0].ID)
	require.Equal(t, []any{"entry=1", "next=soon"}, reports[0].Params)
	require.Equal(t, 1, rec.Count("broken", "cron"))
	require.ErrorContains(t, reports[1].Params[0].(error), "job failed: boom")
	require.Equal(t, []any{"entry=1"}, logger.formatParams([]any{"entry", 1, "dangling"}))
}

func TestStandardCronRejectsBadSpec(t *testing.T) {
	cron := NewStandardCron(FixedTime{Time: time.Now()}, telemetry.NewRecorder())
	defer cron.Stop()

	require.Error(t, cron.Cron("not a spec", func() {}))
	require.NoError(t, cron.Cron("*/5 * * * *", func() {}))
}
