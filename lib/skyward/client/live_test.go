package client_test

import (
	"context"
	devenv "skyward-backend/dev/env"
	"skyward-backend/lib/skyward/client"
	"skyward-backend/lib/skyward/session"
	"skyward-backend/lib/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func liveClient(t *testing.T) (*client.Client, devenv.SkywardTestConfig) {
	config, err := devenv.GetStateConfig[devenv.SkywardTestConfig](devenv.SkywardTestConfigPath)
	if err != nil || config.BaseUrl == "" {
		t.Skipf("live portal config not found at <dev_state>/%s", devenv.SkywardTestConfigPath)
	}
	c, err := client.New(config.BaseUrl, telemetry.NewRecorder(), client.Options{
		DumpDir: "<dev_state>/skyward_client",
	})
	require.NoError(t, err)
	return c, config
}

func TestLivePages(t *testing.T) {
	c, config := liveClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	gradebook, err := c.FetchGradebook(ctx, config.Codes)
	require.NoError(t, err)
	require.NoError(t, session.Detect(gradebook))

	history, err := c.FetchHistory(ctx, config.Codes)
	require.NoError(t, err)
	require.NoError(t, session.Detect(history))
}

func TestLiveGradeInfo(t *testing.T) {
	c, config := liveClient(t)
	if len(config.GradeInfo) == 0 {
		t.Skip("grade_info is not set in the live portal config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	info := config.GradeInfo
	document, err := c.FetchGradeInfo(ctx, config.Codes, client.GradeInfoRequest{
		StuID:       info["stuId"],
		EntityID:    info["entityId"],
		CorNumID:    info["corNumId"],
		Track:       info["track"],
		Section:     info["section"],
		GbID:        info["gbId"],
		Bucket:      info["bucket"],
		SubjectID:   info["subjectId"],
		DialogLevel: info["dialogLevel"],
		IsEoc:       info["isEoc"],
	})
	require.NoError(t, err)
	require.NoError(t, session.Detect(document))
}
