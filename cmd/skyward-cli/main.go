package main

import (
	"context"
	"log/slog"
	"skyward-backend/cmd/skyward-cli/commands"
	"skyward-backend/lib/telemetry"
)

func main() {
	ctx := context.Background()
	err := telemetry.SetupFromEnv(ctx, "skyward-cli")
	if err != nil {
		slog.Warn("failed to setup telemetry", "err", err.Error())
	}
	defer telemetry.Shutdown(ctx)

	commands.ExecuteContext(ctx)
}
