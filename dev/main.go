package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	devenv "skyward-backend/dev/env"
	"skyward-backend/lib/telemetry"
)

var errNotRoot = errors.New("run the dev environment setup from the directory holding go.mod")

func create(ctx context.Context, recreate bool) error {
	root, err := devenv.GetWorkspaceRoot()
	if err != nil {
		return errNotRoot
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if wd != root {
		return errNotRoot
	}

	state, err := devenv.GetStateFilePath("")
	if err != nil {
		return err
	}
	if recreate {
		slog.Info("removing dev state", "dir", state)
		err = os.RemoveAll(state)
		if err != nil {
			return err
		}
	}
	err = os.MkdirAll(state, 0777)
	if err != nil {
		return err
	}

	err = CreateGradeStore(ctx)
	if err != nil {
		return err
	}
	err = CreateTestConfigTemplate()
	if err != nil {
		return err
	}
	PrintConfigLocations()
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "delete dev/.state before creating it again")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()
	telemetry.InitSlog(*verbose)

	err := create(context.Background(), *recreate)
	if err != nil {
		slog.Error("dev environment setup failed", "err", err)
		os.Exit(1)
	}
	slog.Info("dev environment is ready")
}
