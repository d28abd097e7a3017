package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	devenv "skyward-backend/dev/env"
	"skyward-backend/lib/gradestore"
)

const GradeStorePath = "<dev_state>/grades.db"

const testConfigTemplate = `// live portal tests read this file, they are skipped while base_url is empty
{
  base_url: "",
  codes: {
    dwd: "",
    wfaacl: "",
    encses: "",
    sessionid: "",
    "User-Type": "",
  },
  // copy the data-* attributes of a gradebook cell to enable the grade info test
  grade_info: {},
}
`

func CreateGradeStore(ctx context.Context) error {
	path, err := devenv.ResolvePath(GradeStorePath)
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("grade store already created at", path)
	} else {
		fmt.Println("creating grade store at", path)
	}

	// migrations are applied to existing stores too
	db, err := gradestore.Open(ctx, path)
	if err != nil {
		return err
	}
	return db.Close()
}

func CreateTestConfigTemplate() error {
	path, err := devenv.GetStateFilePath(devenv.SkywardTestConfigPath)
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("test config already exists at", path)
		return nil
	}
	fmt.Println("writing test config template to", path)
	return os.WriteFile(path, []byte(testConfigTemplate), 0666)
}

func PrintConfigLocations() {
	slog.Info("some tests will require you to fill in dev/.state/skyward.json5 in order to run properly, please look at the result of skipped tests in `go test -v` to understand which values are needed.")
}
