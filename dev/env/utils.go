package devenv

import (
	"os"
	"path/filepath"
	"regexp"
	"skyward-backend/lib/configutil"
	"strings"
	"sync"
)

const (
	moduleName = "skyward-backend"
	// StatePrefix marks a path as relative to the dev state directory.
	StatePrefix = "<dev_state>"
	stateDir    = "dev/.state"
)

var moduleRegex = regexp.MustCompile(`(?m)^module\s+(\S+)\s*$`)

func declaresModule(dir string) bool {
	contents, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return false
	}
	m := moduleRegex.FindSubmatch(contents)
	return m != nil && string(m[1]) == moduleName
}

func findWorkspaceRoot() (string, error) {
	dir, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}
	for {
		if declaresModule(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// GetWorkspaceRoot walks up from the working directory to the directory holding this
// module's go.mod.
var GetWorkspaceRoot = sync.OnceValues(findWorkspaceRoot)

// GetStateFilePath returns the absolute path of a file in the dev state directory.
func GetStateFilePath(name string) (string, error) {
	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, stateDir, name), nil
}

// GetStateConfig reads a json5 config (and its .local overlay) from the dev state directory.
func GetStateConfig[T any](name string) (T, error) {
	path, err := GetStateFilePath(name)
	if err != nil {
		var out T
		return out, err
	}
	return configutil.ReadConfig[T](path)
}

// ResolvePath expands a leading <dev_state> into the dev state directory, creating the
// directory if needed. Other paths are returned unchanged.
func ResolvePath(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, StatePrefix)
	if !ok {
		return path, nil
	}
	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, stateDir)
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strings.TrimLeft(rest, `/\`)), nil
}
