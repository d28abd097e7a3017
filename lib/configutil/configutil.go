package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/titanous/json5"
)

// localName turns `dir/name.ext` into `dir/name.local.ext`.
func localName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

func readJson5[T any](path string, out *T) (found bool, err error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads a json5 configuration file, `name` should come with a file extension.
// the following files are merged, where the higher number takes priority:
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// os.ErrNotExist is returned if neither exists.
func ReadConfig[T any](name string) (T, error) {
	var out T

	foundDefault, err := readJson5(name, &out)
	if err != nil {
		return out, err
	}

	localPath := localName(name)
	var override T
	foundLocal, err := readJson5(localPath, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
	}

	if !foundDefault && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig but it goes up the filesystem until the root
// to find a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T

	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return defaultOut, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return defaultOut, os.ErrNotExist
		}
		current = parent
	}
}

// ReadWithEnv is ReadConfig followed by an environment overlay, fields tagged with `env`
// are overwritten by set environment variables. A missing file is not an error here so that
// a config can be provided purely through the environment.
func ReadWithEnv[T any](name string) (T, error) {
	out, err := ReadConfig[T](name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, err
	}
	err = cleanenv.ReadEnv(&out)
	if err != nil {
		return out, fmt.Errorf("read env: %w", err)
	}
	return out, nil
}
