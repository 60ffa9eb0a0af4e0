package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localPath returns the path of the untracked override for `name`,
// "config/kontomanager.json5" becomes "config/kontomanager.local.json5".
func localPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

func readInto[T any](path string, out *T) (found bool, err error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
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
// The following files are merged, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T

	found, err := readInto(name, &out)
	if err != nil {
		return out, err
	}

	local := localPath(name)
	var override T
	foundLocal, err := readInto(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Debug("merging config with local overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Resolve layers `defaults`, the files read by ReadConfig and `overrides` on top of each other.
// Zero values never override, so unset fields of a layer fall through to the one below.
// Missing files are not an error.
func Resolve[T any](name string, defaults, overrides T) (T, error) {
	out := defaults

	if name != "" {
		fromFile, err := ReadConfig[T](name)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return out, err
		}
		if err == nil {
			err = mergo.Merge(&out, fromFile, mergo.WithOverride)
			if err != nil {
				return out, err
			}
		}
	}

	err := mergo.Merge(&out, overrides, mergo.WithOverride)
	if err != nil {
		return out, err
	}
	return out, nil
}

// EnvOverrides builds a value of T by calling `apply` for every variable in `names` that is set.
func EnvOverrides[T any](names map[string]func(*T, string)) T {
	var out T
	for name, apply := range names {
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			continue
		}
		apply(&out, value)
	}
	return out
}
