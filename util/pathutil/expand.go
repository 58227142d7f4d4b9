// Package pathutil converts between the paths users write in configuration
// and absolute filesystem paths.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand resolves a leading ~ and $VARS in path and makes it absolute.
func Expand(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty path")
	}
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		path = home + path[1:]
	}
	return filepath.Abs(path)
}

// Abbreviate replaces the home directory prefix of path with ~ for display.
func Abbreviate(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	switch {
	case path == home:
		return "~"
	case strings.HasPrefix(path, home+string(filepath.Separator)):
		return "~" + path[len(home):]
	}
	return path
}
