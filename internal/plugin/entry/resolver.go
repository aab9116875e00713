// Package entry resolves configured plugin paths to loadable entry
// files and locates plugin package boundaries.
package entry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

const (
	// ManifestName is the per-package metadata file.
	ManifestName = "package.json"

	// ConventionalEntry is tried when the manifest declares no usable
	// main file.
	ConventionalEntry = "plugin.js"
)

// ErrNoEntryPoint is returned when a plugin path resolves to neither a
// file, a manifest main, nor the conventional entry file.
var ErrNoEntryPoint = errors.New("plugin has no entry point")

// Resolver resolves a configured plugin path (file or directory) to a
// concrete loadable entry file.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the absolute path of the plugin's entry file.
//
// A path naming a regular file resolves to itself. A directory
// resolves through its manifest "main" field, then the conventional
// entry filename. Anything else fails with ErrNoEntryPoint.
func (r *Resolver) Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving plugin path %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("plugin path %q: %w", path, err)
	}

	if !info.IsDir() {
		return abs, nil
	}

	if main := r.manifestMain(abs); main != "" {
		candidate := filepath.Join(abs, main)
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	candidate := filepath.Join(abs, ConventionalEntry)
	if fileExists(candidate) {
		return candidate, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNoEntryPoint, path)
}

// manifestMain returns the manifest "main" field, or "" if the
// manifest is missing or has none.
func (r *Resolver) manifestMain(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return ""
	}
	return gjson.GetBytes(data, "main").String()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
