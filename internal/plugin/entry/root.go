package entry

import (
	"path/filepath"

	"go.uber.org/zap"
)

// maxRootDepth bounds the upward walk from an entry file to its
// package boundary.
const maxRootDepth = 10

// RootLocator finds a plugin's package boundary directory.
type RootLocator struct {
	logger *zap.Logger
}

// NewRootLocator creates a RootLocator.
func NewRootLocator(logger *zap.Logger) *RootLocator {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &RootLocator{
		logger: logger.With(zap.String("component", "root_locator")),
	}
}

// Locate walks parent directories upward from the entry file, bounded
// at a fixed maximum depth, and returns the first directory containing
// a manifest. If none is found it falls back to the entry file's own
// directory (degraded mode, non-fatal).
func (l *RootLocator) Locate(entryPath string) string {
	dir := filepath.Dir(entryPath)

	current := dir
	for i := 0; i < maxRootDepth; i++ {
		if fileExists(filepath.Join(current, ManifestName)) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	l.logger.Warn("no package boundary found above entry file, using its directory",
		zap.String("entry", entryPath),
		zap.String("fallback", dir))
	return dir
}
