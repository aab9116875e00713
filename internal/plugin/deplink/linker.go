// Package deplink grafts the host's shared dependencies into a
// plugin's own dependency directory via symlinks.
//
// Linking is strictly additive: a pre-existing dependency directory is
// never touched, and no individual symlink ever replaces a same-named
// entry. Each pass is fault-tolerant, so a plugin with a partially
// linked tree can still load through the process-wide search path.
package deplink

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lumenstudio/lumen/internal/plugin/modpath"
)

const manifestName = "package.json"

// Linker populates plugin dependency directories from the host's
// shared dependency tree.
type Linker struct {
	ctx    *modpath.Context
	logger *zap.Logger
}

// NewLinker creates a Linker against the given module path context.
func NewLinker(ctx *modpath.Context, logger *zap.Logger) *Linker {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Linker{
		ctx:    ctx,
		logger: logger.With(zap.String("component", "deplink")),
	}
}

// Link populates pluginRoot's dependency directory with symlinks into
// the host's shared dependency tree. It is a no-op when the directory
// already exists, and soft-fails (log only) when the shared tree is
// absent or the directory cannot be created.
func (l *Linker) Link(pluginRoot string) {
	depDir := filepath.Join(pluginRoot, modpath.DepDirName)
	if _, err := os.Lstat(depDir); err == nil {
		// Existing install, leave it alone.
		return
	}

	shared, err := l.ctx.SharedDependencyPath()
	if err != nil || !dirExists(shared) {
		l.logger.Warn("shared dependency directory unavailable, skipping link",
			zap.String("plugin_root", pluginRoot),
			zap.String("shared", shared),
			zap.Error(err))
		return
	}

	if err := os.MkdirAll(depDir, 0o755); err != nil {
		l.logger.Warn("cannot create plugin dependency directory",
			zap.String("dir", depDir),
			zap.Error(err))
		return
	}

	corePath := filepath.Join(shared, l.ctx.CorePackage())
	l.linkCoreMirror(depDir, corePath)
	l.linkCoreNested(depDir, corePath)
	l.linkShared(depDir, shared)
}

// linkCoreMirror mirrors the core package as a directory of individual
// entry symlinks. Linking entries one by one, instead of the package
// directory itself, keeps the mirror writable for sibling overlays.
func (l *Linker) linkCoreMirror(depDir, corePath string) {
	entries, err := os.ReadDir(corePath)
	if err != nil {
		l.logger.Warn("core package unreadable, skipping mirror",
			zap.String("core", corePath),
			zap.Error(err))
		return
	}

	mirror := filepath.Join(depDir, l.ctx.CorePackage())
	if err := os.MkdirAll(mirror, 0o755); err != nil {
		l.logger.Warn("cannot create core package mirror",
			zap.String("mirror", mirror),
			zap.Error(err))
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == manifestName || hidden(name) {
			continue
		}
		l.symlink(filepath.Join(corePath, name), filepath.Join(mirror, name))
	}
}

// linkCoreNested flattens the core package's own dependency directory
// (native addons) into the plugin's dependency directory as top-level
// siblings, so ordinary resolution finds them.
func (l *Linker) linkCoreNested(depDir, corePath string) {
	nested := filepath.Join(corePath, modpath.DepDirName)
	entries, err := os.ReadDir(nested)
	if err != nil {
		// The core package carrying no nested dependencies is normal.
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if hidden(name) {
			continue
		}
		l.symlink(filepath.Join(nested, name), filepath.Join(depDir, name))
	}
}

// linkShared links every other top-level shared dependency into the
// plugin's dependency directory.
func (l *Linker) linkShared(depDir, shared string) {
	entries, err := os.ReadDir(shared)
	if err != nil {
		l.logger.Warn("shared dependency directory unreadable",
			zap.String("shared", shared),
			zap.Error(err))
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == l.ctx.CorePackage() || hidden(name) {
			continue
		}
		l.symlink(filepath.Join(shared, name), filepath.Join(depDir, name))
	}
}

// symlink creates target -> source unless target already exists.
// Failures are logged and skipped, never propagated.
func (l *Linker) symlink(source, target string) {
	if _, err := os.Lstat(target); err == nil {
		return
	}
	if err := os.Symlink(source, target); err != nil {
		l.logger.Warn("symlink failed",
			zap.String("source", source),
			zap.String("target", target),
			zap.Error(err))
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
