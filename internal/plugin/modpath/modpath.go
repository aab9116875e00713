package modpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	// DefaultCorePackage is the host's core generation-library package.
	// Its nested dependency directory holds the native addons that get
	// flattened into each plugin's dependency tree.
	DefaultCorePackage = "lumen-engine"

	// DepDirName is the per-package dependency directory name.
	DepDirName = "node_modules"

	// SearchPathVar is the process-wide module search path variable.
	SearchPathVar = "NODE_PATH"

	// unpackedSuffix marks the on-disk mirror of bundle contents that
	// cannot be used from inside the packaged bundle itself.
	unpackedSuffix = ".unpacked"
)

// HostInfo is the packaging signal supplied by the host shell.
type HostInfo struct {
	// Packaged reports whether the process runs from a packaged bundle.
	Packaged bool

	// BundlePath is the path to the application bundle. Only consulted
	// when Packaged is true.
	BundlePath string
}

// Context resolves and caches dependency lookup paths for the process.
type Context struct {
	host        HostInfo
	corePackage string
	logger      *zap.Logger

	mu         sync.Mutex
	resolved   bool
	basePath   string
	sharedPath string
	resolveErr error
}

// Option configures a Context.
type Option func(*Context)

// WithCorePackage overrides the core generation-library package name.
func WithCorePackage(name string) Option {
	return func(c *Context) {
		c.corePackage = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// New creates a Context for the given host packaging signal.
func New(host HostInfo, opts ...Option) *Context {
	c := &Context{
		host:        host,
		corePackage: DefaultCorePackage,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger, _ = zap.NewProduction()
	}
	c.logger = c.logger.With(zap.String("component", "modpath"))
	return c
}

// IsProduction reports whether the host runs from a packaged bundle.
func (c *Context) IsProduction() bool {
	return c.host.Packaged
}

// CorePackage returns the core generation-library package name.
func (c *Context) CorePackage() string {
	return c.corePackage
}

// BasePath returns the directory that anchors dependency lookup: the
// working directory in development, the unpacked bundle mirror in
// production.
func (c *Context) BasePath() (string, error) {
	if err := c.resolve(); err != nil {
		return "", err
	}
	return c.basePath, nil
}

// SharedDependencyPath returns the host's shared dependency directory.
func (c *Context) SharedDependencyPath() (string, error) {
	if err := c.resolve(); err != nil {
		return "", err
	}
	return c.sharedPath, nil
}

// CorePackagePath returns the host's copy of the core package.
func (c *Context) CorePackagePath() (string, error) {
	shared, err := c.SharedDependencyPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(shared, c.corePackage), nil
}

// resolve computes and caches the base and shared dependency paths.
func (c *Context) resolve() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved {
		return c.resolveErr
	}
	c.resolved = true

	if c.host.Packaged {
		if c.host.BundlePath == "" {
			c.resolveErr = fmt.Errorf("modpath: packaged host has no bundle path")
			return c.resolveErr
		}
		c.basePath = c.host.BundlePath + unpackedSuffix
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			c.resolveErr = fmt.Errorf("modpath: resolving working directory: %w", err)
			return c.resolveErr
		}
		c.basePath = cwd
	}

	c.sharedPath = filepath.Join(c.basePath, DepDirName)
	return nil
}

// ConfigureSearchPath prepends the shared dependency path to the
// process-wide module search variable, preserving any prior entries.
// Existing occurrences of the shared path are removed first, so
// repeated calls do not grow the variable.
func (c *Context) ConfigureSearchPath() error {
	shared, err := c.SharedDependencyPath()
	if err != nil {
		return err
	}

	sep := string(os.PathListSeparator)
	entries := []string{shared}
	for _, entry := range strings.Split(os.Getenv(SearchPathVar), sep) {
		if entry == "" || entry == shared {
			continue
		}
		entries = append(entries, entry)
	}

	value := strings.Join(entries, sep)
	if err := os.Setenv(SearchPathVar, value); err != nil {
		return fmt.Errorf("modpath: setting %s: %w", SearchPathVar, err)
	}

	c.logger.Debug("configured module search path",
		zap.String("var", SearchPathVar),
		zap.String("value", value))
	return nil
}

// Reset clears the memoized paths so the next access recomputes them.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved = false
	c.basePath = ""
	c.sharedPath = ""
	c.resolveErr = nil
}

// Diagnostics is a point-in-time snapshot of the resolution state,
// attached to load errors and logged during initialization.
type Diagnostics struct {
	IsProduction           bool   `json:"isProduction"`
	BasePath               string `json:"basePath"`
	SharedDependencyPath   string `json:"sharedDependencyPath"`
	SharedDependencyExists bool   `json:"sharedDependencyExists"`
	CorePackagePath        string `json:"corePackagePath"`
	CorePackageExists      bool   `json:"corePackageExists"`
}

// Diagnostics reports the current resolution state. It has no side
// effects beyond memoizing the paths.
func (c *Context) Diagnostics() Diagnostics {
	d := Diagnostics{IsProduction: c.host.Packaged}

	base, err := c.BasePath()
	if err != nil {
		return d
	}
	d.BasePath = base

	shared, _ := c.SharedDependencyPath()
	d.SharedDependencyPath = shared
	d.SharedDependencyExists = dirExists(shared)

	core, _ := c.CorePackagePath()
	d.CorePackagePath = core
	d.CorePackageExists = dirExists(core)

	return d
}

// String returns a compact single-line form for error messages.
func (d Diagnostics) String() string {
	return fmt.Sprintf("production=%t base=%s shared=%s(exists=%t) core=%s(exists=%t)",
		d.IsProduction, d.BasePath,
		d.SharedDependencyPath, d.SharedDependencyExists,
		d.CorePackagePath, d.CorePackageExists)
}

// Fields returns the snapshot as structured log fields.
func (d Diagnostics) Fields() []zap.Field {
	return []zap.Field{
		zap.Bool("production", d.IsProduction),
		zap.String("base_path", d.BasePath),
		zap.String("shared_dependency_path", d.SharedDependencyPath),
		zap.Bool("shared_dependency_exists", d.SharedDependencyExists),
		zap.String("core_package_path", d.CorePackagePath),
		zap.Bool("core_package_exists", d.CorePackageExists),
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
