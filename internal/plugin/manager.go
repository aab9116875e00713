package plugin

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumenstudio/lumen/internal/plugin/deplink"
	"github.com/lumenstudio/lumen/internal/plugin/entry"
	"github.com/lumenstudio/lumen/internal/plugin/importfix"
	"github.com/lumenstudio/lumen/internal/plugin/modpath"
)

// Manager orchestrates the plugin lifecycle: initialization of the
// module search path, per-plugin resolution/linking/rewriting/loading,
// loaded-plugin tracking, and teardown.
type Manager struct {
	mu sync.RWMutex

	state State

	// Collaborators
	config    ConfigProvider
	loaders   LoaderProvider
	refresher RegistryRefresher

	// Pipeline components
	modpath  *modpath.Context
	resolver *entry.Resolver
	locator  *entry.RootLocator
	linker   *deplink.Linker
	rewriter *importfix.Rewriter

	logger *zap.Logger

	// Loaded plugins by name, with load order for deterministic
	// iteration.
	plugins   map[string]LoadedPlugin
	loadOrder []string

	// Rewritten-source temp files, deleted on unload.
	tempFiles []string

	// Event handlers (protected by mu)
	eventHandlers []EventHandler
}

// EventHandler handles manager lifecycle events. Handlers must be
// non-blocking and should not call back into the Manager. Panics in
// handlers are recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent is a fire-and-forget lifecycle notification.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Path   string
	Err    error
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventPluginLoaded is emitted when a plugin loads successfully.
	EventPluginLoaded ManagerEventType = iota
	// EventPluginLoadError is emitted when a plugin fails to load.
	EventPluginLoadError
	// EventRegistryRefreshed is emitted after the post-batch effect
	// registry refresh.
	EventRegistryRefreshed
	// EventPluginsUnloaded is emitted when all plugins are unloaded.
	EventPluginsUnloaded
)

// String returns the wire name of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventPluginLoaded:
		return "plugin:loaded"
	case EventPluginLoadError:
		return "plugin:loadError"
	case EventRegistryRefreshed:
		return "effectRegistry:refreshed"
	case EventPluginsUnloaded:
		return "plugins:unloaded"
	default:
		return "unknown"
	}
}

// Config assembles a Manager's collaborators.
type Config struct {
	// Provider supplies plugin descriptors (required).
	Provider ConfigProvider

	// Loaders acquires the loader capability (required).
	Loaders LoaderProvider

	// Refresher rescans the effect registry after successful batches.
	// Optional; nil skips refreshing.
	Refresher RegistryRefresher

	// ModPath is the process-wide module resolution context (required).
	ModPath *modpath.Context

	// Rules overrides the import rewrite rule set. Nil uses the
	// default rules for the context's core package.
	Rules []importfix.Rule

	// Logger defaults to zap.NewProduction().
	Logger *zap.Logger
}

// NewManager creates a Manager from the given collaborators.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Provider == nil {
		return nil, ErrNoConfigProvider
	}
	if cfg.Loaders == nil {
		return nil, ErrNoLoaderProvider
	}
	if cfg.ModPath == nil {
		return nil, ErrNoModulePathContext
	}

	logger := cfg.Logger
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	rules := cfg.Rules
	if rules == nil {
		rules = importfix.DefaultRules(cfg.ModPath.CorePackage())
	}

	return &Manager{
		state:     StateUninitialized,
		config:    cfg.Provider,
		loaders:   cfg.Loaders,
		refresher: cfg.Refresher,
		modpath:   cfg.ModPath,
		resolver:  entry.NewResolver(),
		locator:   entry.NewRootLocator(logger),
		linker:    deplink.NewLinker(cfg.ModPath, logger),
		rewriter:  importfix.NewRewriter(rules, logger),
		logger:    logger.With(zap.String("component", "plugin_manager")),
		plugins:   make(map[string]LoadedPlugin),
	}, nil
}

// Initialize configures the module search path, logs resolution
// diagnostics, and initializes the configuration collaborator.
// Idempotent: a call while already ready is a no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateReady {
		m.mu.Unlock()
		return nil
	}
	m.state = StateInitializing
	m.mu.Unlock()

	if err := m.modpath.ConfigureSearchPath(); err != nil {
		m.setState(StateUninitialized)
		return fmt.Errorf("configuring module search path: %w", err)
	}

	m.logger.Info("module resolution configured", m.modpath.Diagnostics().Fields()...)

	if err := m.config.Initialize(ctx); err != nil {
		m.setState(StateUninitialized)
		return fmt.Errorf("initializing plugin configuration: %w", err)
	}

	m.setState(StateReady)
	return nil
}

// EnsureLoaded initializes the subsystem if needed and loads every
// configured plugin strictly in order, one result per descriptor. A
// per-plugin failure never aborts the batch; only failure to acquire
// the loader capability does, raising LoaderUnavailableError.
func (m *Manager) EnsureLoaded(ctx context.Context) ([]LoadResult, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	descriptors, err := m.config.Descriptors(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading plugin configuration: %w", err)
	}
	if len(descriptors) == 0 {
		return []LoadResult{}, nil
	}

	loader, err := m.loaders.Acquire(ctx)
	if err != nil {
		return nil, &LoaderUnavailableError{Diag: m.modpath.Diagnostics(), Err: err}
	}

	results := make([]LoadResult, 0, len(descriptors))
	succeeded := 0
	for _, d := range descriptors {
		result := m.loadOne(ctx, loader, d)
		if result.Success {
			succeeded++
		}
		results = append(results, result)
	}

	if succeeded > 0 {
		m.refreshRegistry(ctx)
	}

	m.logger.Info("plugin batch complete",
		zap.Int("configured", len(descriptors)),
		zap.Int("loaded", succeeded))
	return results, nil
}

// loadOne runs the per-plugin pipeline and always returns a LoadResult.
func (m *Manager) loadOne(ctx context.Context, loader Loader, d Descriptor) LoadResult {
	if !d.Valid {
		err := fmt.Errorf("%w: %s", ErrInvalidDescriptor, d.Reason)
		m.emitEvent(ManagerEvent{Type: EventPluginLoadError, Plugin: d.Name, Path: d.Path, Err: err})
		return LoadResult{Name: d.Name, Path: d.Path, Err: err}
	}

	entryPath, err := m.resolver.Resolve(d.Path)
	if err != nil {
		m.emitEvent(ManagerEvent{Type: EventPluginLoadError, Plugin: d.Name, Path: d.Path, Err: err})
		return LoadResult{Name: d.Name, Path: d.Path, Err: err}
	}

	rootDir := m.locator.Locate(entryPath)

	// Best-effort: the plugin may still resolve its dependencies
	// through the process-wide search path.
	m.linker.Link(rootDir)

	effective, rewritten := m.rewriter.Fix(entryPath)
	if rewritten {
		m.mu.Lock()
		m.tempFiles = append(m.tempFiles, effective)
		m.mu.Unlock()
	}

	if err := loader.Load(ctx, effective); err != nil {
		loadErr := &LoadError{Name: d.Name, Path: d.Path, Err: err}
		if isModuleNotFound(err) {
			diag := m.modpath.Diagnostics()
			loadErr.Diag = &diag
		}
		m.emitEvent(ManagerEvent{Type: EventPluginLoadError, Plugin: d.Name, Path: d.Path, Err: loadErr})
		return LoadResult{Name: d.Name, Path: d.Path, Err: loadErr}
	}

	record := LoadedPlugin{Name: d.Name, Path: d.Path, LoadedAt: time.Now()}
	m.mu.Lock()
	if _, exists := m.plugins[d.Name]; !exists {
		m.loadOrder = append(m.loadOrder, d.Name)
	}
	m.plugins[d.Name] = record
	m.mu.Unlock()

	m.emitEvent(ManagerEvent{Type: EventPluginLoaded, Plugin: d.Name, Path: d.Path})
	return LoadResult{Name: d.Name, Path: d.Path, Success: true}
}

// refreshRegistry forces one non-cached registry rescan for the batch.
func (m *Manager) refreshRegistry(ctx context.Context) {
	if m.refresher == nil {
		return
	}
	if err := m.refresher.Refresh(ctx, true); err != nil {
		m.logger.Warn("effect registry refresh failed", zap.Error(err))
		return
	}
	m.emitEvent(ManagerEvent{Type: EventRegistryRefreshed})
}

// UnloadAll deletes rewritten temp files (best-effort per file),
// clears the loaded-plugin records, and resets the subsystem to
// uninitialized. Idempotent.
func (m *Manager) UnloadAll() {
	m.mu.Lock()
	temps := m.tempFiles
	m.tempFiles = nil
	m.plugins = make(map[string]LoadedPlugin)
	m.loadOrder = nil
	m.state = StateUninitialized
	m.mu.Unlock()

	for _, path := range temps {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("cannot remove rewritten temp file",
				zap.String("path", path),
				zap.Error(err))
		}
	}

	m.modpath.Reset()
	m.emitEvent(ManagerEvent{Type: EventPluginsUnloaded})
}

// LoadedPlugins returns the loaded-plugin records in load order.
func (m *Manager) LoadedPlugins() []LoadedPlugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]LoadedPlugin, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		if record, exists := m.plugins[name]; exists {
			result = append(result, record)
		}
	}
	return result
}

// PluginPaths returns the configured paths of loaded plugins in load
// order.
func (m *Manager) PluginPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		if record, exists := m.plugins[name]; exists {
			paths = append(paths, record.Path)
		}
	}
	return paths
}

// IsInitialized reports whether the subsystem is ready.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady
}

// State returns the current subsystem state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Count returns the number of loaded plugins.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

// IsLoaded reports whether the named plugin is loaded.
func (m *Manager) IsLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.plugins[name]
	return exists
}

// Subscribe adds an event handler and returns an unsubscribe function.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	m.eventHandlers = append(m.eventHandlers, handler)
	index := len(m.eventHandlers) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting.
		if index < len(m.eventHandlers) {
			m.eventHandlers[index] = nil
		}
	}
}

// setState updates the state under lock.
func (m *Manager) setState(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

// emitEvent sends an event to all handlers, outside any locks, with
// panic recovery.
func (m *Manager) emitEvent(event ManagerEvent) {
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.eventHandlers))
	copy(handlers, m.eventHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				recover() // Ignore panics from handlers
			}()
			handler(event)
		}()
	}
}
