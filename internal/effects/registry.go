// Package effects tracks the render effects contributed by loaded
// plugins.
//
// Plugins declare effects in their manifest under lumen.effects; the
// registry scans the loaded plugin roots and exposes the combined
// effect set to the render pipeline. The plugin lifecycle manager
// forces a rescan once after every load batch with at least one
// success.
package effects

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const manifestName = "package.json"

// Effect is one render effect contributed by a plugin.
type Effect struct {
	ID     string
	Name   string
	Plugin string
}

// Registry scans plugin roots for effect contributions. It implements
// the lifecycle manager's RegistryRefresher.
type Registry struct {
	mu      sync.RWMutex
	sources func() []string
	effects map[string]Effect
	scanned bool
	logger  *zap.Logger
}

// NewRegistry creates a Registry. sources returns the plugin paths to
// scan; typically the lifecycle manager's PluginPaths.
func NewRegistry(sources func() []string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Registry{
		sources: sources,
		effects: make(map[string]Effect),
		logger:  logger.With(zap.String("component", "effect_registry")),
	}
}

// Refresh rescans the plugin roots. The scan is cached; force bypasses
// the cache.
func (r *Registry) Refresh(ctx context.Context, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scanned && !force {
		return nil
	}

	r.effects = make(map[string]Effect)
	for _, source := range r.sources() {
		r.scanSource(source)
	}
	r.scanned = true

	r.logger.Debug("effect registry refreshed", zap.Int("effects", len(r.effects)))
	return nil
}

// scanSource registers the effects declared by one plugin path.
func (r *Registry) scanSource(source string) {
	root := source
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		root = filepath.Dir(source)
	}

	data, err := os.ReadFile(filepath.Join(root, manifestName))
	if err != nil {
		// Manifest-less plugins contribute no declared effects.
		return
	}

	for _, item := range gjson.GetBytes(data, "lumen.effects").Array() {
		id := item.Get("id").String()
		if id == "" {
			continue
		}
		if existing, exists := r.effects[id]; exists {
			r.logger.Warn("duplicate effect id",
				zap.String("id", id),
				zap.String("kept", existing.Plugin),
				zap.String("ignored", root))
			continue
		}
		r.effects[id] = Effect{
			ID:     id,
			Name:   item.Get("name").String(),
			Plugin: root,
		}
	}
}

// Effects returns all registered effects sorted by ID.
func (r *Registry) Effects() []Effect {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Effect, 0, len(r.effects))
	for _, effect := range r.effects {
		result = append(result, effect)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Lookup returns the effect with the given ID.
func (r *Registry) Lookup(id string) (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	effect, exists := r.effects[id]
	return effect, exists
}

// Count returns the number of registered effects.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.effects)
}
