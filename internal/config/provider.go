// Package config supplies configured plugin descriptors to the
// lifecycle manager from the host's plugins.yaml file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lumenstudio/lumen/internal/plugin"
)

// Entry is one plugin declaration in plugins.yaml.
type Entry struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`

	// Enabled defaults to true when omitted.
	Enabled *bool `mapstructure:"enabled"`

	// MinHostVersion gates the plugin on a minimum host version.
	MinHostVersion string `mapstructure:"minHostVersion"`
}

// Provider implements plugin.ConfigProvider. Entries failing
// validation are passed through with Valid=false so the manager can
// report them without touching the filesystem.
type Provider struct {
	path        string
	hostVersion string
	logger      *zap.Logger

	mu      sync.Mutex
	loaded  bool
	entries []Entry
}

// NewProvider creates a Provider. path may be empty, in which case
// plugins.yaml is searched in the user config directory and the
// working directory. hostVersion is the running host's version.
func NewProvider(path, hostVersion string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Provider{
		path:        path,
		hostVersion: hostVersion,
		logger:      logger.With(zap.String("component", "plugin_config")),
	}
}

// Initialize reads the configuration file. A missing file is not an
// error: the host simply has no plugins configured.
func (p *Provider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if p.path != "" {
		if _, err := os.Stat(p.path); os.IsNotExist(err) {
			p.loaded = true
			return nil
		}
		v.SetConfigFile(p.path)
	} else {
		v.SetConfigName("plugins")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "lumen"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			p.loaded = true
			return nil
		}
		return fmt.Errorf("reading plugin configuration: %w", err)
	}

	if err := v.UnmarshalKey("plugins", &p.entries); err != nil {
		return fmt.Errorf("parsing plugin configuration: %w", err)
	}

	p.logger.Debug("plugin configuration loaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.Int("entries", len(p.entries)))
	p.loaded = true
	return nil
}

// Descriptors returns one descriptor per configured entry, in
// configuration order.
func (p *Provider) Descriptors(ctx context.Context) ([]plugin.Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	descriptors := make([]plugin.Descriptor, 0, len(p.entries))
	for _, e := range p.entries {
		descriptors = append(descriptors, p.describe(e))
	}
	return descriptors, nil
}

// describe validates one entry into a descriptor.
func (p *Provider) describe(e Entry) plugin.Descriptor {
	d := plugin.Descriptor{Name: e.Name, Path: e.Path}

	switch {
	case e.Name == "":
		d.Reason = "entry has no name"
	case e.Path == "":
		d.Reason = "entry has no path"
	case e.Enabled != nil && !*e.Enabled:
		d.Reason = "disabled in configuration"
	default:
		if reason := p.checkHostVersion(e.MinHostVersion); reason != "" {
			d.Reason = reason
			break
		}
		d.Valid = true
	}

	if !d.Valid {
		p.logger.Warn("plugin entry rejected",
			zap.String("name", e.Name),
			zap.String("path", e.Path),
			zap.String("reason", d.Reason))
	}
	return d
}

// checkHostVersion returns a rejection reason when the entry requires
// a newer host, or "" when the requirement is met.
func (p *Provider) checkHostVersion(minVersion string) string {
	if minVersion == "" {
		return ""
	}

	min, err := semver.NewVersion(minVersion)
	if err != nil {
		return fmt.Sprintf("invalid minHostVersion %q", minVersion)
	}

	host, err := semver.NewVersion(p.hostVersion)
	if err != nil {
		// Development builds ("dev") satisfy every requirement.
		return ""
	}

	if host.LessThan(min) {
		return fmt.Sprintf("requires host >= %s (running %s)", minVersion, p.hostVersion)
	}
	return ""
}
