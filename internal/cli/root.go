// Package cli implements the lumen command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumenstudio/lumen/internal/config"
	"github.com/lumenstudio/lumen/internal/effects"
	"github.com/lumenstudio/lumen/internal/plugin"
	"github.com/lumenstudio/lumen/internal/plugin/modpath"
	"github.com/lumenstudio/lumen/internal/plugin/noderun"
)

// bundleEnvVar carries the packaged bundle path when the host shell
// launches the CLI from a packaged install.
const bundleEnvVar = "LUMEN_BUNDLE"

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"

	flagConfig  string
	flagBundle  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Lumen motion-graphics host tools",
	Long: `Lumen manages the effect plugins that extend the render pipeline:
listing configured plugins, loading them against the host's shared
dependency tree, and diagnosing module resolution.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "plugin configuration file (default: plugins.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagBundle, "bundle", "", "packaged application bundle path (default: $"+bundleEnvVar+")")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}

// newLogger builds the CLI logger.
func newLogger() *zap.Logger {
	if flagVerbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, _ := cfg.Build()
	return logger
}

// newModPath builds the module resolution context from the packaging
// signal: an explicit --bundle flag, then the environment, else a
// development host.
func newModPath(logger *zap.Logger) *modpath.Context {
	bundle := flagBundle
	if bundle == "" {
		bundle = os.Getenv(bundleEnvVar)
	}
	host := modpath.HostInfo{}
	if bundle != "" {
		host = modpath.HostInfo{Packaged: true, BundlePath: bundle}
	}
	return modpath.New(host, modpath.WithLogger(logger))
}

// buildManager wires the lifecycle manager with its real
// collaborators: the plugins.yaml provider, the Node loader, and the
// effect registry.
func buildManager(logger *zap.Logger) (*plugin.Manager, *effects.Registry, error) {
	var mgr *plugin.Manager
	registry := effects.NewRegistry(func() []string {
		if mgr == nil {
			return nil
		}
		return mgr.PluginPaths()
	}, logger)

	mgr, err := plugin.NewManager(plugin.Config{
		Provider:  config.NewProvider(flagConfig, buildVersion, logger),
		Loaders:   noderun.NewProvider(logger),
		Refresher: registry,
		ModPath:   newModPath(logger),
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return mgr, registry, nil
}
