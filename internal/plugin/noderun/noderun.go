// Package noderun provides the Node.js loader capability: plugins are
// executed out-of-process by the node binary found on PATH, with the
// configured module search path inherited through the environment.
package noderun

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lumenstudio/lumen/internal/plugin"
)

const binaryName = "node"

// Provider acquires a Node.js-backed plugin loader. Acquisition fails
// when no node binary is resolvable, which aborts the whole batch.
type Provider struct {
	logger *zap.Logger
}

// NewProvider creates a Provider.
func NewProvider(logger *zap.Logger) *Provider {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Provider{logger: logger}
}

// Acquire resolves the node binary and returns a loader bound to it.
func (p *Provider) Acquire(ctx context.Context) (plugin.Loader, error) {
	bin, err := exec.LookPath(binaryName)
	if err != nil {
		return nil, fmt.Errorf("node runtime not found on PATH: %w", err)
	}
	return &Loader{bin: bin, logger: p.logger}, nil
}

// Loader executes a plugin entry file with the node binary.
type Loader struct {
	bin    string
	logger *zap.Logger

	// Stdout can be set for testing; defaults to discarding.
	Stdout io.Writer
}

// Load runs the entry file. The process environment is inherited, so
// the module search path configured during initialization applies.
// Stderr is captured into the returned error, preserving the runtime's
// module-not-found signature for diagnosis upstream.
func (l *Loader) Load(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, l.bin, path)
	cmd.Dir = filepath.Dir(path)
	cmd.Env = os.Environ()

	stdout := l.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	l.logger.Debug("executing plugin",
		zap.String("bin", l.bin),
		zap.String("entry", path))

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("plugin execution failed: %s: %w", msg, err)
		}
		return fmt.Errorf("plugin execution failed: %w", err)
	}
	return nil
}
