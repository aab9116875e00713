package plugin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lumenstudio/lumen/internal/plugin/modpath"
)

// Plugin lifecycle errors.
var (
	// ErrInvalidDescriptor is returned in the LoadResult of a plugin
	// whose descriptor was marked invalid upstream.
	ErrInvalidDescriptor = errors.New("plugin descriptor is invalid")

	// ErrNoConfigProvider is returned when a Manager is constructed
	// without a configuration collaborator.
	ErrNoConfigProvider = errors.New("config provider is required")

	// ErrNoLoaderProvider is returned when a Manager is constructed
	// without a loader capability provider.
	ErrNoLoaderProvider = errors.New("loader provider is required")

	// ErrNoModulePathContext is returned when a Manager is constructed
	// without a module path context.
	ErrNoModulePathContext = errors.New("module path context is required")
)

// LoaderUnavailableError is the only batch-fatal error: the loader
// capability could not be acquired, so no plugin in the batch was
// attempted. It carries resolution diagnostics for error reporting.
type LoaderUnavailableError struct {
	Diag modpath.Diagnostics
	Err  error
}

func (e *LoaderUnavailableError) Error() string {
	return fmt.Sprintf("plugin loader unavailable: %v (%s)", e.Err, e.Diag)
}

func (e *LoaderUnavailableError) Unwrap() error {
	return e.Err
}

// LoadError is a per-plugin load failure. Diag is attached when the
// underlying error matches a module-not-found signature, pointing the
// reader at the dependency resolution state that likely caused it.
type LoadError struct {
	Name string
	Path string
	Diag *modpath.Diagnostics
	Err  error
}

func (e *LoadError) Error() string {
	if e.Diag != nil {
		return fmt.Sprintf("loading plugin %q: %v (%s)", e.Name, e.Err, *e.Diag)
	}
	return fmt.Sprintf("loading plugin %q: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// moduleNotFoundSignatures are the error text shapes produced by the
// Node resolver when a dependency cannot be resolved.
var moduleNotFoundSignatures = []string{
	"Cannot find module",
	"MODULE_NOT_FOUND",
}

// isModuleNotFound reports whether err looks like a dependency
// resolution failure rather than a plugin defect.
func isModuleNotFound(err error) bool {
	if err == nil {
		return false
	}
	text := err.Error()
	for _, sig := range moduleNotFoundSignatures {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return false
}
