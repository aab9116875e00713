package plugin

import "context"

// ConfigProvider supplies the configured plugin descriptors. The
// manager delegates to Initialize during its own initialization.
type ConfigProvider interface {
	Initialize(ctx context.Context) error
	Descriptors(ctx context.Context) ([]Descriptor, error)
}

// Loader executes plugin code at a resolved entry path.
type Loader interface {
	Load(ctx context.Context, path string) error
}

// LoaderProvider acquires the dynamic loader capability. Acquisition
// failure is the only batch-fatal condition in a load batch.
type LoaderProvider interface {
	Acquire(ctx context.Context) (Loader, error)
}

// RegistryRefresher rescans the effect registry after a load batch.
// force bypasses any cached scan.
type RegistryRefresher interface {
	Refresh(ctx context.Context, force bool) error
}
