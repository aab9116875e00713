package plugin

import "time"

// Descriptor identifies one configured plugin. Descriptors arrive in
// order from the configuration collaborator; Valid=false entries were
// rejected upstream and are never resolved against the filesystem.
type Descriptor struct {
	Name  string
	Path  string
	Valid bool

	// Reason explains why the descriptor was marked invalid.
	Reason string
}

// LoadResult is produced for every descriptor in a load batch,
// regardless of outcome.
type LoadResult struct {
	Name    string
	Path    string
	Success bool
	Err     error
}

// LoadedPlugin is the record retained for a successfully loaded
// plugin until UnloadAll or process exit.
type LoadedPlugin struct {
	Name     string
	Path     string
	LoadedAt time.Time
}
