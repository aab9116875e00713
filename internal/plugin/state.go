package plugin

// State represents the lifecycle state of the plugin subsystem.
type State int

// Subsystem states.
const (
	// StateUninitialized - the subsystem has not been initialized.
	StateUninitialized State = iota

	// StateInitializing - initialization is in progress.
	StateInitializing

	// StateReady - the subsystem is initialized and plugins may load.
	StateReady
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}
