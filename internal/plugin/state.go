package plugin

// State is the lifecycle state of a plugin record.
type State int

const (
	// StateUnloaded - registered lazily, loader not yet run.
	StateUnloaded State = iota

	// StateLoading - loader in flight.
	StateLoading

	// StateDisabled - loaded, enabled flag off.
	StateDisabled

	// StateEnabled - loaded and enabled.
	StateEnabled
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateDisabled:
		return "disabled"
	case StateEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// IsLoaded returns true once the instance is available.
func (s State) IsLoaded() bool {
	return s == StateDisabled || s == StateEnabled
}

func stateOf(rec *Record) State {
	switch {
	case !rec.Loaded:
		return StateUnloaded
	case rec.Enabled:
		return StateEnabled
	default:
		return StateDisabled
	}
}
