package host

// State is the lifecycle state of an Activity.
type State int

const (
	// StateUnloaded is the state of an activity whose runtime is not loaded.
	StateUnloaded State = iota
	// StateLoaded means the runtime is loaded and OnCreate has not run.
	StateLoaded
	// StateCreated means OnCreate has run; events are relayed.
	StateCreated
	// StateTerminated means OnDestroy has run.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateCreated:
		return "created"
	case StateTerminated:
		return "terminated"
	default:
		return "invalid"
	}
}
