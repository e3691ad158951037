package manager

// State represents the lifecycle state of a session.
type State string

const (
	StateUnloaded   State = "unloaded"
	StateLoaded     State = "loaded"
	StateGenerating State = "generating"
)
