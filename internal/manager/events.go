package manager

// Event represents a session lifecycle event.
// Minimal and stable: name + model path and optional fields via key/values.
type Event struct {
	Name   string
	Model  string
	Fields map[string]any
}

// Event names.
const (
	EventLoadStart       = "load_start"
	EventLoadReady       = "load_ready"
	EventLoadError       = "load_error"
	EventGenerateStart   = "generate_start"
	EventGenerateDone    = "generate_done"
	EventReleaseStart    = "release_start"
	EventReleaseDone     = "release_done"
	EventReleaseDeferred = "release_deferred"
	EventResetContext    = "reset_context"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
