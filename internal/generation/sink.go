package generation

// Sink receives generated text fragments in order, synchronously, on the
// generating goroutine. A non-nil error aborts the run.
type Sink interface {
	OnToken(fragment string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(fragment string) error

func (f SinkFunc) OnToken(fragment string) error { return f(fragment) }
