package manager

import "errors"

var (
	// ErrNotLoaded is returned by operations that need a loaded model.
	ErrNotLoaded = errors.New("no model loaded")
	// ErrAlreadyGenerating is returned when a generation is in flight,
	// including reentrant calls made from inside a sink.
	ErrAlreadyGenerating = errors.New("generation already in progress")
	// ErrInvalidConfig wraps validation failures of model or sampling configs.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrReleaseDeferred is returned by Release when the in-flight run did not
	// exit within the drain timeout. The run closes the handle when it exits.
	ErrReleaseDeferred = errors.New("release deferred until generation exits")
)

// IsUsageError reports whether err is a caller mistake rather than an engine
// or resource failure. Usage errors leave the session state unchanged.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrNotLoaded) || errors.Is(err, ErrAlreadyGenerating) || errors.Is(err, ErrInvalidConfig)
}

// LoadError reports a failed Load. The session is Unloaded afterwards.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return "load " + e.Path + ": " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is (or wraps) a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
