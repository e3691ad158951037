package engine

import (
	"fmt"
	"testing"
)

func TestIsDependencyUnavailable(t *testing.T) {
	err := ErrDependencyUnavailable("x")
	if !IsDependencyUnavailable(err) {
		t.Fatalf("expected IsDependencyUnavailable true")
	}
	wrapped := fmt.Errorf("open: %w", err)
	if !IsDependencyUnavailable(wrapped) {
		t.Fatalf("expected wrapped error to match")
	}
	if IsDependencyUnavailable(ErrClosed) {
		t.Fatalf("ErrClosed is not a dependency error")
	}
}

func TestSamplingGreedy(t *testing.T) {
	if !(Sampling{Temperature: 0}).Greedy() {
		t.Fatalf("temperature 0 must be greedy")
	}
	if (Sampling{Temperature: 0.7}).Greedy() {
		t.Fatalf("temperature 0.7 must not be greedy")
	}
}
