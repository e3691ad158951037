package generation

import (
	"fmt"
	"math"

	"lmsession/internal/engine"
)

// SamplingConfig is the per-run sampling policy.
type SamplingConfig struct {
	// MaxTokens caps generated tokens. 0 returns immediately without decoding.
	MaxTokens int
	// Temperature 0 selects greedy decoding.
	Temperature float32
	TopP        float32
	// TopK 0 disables top-k filtering.
	TopK int
	// Seed fixes the random source for non-greedy sampling. 0 picks one.
	Seed int
	// Stop ends the run once the generated text ends with any of these.
	Stop []string
}

// DefaultSampling mirrors the fixed defaults of the public Generate call.
func DefaultSampling() SamplingConfig {
	return SamplingConfig{MaxTokens: 256, Temperature: 0, TopP: 0.9, TopK: 20}
}

// Validate reports the first out-of-range field.
func (c SamplingConfig) Validate() error {
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be >= 0, got %d", c.MaxTokens)
	}
	t := float64(c.Temperature)
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return fmt.Errorf("temperature must be a finite value >= 0, got %v", c.Temperature)
	}
	p := float64(c.TopP)
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("top_p must be within [0,1], got %v", c.TopP)
	}
	if c.TopK < 0 {
		return fmt.Errorf("top_k must be >= 0, got %d", c.TopK)
	}
	for i, s := range c.Stop {
		if s == "" {
			return fmt.Errorf("stop[%d] is empty", i)
		}
	}
	return nil
}

func (c SamplingConfig) engineSampling(budget int) engine.Sampling {
	return engine.Sampling{
		MaxTokens:   budget,
		Temperature: c.Temperature,
		TopP:        c.TopP,
		TopK:        c.TopK,
		Seed:        c.Seed,
	}
}
