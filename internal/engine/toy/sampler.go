package toy

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"lmsession/internal/engine"
)

// sampler picks the next token from a logits row. The chain mirrors the usual
// llama.cpp order: top-k, then top-p over the surviving candidates, then
// temperature scaling and a seeded draw. Temperature 0 short-circuits to argmax.
type sampler struct {
	rng  *rand.Rand
	cfg  engine.Sampling
	idx  []int
	prob []float64
}

func newSampler(cfg engine.Sampling) *sampler {
	seed := int64(cfg.Seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.TopP <= 0 {
		// keep at least one candidate
		cfg.TopP = 0
	}
	if cfg.TopP > 1 {
		cfg.TopP = 1
	}
	return &sampler{rng: rand.New(rand.NewSource(seed)), cfg: cfg}
}

func (s *sampler) sample(logits []float32) int32 {
	if s.cfg.Greedy() {
		return int32(argmax(logits))
	}

	// Candidates ordered by logit, ties broken by lower id.
	s.idx = s.idx[:0]
	for i := range logits {
		s.idx = append(s.idx, i)
	}
	sort.SliceStable(s.idx, func(a, b int) bool { return logits[s.idx[a]] > logits[s.idx[b]] })

	if k := s.cfg.TopK; k > 0 && k < len(s.idx) {
		s.idx = s.idx[:k]
	}

	if s.cfg.TopP < 1 {
		s.softmax(logits, 1)
		cum := 0.0
		keep := len(s.idx)
		for i, p := range s.prob {
			cum += p
			if cum >= float64(s.cfg.TopP) {
				keep = i + 1
				break
			}
		}
		if keep < 1 {
			keep = 1
		}
		s.idx = s.idx[:keep]
	}

	s.softmax(logits, s.cfg.Temperature)
	r := s.rng.Float64()
	cum := 0.0
	for i, p := range s.prob {
		cum += p
		if r < cum {
			return int32(s.idx[i])
		}
	}
	return int32(s.idx[len(s.idx)-1])
}

// softmax fills s.prob with the normalized probabilities of s.idx.
func (s *sampler) softmax(logits []float32, temp float32) {
	s.prob = s.prob[:0]
	maxv := float64(logits[s.idx[0]]) / float64(temp)
	sum := 0.0
	for _, id := range s.idx {
		e := math.Exp(float64(logits[id])/float64(temp) - maxv)
		s.prob = append(s.prob, e)
		sum += e
	}
	for i := range s.prob {
		s.prob[i] /= sum
	}
}

func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
