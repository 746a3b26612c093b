package gallery

import (
	"math/rand"

	"github.com/kozaktomas/door-sentry/internal/embedding"
)

// Decoy generation defaults, matching the admin tool the galleries were first built with.
const (
	DefaultDecoyCount = 10
	DefaultDecoySeed  = 42
	decoySpread       = 0.05
)

// GenerateDecoys returns count synthetic unit vectors drawn from a small cube
// around the origin. Enrolled under UnknownIdentity they widen the rejection
// region without identifying anyone. The output is deterministic for a seed.
func GenerateDecoys(dim, count int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible data, not security
	out := make([][]float32, 0, count)
	for range count {
		v := make([]float32, dim)
		for i := range v {
			v[i] = (rng.Float32() - 0.5) * decoySpread
		}
		out = append(out, embedding.Normalize(v))
	}
	return out
}

// WithDecoys returns a copy of enrolled whose UnknownIdentity entry is replaced by decoys.
func WithDecoys(enrolled map[string][][]float32, decoys [][]float32) map[string][][]float32 {
	out := make(map[string][][]float32, len(enrolled)+1)
	for name, samples := range enrolled {
		out[name] = samples
	}
	out[UnknownIdentity] = decoys
	return out
}
