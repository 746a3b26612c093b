// Package gallery is the enrolled-identity store: it holds the reference
// embeddings of every enrolled person and answers nearest-neighbour queries
// against them.
//
// Every identity is compared by its minimum L2 distance over its samples
// (or over a single centroid when Options.Centroid is set). Identities are
// kept in name order, so when two identities are exactly equidistant the
// lexicographically smaller name wins. A Store is immutable after New and is
// safe for concurrent use without locking.
package gallery

import (
	"fmt"
	"math"
	"sort"

	"github.com/kozaktomas/door-sentry/internal/embedding"
)

// UnknownIdentity is the reserved identity name. Samples enrolled under it are
// decoys: a nearest match against them is reported as Unknown.
const UnknownIdentity = "Unknown"

// IndexKind selects how candidate samples are retrieved for a query.
type IndexKind string

const (
	// IndexLinear scans every sample. Exact.
	IndexLinear IndexKind = "linear"
	// IndexHNSW retrieves candidates from an HNSW graph and re-ranks them exactly.
	IndexHNSW IndexKind = "hnsw"
)

// Options configures matching behaviour.
type Options struct {
	// Threshold is the inclusive maximum distance for a match.
	Threshold float64
	// Dimension every sample must have. Zero takes the dimension of the first sample.
	Dimension int
	// Centroid collapses each identity to the normalized mean of its samples.
	Centroid bool
	// Index selects the candidate retrieval strategy (default IndexLinear).
	Index IndexKind
	// Candidates is how many nearest samples the HNSW index returns for re-ranking.
	Candidates int
}

// Identity is one enrolled person (or the decoy set) with its reference embeddings.
type Identity struct {
	Name    string
	Samples [][]float32
}

// Result is the outcome of a nearest-neighbour query.
type Result struct {
	Identity string  // matched identity, or UnknownIdentity
	Distance float64 // distance to the closest reference sample
	Known    bool    // true when Identity is a real enrolled person within the threshold
}

type sample struct {
	identity int // index into Store.identities
	vec      []float32
}

// candidateIndex returns indices into Store.samples worth scoring for a query.
type candidateIndex interface {
	candidates(query []float32) []int
}

// Store holds the loaded gallery.
type Store struct {
	opts       Options
	identities []Identity
	samples    []sample
	index      candidateIndex
}

// New validates the enrollment mapping and builds a Store.
// An identity with no samples, a dimension mismatch, non-finite values, an empty
// gallery or names colliding after normalization are all configuration errors.
func New(enrolled map[string][][]float32, opts Options) (*Store, error) {
	if len(enrolled) == 0 {
		return nil, configErr("", "no identities enrolled")
	}
	if opts.Threshold <= 0 || math.IsNaN(opts.Threshold) {
		return nil, configErr("", "match threshold must be positive, got %v", opts.Threshold)
	}
	if opts.Index == "" {
		opts.Index = IndexLinear
	}
	if opts.Candidates <= 0 {
		opts.Candidates = DefaultCandidates
	}

	names := make([]string, 0, len(enrolled))
	for name := range enrolled {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]string, len(names))
	s := &Store{opts: opts, identities: make([]Identity, 0, len(names))}

	for _, name := range names {
		if name == "" {
			return nil, configErr("", "empty identity name")
		}
		folded := NormalizeName(name)
		if prev, ok := seen[folded]; ok {
			return nil, configErr(name, "collides with %q after name normalization", prev)
		}
		seen[folded] = name

		raw := enrolled[name]
		if len(raw) == 0 {
			return nil, configErr(name, "has no embeddings")
		}

		normalized := make([][]float32, 0, len(raw))
		for i, vec := range raw {
			if s.opts.Dimension == 0 {
				s.opts.Dimension = len(vec)
			}
			if len(vec) == 0 || len(vec) != s.opts.Dimension {
				return nil, &ConfigError{
					Identity: name,
					Reason:   fmt.Sprintf("sample %d has dimension %d, want %d", i, len(vec), s.opts.Dimension),
					Err:      embedding.ErrDimensionMismatch,
				}
			}
			if !embedding.Finite(vec) {
				return nil, configErr(name, "sample %d contains non-finite values", i)
			}
			normalized = append(normalized, embedding.Normalize(vec))
		}

		if opts.Centroid {
			c, err := embedding.Centroid(normalized)
			if err != nil {
				return nil, &ConfigError{Identity: name, Reason: "computing centroid", Err: err}
			}
			normalized = [][]float32{c}
		}

		idx := len(s.identities)
		s.identities = append(s.identities, Identity{Name: name, Samples: normalized})
		for _, vec := range normalized {
			s.samples = append(s.samples, sample{identity: idx, vec: vec})
		}
	}

	switch s.opts.Index {
	case IndexLinear:
		s.index = linearIndex{n: len(s.samples)}
	case IndexHNSW:
		s.index = newHNSWIndex(s.samples, s.opts.Candidates)
	default:
		return nil, configErr("", "unknown index kind %q", s.opts.Index)
	}

	return s, nil
}

// Nearest returns the closest identity to query.
// The result is Unknown when the best distance is strictly greater than the
// threshold, when the closest sample is a decoy, or when the query has the
// wrong dimension, a zero norm or non-finite values.
func (s *Store) Nearest(query []float32) Result {
	if len(query) != s.opts.Dimension || !embedding.Finite(query) || embedding.Norm(query) == 0 {
		return Result{Identity: UnknownIdentity, Distance: math.Inf(1)}
	}
	q := embedding.Normalize(query)

	best, bestDist := s.closest(q, s.index.candidates(q), -1)
	if best < 0 {
		return Result{Identity: UnknownIdentity, Distance: math.Inf(1)}
	}

	name := s.identities[best].Name
	if bestDist > s.opts.Threshold || name == UnknownIdentity {
		return Result{Identity: UnknownIdentity, Distance: bestDist}
	}
	return Result{Identity: name, Distance: bestDist, Known: true}
}

// closest returns the identity index with the minimum distance to q among the
// candidate samples, skipping the identity at index exclude. Candidates are
// scored in sample order, which follows identity name order, so the strict
// comparison keeps the first name on ties.
func (s *Store) closest(q []float32, candidates []int, exclude int) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for _, i := range candidates {
		smp := s.samples[i]
		if smp.identity == exclude {
			continue
		}
		if d := embedding.Distance(q, smp.vec); d < bestDist {
			best, bestDist = smp.identity, d
		}
	}
	return best, bestDist
}

// Neighbor reports the closest other identity to any sample of name, ignoring
// the threshold. Used by enrollment tooling to spot identities that are too
// similar to tell apart. It always scans every sample: an approximate index
// can fill its candidate list with the identity's own samples.
func (s *Store) Neighbor(name string) (Result, bool) {
	idx := sort.Search(len(s.identities), func(i int) bool { return s.identities[i].Name >= name })
	if idx == len(s.identities) || s.identities[idx].Name != name {
		return Result{}, false
	}

	all := linearIndex{n: len(s.samples)}.candidates(nil)
	best := Result{Distance: math.Inf(1)}
	for _, vec := range s.identities[idx].Samples {
		other, d := s.closest(vec, all, idx)
		if other >= 0 && d < best.Distance {
			best = Result{
				Identity: s.identities[other].Name,
				Distance: d,
				Known:    s.identities[other].Name != UnknownIdentity,
			}
		}
	}
	return best, best.Identity != ""
}

// Identities returns the enrolled names in tie-break order.
func (s *Store) Identities() []string {
	names := make([]string, len(s.identities))
	for i, id := range s.identities {
		names[i] = id.Name
	}
	return names
}

// SampleCount returns the total number of reference vectors held.
func (s *Store) SampleCount() int {
	return len(s.samples)
}

// Dimension returns the embedding dimension of the gallery.
func (s *Store) Dimension() int {
	return s.opts.Dimension
}

// Threshold returns the inclusive match threshold.
func (s *Store) Threshold() float64 {
	return s.opts.Threshold
}

type linearIndex struct{ n int }

func (l linearIndex) candidates([]float32) []int {
	out := make([]int, l.n)
	for i := range out {
		out[i] = i
	}
	return out
}
