// Package classifier turns one frame's detection result into exactly one Observation.
package classifier

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/door-sentry/internal/embedding"
	"github.com/kozaktomas/door-sentry/internal/gallery"
)

// Kind is the category of a per-frame observation.
type Kind int

const (
	// KindInconclusive means the frame cannot be attributed to one face.
	KindInconclusive Kind = iota
	// KindMatch means the single face matched an enrolled identity within the threshold.
	KindMatch
	// KindUnknown means the single face matched nobody (or a decoy).
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindMatch:
		return "match"
	case KindUnknown:
		return "unknown"
	default:
		return "inconclusive"
	}
}

// Reason explains an inconclusive observation.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNoFace           Reason = "no_face"
	ReasonMultipleFaces    Reason = "multiple_faces"
	ReasonExtractionFailed Reason = "extraction_failed"
)

// Observation is the classifier output for one processed frame.
type Observation struct {
	Kind     Kind
	Identity string  // set for KindMatch
	Distance float64 // set for KindMatch and KindUnknown
	Reason   Reason  // set for KindInconclusive
}

// Match builds a KindMatch observation.
func Match(identity string, distance float64) Observation {
	return Observation{Kind: KindMatch, Identity: identity, Distance: distance}
}

// Unknown builds a KindUnknown observation.
func Unknown(distance float64) Observation {
	return Observation{Kind: KindUnknown, Identity: gallery.UnknownIdentity, Distance: distance}
}

// Inconclusive builds a KindInconclusive observation.
func Inconclusive(reason Reason) Observation {
	return Observation{Kind: KindInconclusive, Reason: reason}
}

func (o Observation) String() string {
	switch o.Kind {
	case KindMatch:
		return fmt.Sprintf("Match(%s, %.3f)", o.Identity, o.Distance)
	case KindUnknown:
		return fmt.Sprintf("Unknown(%.3f)", o.Distance)
	default:
		return fmt.Sprintf("Inconclusive(%s)", o.Reason)
	}
}

// Frame is what the detection and embedding collaborators report for one camera frame.
type Frame struct {
	Faces     int       // number of detected faces
	Embedding []float32 // embedding of the face when Faces == 1
	Err       error     // extraction failure for the single face, if any
}

// ErrEmptyEmbedding is reported when a single face arrives without an embedding.
var ErrEmptyEmbedding = errors.New("empty embedding")

// Matcher answers nearest-identity queries. *gallery.Store implements it.
type Matcher interface {
	Nearest(query []float32) gallery.Result
	Dimension() int
}

// Classifier maps frames to observations. It has no mutable state.
type Classifier struct {
	matcher Matcher
}

// New creates a Classifier backed by matcher.
func New(matcher Matcher) *Classifier {
	return &Classifier{matcher: matcher}
}

// Classify produces the observation for one frame.
// Multiple faces are never arbitrated automatically; they are inconclusive.
// A zero or non-finite embedding is a failed extraction, not a face.
func (c *Classifier) Classify(f Frame) (obs Observation) {
	switch {
	case f.Faces <= 0:
		return Inconclusive(ReasonNoFace)
	case f.Faces > 1:
		return Inconclusive(ReasonMultipleFaces)
	case f.Err != nil, len(f.Embedding) == 0, len(f.Embedding) != c.matcher.Dimension():
		return Inconclusive(ReasonExtractionFailed)
	case !embedding.Finite(f.Embedding), embedding.Norm(f.Embedding) == 0:
		return Inconclusive(ReasonExtractionFailed)
	}

	defer func() {
		if r := recover(); r != nil {
			obs = Inconclusive(ReasonExtractionFailed)
		}
	}()

	res := c.matcher.Nearest(f.Embedding)
	if !res.Known {
		return Unknown(res.Distance)
	}
	return Match(res.Identity, res.Distance)
}
