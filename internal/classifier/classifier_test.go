package classifier

import (
	"errors"
	"math"
	"testing"

	"github.com/kozaktomas/door-sentry/internal/gallery"
)

func testGallery(t *testing.T) *gallery.Store {
	t.Helper()
	s, err := gallery.New(map[string][][]float32{
		"Alice":                 {{1, 0, 0}},
		"Bob":                   {{0, 1, 0}},
		gallery.UnknownIdentity: {{0, 0, 1}},
	}, gallery.Options{Threshold: 0.5, Dimension: 3})
	if err != nil {
		t.Fatalf("gallery.New() error: %v", err)
	}
	return s
}

type panickingMatcher struct{}

func (panickingMatcher) Nearest([]float32) gallery.Result { panic("model exploded") }
func (panickingMatcher) Dimension() int                   { return 3 }

func TestClassify(t *testing.T) {
	c := New(testGallery(t))

	tests := []struct {
		name         string
		frame        Frame
		wantKind     Kind
		wantIdentity string
		wantReason   Reason
	}{
		{
			name:       "no face",
			frame:      Frame{Faces: 0},
			wantKind:   KindInconclusive,
			wantReason: ReasonNoFace,
		},
		{
			name:       "two faces with embedding",
			frame:      Frame{Faces: 2, Embedding: []float32{1, 0, 0}},
			wantKind:   KindInconclusive,
			wantReason: ReasonMultipleFaces,
		},
		{
			name:       "extraction error",
			frame:      Frame{Faces: 1, Embedding: []float32{1, 0, 0}, Err: errors.New("crop failed")},
			wantKind:   KindInconclusive,
			wantReason: ReasonExtractionFailed,
		},
		{
			name:       "missing embedding",
			frame:      Frame{Faces: 1},
			wantKind:   KindInconclusive,
			wantReason: ReasonExtractionFailed,
		},
		{
			name:       "wrong dimension",
			frame:      Frame{Faces: 1, Embedding: []float32{1, 0}},
			wantKind:   KindInconclusive,
			wantReason: ReasonExtractionFailed,
		},
		{
			name:       "zero embedding",
			frame:      Frame{Faces: 1, Embedding: []float32{0, 0, 0}},
			wantKind:   KindInconclusive,
			wantReason: ReasonExtractionFailed,
		},
		{
			name:       "NaN in embedding",
			frame:      Frame{Faces: 1, Embedding: []float32{float32(math.NaN()), 1, 0}},
			wantKind:   KindInconclusive,
			wantReason: ReasonExtractionFailed,
		},
		{
			name:       "infinite embedding",
			frame:      Frame{Faces: 1, Embedding: []float32{float32(math.Inf(1)), 0, 0}},
			wantKind:   KindInconclusive,
			wantReason: ReasonExtractionFailed,
		},
		{
			name:         "known face",
			frame:        Frame{Faces: 1, Embedding: []float32{0.95, 0.05, 0}},
			wantKind:     KindMatch,
			wantIdentity: "Alice",
		},
		{
			name:         "far from everyone",
			frame:        Frame{Faces: 1, Embedding: []float32{-1, -1, 0}},
			wantKind:     KindUnknown,
			wantIdentity: gallery.UnknownIdentity,
		},
		{
			name:         "closest to decoy",
			frame:        Frame{Faces: 1, Embedding: []float32{0, 0.1, 1}},
			wantKind:     KindUnknown,
			wantIdentity: gallery.UnknownIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.frame)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v (obs %v)", got.Kind, tt.wantKind, got)
			}
			if got.Identity != tt.wantIdentity {
				t.Errorf("Identity = %q, want %q", got.Identity, tt.wantIdentity)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestClassify_ZeroEmbeddingNeverMatchesUnderWideThreshold(t *testing.T) {
	s, err := gallery.New(map[string][][]float32{
		"Alice": {{1, 0, 0}},
		"Bob":   {{0, 1, 0}},
	}, gallery.Options{Threshold: 1.3, Dimension: 3})
	if err != nil {
		t.Fatalf("gallery.New() error: %v", err)
	}

	got := New(s).Classify(Frame{Faces: 1, Embedding: []float32{0, 0, 0}})
	if got.Kind != KindInconclusive || got.Reason != ReasonExtractionFailed {
		t.Errorf("Classify(zero vector) = %v, want inconclusive extraction failure", got)
	}
}

func TestClassify_RecoversMatcherPanic(t *testing.T) {
	c := New(panickingMatcher{})

	got := c.Classify(Frame{Faces: 1, Embedding: []float32{1, 0, 0}})
	if got.Kind != KindInconclusive || got.Reason != ReasonExtractionFailed {
		t.Errorf("expected inconclusive after matcher panic, got %v", got)
	}
}

func TestObservation_String(t *testing.T) {
	tests := []struct {
		obs  Observation
		want string
	}{
		{Match("Alice", 0.2), "Match(Alice, 0.200)"},
		{Unknown(5), "Unknown(5.000)"},
		{Inconclusive(ReasonNoFace), "Inconclusive(no_face)"},
	}
	for _, tt := range tests {
		if got := tt.obs.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
