// Package stability debounces per-frame observations into a stable label by
// counting consecutive identical labels.
package stability

import (
	"github.com/kozaktomas/door-sentry/internal/classifier"
)

// inconclusiveLabel is the run label of inconclusive frames. It cannot
// collide with an identity name because names are never empty.
const inconclusiveLabel = ""

// Tracker is a run-length accumulator. It is not safe for concurrent use;
// the access controller drives it from a single goroutine.
type Tracker struct {
	window    int
	runLabel  string
	runLength int
	stable    string
	hasStable bool
}

// New creates a Tracker that reports a label as stable once it has been
// observed window times in a row. A window below 1 is treated as 1.
func New(window int) *Tracker {
	if window < 1 {
		window = 1
	}
	return &Tracker{window: window}
}

// Observe feeds one observation and returns the stable label when the
// current run has reached the window.
func (t *Tracker) Observe(obs classifier.Observation) (string, bool) {
	label := labelOf(obs)

	if t.runLength > 0 && label == t.runLabel {
		t.runLength++
	} else {
		t.runLabel = label
		t.runLength = 1
		t.stable, t.hasStable = "", false
	}

	if label == inconclusiveLabel {
		return "", false
	}
	if t.runLength >= t.window {
		t.stable, t.hasStable = label, true
		return label, true
	}
	return "", false
}

// Reset clears the run, e.g. when a new scan phase begins.
func (t *Tracker) Reset() {
	t.runLabel = ""
	t.runLength = 0
	t.stable, t.hasStable = "", false
}

// RunLength is the number of consecutive frames in the current run.
func (t *Tracker) RunLength() int { return t.runLength }

// RunLabel is the label of the current run; empty for an inconclusive run.
func (t *Tracker) RunLabel() string { return t.runLabel }

// Stable returns the stable label, if any.
func (t *Tracker) Stable() (string, bool) { return t.stable, t.hasStable }

// Window returns the configured stability window.
func (t *Tracker) Window() int { return t.window }

// Remaining is how many more identical frames the current run needs to
// become stable. Inconclusive runs always need a full window.
func (t *Tracker) Remaining() int {
	if t.runLength == 0 || t.runLabel == inconclusiveLabel {
		return t.window
	}
	return max(t.window-t.runLength, 0)
}

func labelOf(obs classifier.Observation) string {
	switch obs.Kind {
	case classifier.KindMatch:
		return obs.Identity
	case classifier.KindUnknown:
		return obs.Identity
	default:
		return inconclusiveLabel
	}
}
