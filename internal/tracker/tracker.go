package tracker

import "math"

// ScrollSample is one viewport scroll notification.
type ScrollSample struct {
	Position    float64 `json:"position"`
	TimestampMs int64   `json:"timestampMs"`
}

// Geometry is the document and viewport height at the time of a sample.
type Geometry struct {
	ScrollHeight   float64 `json:"scrollHeight"`
	ViewportHeight float64 `json:"viewportHeight"`
}

// Scrollable is the total scrollable height. Content that fits the viewport
// has nothing to scroll and yields 0.
func (g Geometry) Scrollable() float64 {
	h := g.ScrollHeight - g.ViewportHeight
	if h < 0 || math.IsNaN(h) {
		return 0
	}
	return h
}

// ProgressState is what the page renders: progress bar width, the
// distance/pace readout and the highlighted checkpoint.
type ProgressState struct {
	ProgressPct        float64 `json:"progressPct"`
	DistanceKm         float64 `json:"distanceKm"`
	PaceMinPerKm       float64 `json:"paceMinPerKm"`
	ActiveSection      string  `json:"activeSection"`
	CheckpointsReached int     `json:"checkpointsReached"`
}

// Finished reports whether the bottom of the page has been reached.
func (s ProgressState) Finished() bool {
	return s.ProgressPct >= 100
}

// Start is the state before any scroll sample arrives.
func (c Course) Start() ProgressState {
	st := ProgressState{CheckpointsReached: c.CheckpointsReached(0)}
	if len(c.Sections) > 0 {
		st.ActiveSection = c.Sections[0].ID
	}
	return st
}

// OnScroll derives the next ProgressState from the last one, the previous
// sample (nil before the first) and the current sample. It is a pure
// function of its arguments.
//
// Pace is "seconds per 100px of scroll" presented as min/km. It carries
// forward from last when there is no previous sample, when the position did
// not move, or when the clock went backwards.
func (c Course) OnScroll(last ProgressState, previous *ScrollSample, current ScrollSample, totalScrollableHeight float64) ProgressState {
	next := ProgressState{
		PaceMinPerKm:  last.PaceMinPerKm,
		ActiveSection: last.ActiveSection,
	}

	if totalScrollableHeight > 0 && !math.IsInf(totalScrollableHeight, 0) {
		next.ProgressPct = clamp(current.Position/totalScrollableHeight*100, 0, 100)
	}
	next.DistanceKm = next.ProgressPct / 100 * c.TotalDistanceKm

	if previous != nil {
		delta := math.Abs(current.Position - previous.Position)
		elapsed := current.TimestampMs - previous.TimestampMs
		if delta > 0 && elapsed >= 0 {
			next.PaceMinPerKm = (float64(elapsed) / 1000) / (delta / 100)
		}
	}

	if s, ok := c.SectionAt(next.ProgressPct); ok {
		next.ActiveSection = s.ID
	}
	next.CheckpointsReached = c.CheckpointsReached(next.ProgressPct)
	return next
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
