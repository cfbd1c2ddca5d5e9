// Package progress defines the race events emitted while visitors scroll the
// portfolio, and a non-blocking hub that batches them out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported race stages.
const (
	StageSessionStart Stage = "SESSION_START"
	StageSectionEnter Stage = "SECTION_ENTER"
	StageCheckpoint   Stage = "CHECKPOINT"
	StageFinish       Stage = "FINISH"
	StageSessionEnd   Stage = "SESSION_END"
)

// Event captures one milestone of a scroll session.
type Event struct {
	// SessionID identifies one mounted view.
	SessionID uuid.UUID
	// TS is the UTC time the milestone was observed.
	TS    time.Time
	Stage Stage
	// Section is the active section at the time of the event.
	Section      string
	ProgressPct  float64
	DistanceKm   float64
	PaceMinPerKm float64
	// Elapsed is the time since the session started.
	Elapsed time.Duration
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.SessionID == uuid.Nil {
		return errors.New("session id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageSessionStart, StageSessionEnd, StageFinish:
	case StageSectionEnter, StageCheckpoint:
		if e.Section == "" {
			return fmt.Errorf("%s requires section", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.ProgressPct < 0 || e.ProgressPct > 100 {
		return fmt.Errorf("progress %v out of range", e.ProgressPct)
	}
	if e.Elapsed < 0 {
		return errors.New("elapsed must be >= 0")
	}
	return nil
}
