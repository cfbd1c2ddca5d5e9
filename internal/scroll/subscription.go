// Package scroll owns the per-view scroll subscription: it receives scroll
// samples at whatever rate the browser sends them, runs the tracker at most
// once per animation frame, and hands each new state to a render callback.
package scroll

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Zachkp/marathon-portfolio/internal/progress"
	"github.com/Zachkp/marathon-portfolio/internal/tracker"
)

// DefaultFrame is one frame at 60Hz.
const DefaultFrame = 16 * time.Millisecond

// Render receives every computed state. It runs on the subscription's frame
// goroutine and must not block or call Close.
type Render func(tracker.ProgressState)

// Stats counts samples through a subscription.
type Stats struct {
	Published int64
	Processed int64
	Coalesced int64
}

type update struct {
	sample tracker.ScrollSample
	geom   tracker.Geometry
}

// Option configures a Subscription.
type Option func(*Subscription)

// WithFrame sets the minimum spacing between computations. Zero processes
// every sample, still one at a time.
func WithFrame(d time.Duration) Option {
	return func(s *Subscription) {
		if d >= 0 {
			s.frame = d
		}
	}
}

// WithEmitter reports race milestones of this session to emitter.
func WithEmitter(sessionID uuid.UUID, emitter progress.Emitter) Option {
	return func(s *Subscription) {
		s.sessionID = sessionID
		s.emitter = emitter
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Subscription) {
		if now != nil {
			s.now = now
		}
	}
}

// Subscription is a scoped scroll subscription for one view. Acquire it with
// Subscribe when the view mounts and release it with Close when the view goes
// away, however that happens.
type Subscription struct {
	frame     time.Duration
	render    Render
	sessionID uuid.UUID
	emitter   progress.Emitter
	now       func() time.Time

	pendingMu sync.Mutex
	pending   *update
	wake      chan struct{}

	// stateMu serializes the tracker session and guards closed so that no
	// render can start once Close has flipped it.
	stateMu  sync.Mutex
	session  *tracker.Session
	closed   bool
	started  time.Time
	furthest tracker.ProgressState
	finished bool

	published atomic.Int64
	processed atomic.Int64
	coalesced atomic.Int64

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// Subscribe starts a subscription on course. render may be nil.
func Subscribe(course tracker.Course, render Render, opts ...Option) *Subscription {
	s := &Subscription{
		frame:   DefaultFrame,
		render:  render,
		now:     time.Now,
		session: tracker.NewSession(course),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now().UTC()
	s.furthest = s.session.State()
	s.emit(progress.StageSessionStart, s.session.State())
	go s.run()
	return s
}

// Publish hands the latest sample to the subscription. It never blocks: a
// sample not yet processed is replaced. It returns false after Close.
func (s *Subscription) Publish(sample tracker.ScrollSample, geom tracker.Geometry) bool {
	select {
	case <-s.stopCh:
		return false
	default:
	}
	s.pendingMu.Lock()
	if s.pending != nil {
		s.coalesced.Add(1)
	}
	s.pending = &update{sample: sample, geom: geom}
	s.pendingMu.Unlock()
	s.published.Add(1)

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Jump activates a section the way a navigation click does and renders the
// result right away. After Close it returns the final state unchanged.
func (s *Subscription) Jump(sectionID string) (tracker.ProgressState, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	prev := s.session.State()
	if s.closed {
		return prev, nil
	}
	st, err := s.session.Jump(sectionID)
	if err != nil {
		return st, err
	}
	s.transition(prev, st)
	if s.render != nil {
		s.render(st)
	}
	return st, nil
}

// State returns the last computed state.
func (s *Subscription) State() tracker.ProgressState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.session.State()
}

// Stats reports sample counters.
func (s *Subscription) Stats() Stats {
	return Stats{
		Published: s.published.Load(),
		Processed: s.processed.Load(),
		Coalesced: s.coalesced.Load(),
	}
}

// Close releases the subscription. It is safe to call more than once and
// from any goroutine except the render callback. Once Close returns, render
// is never called again.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		s.closed = true
		furthest := s.furthest
		s.stateMu.Unlock()

		close(s.stopCh)
		<-s.doneCh
		s.emit(progress.StageSessionEnd, furthest)
	})
	<-s.doneCh
}

func (s *Subscription) run() {
	defer close(s.doneCh)

	var throttle *time.Timer
	if s.frame > 0 {
		throttle = time.NewTimer(s.frame)
		throttle.Stop()
		defer throttle.Stop()
	}

	for {
		select {
		case <-s.stopCh:
			return
		case <-s.wake:
		}
		s.flush()

		if throttle == nil {
			continue
		}
		// Samples arriving during this wait collapse into the next flush.
		throttle.Reset(s.frame)
		select {
		case <-s.stopCh:
			return
		case <-throttle.C:
		}
	}
}

func (s *Subscription) flush() {
	s.pendingMu.Lock()
	u := s.pending
	s.pending = nil
	s.pendingMu.Unlock()
	if u == nil {
		return
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.closed {
		return
	}
	prev := s.session.State()
	st := s.session.Observe(u.sample, u.geom)
	s.processed.Add(1)
	s.transition(prev, st)
	if s.render != nil {
		s.render(st)
	}
}

// transition records milestones between two consecutive states. Callers hold
// stateMu.
func (s *Subscription) transition(prev, next tracker.ProgressState) {
	if next.ProgressPct > s.furthest.ProgressPct {
		s.furthest.ProgressPct = next.ProgressPct
		s.furthest.DistanceKm = next.DistanceKm
	}
	s.furthest.ActiveSection = next.ActiveSection
	s.furthest.PaceMinPerKm = next.PaceMinPerKm

	if next.ActiveSection != prev.ActiveSection {
		s.emit(progress.StageSectionEnter, next)
	}
	if next.CheckpointsReached > s.furthest.CheckpointsReached {
		s.furthest.CheckpointsReached = next.CheckpointsReached
		s.emit(progress.StageCheckpoint, next)
	}
	if next.Finished() && !s.finished {
		s.finished = true
		s.emit(progress.StageFinish, next)
	}
}

func (s *Subscription) emit(stage progress.Stage, st tracker.ProgressState) {
	if s.emitter == nil {
		return
	}
	now := s.now().UTC()
	elapsed := now.Sub(s.started)
	if elapsed < 0 {
		elapsed = 0
	}
	s.emitter.Emit(progress.Event{
		SessionID:    s.sessionID,
		TS:           now,
		Stage:        stage,
		Section:      st.ActiveSection,
		ProgressPct:  st.ProgressPct,
		DistanceKm:   st.DistanceKm,
		PaceMinPerKm: st.PaceMinPerKm,
		Elapsed:      elapsed,
	})
}
