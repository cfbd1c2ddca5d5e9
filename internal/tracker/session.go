package tracker

// Session is the tracker state for one mounted view. It keeps only the
// previous sample and the last computed state. A Session is not safe for
// concurrent use; callers serialize access (see package scroll).
type Session struct {
	course   Course
	previous *ScrollSample
	state    ProgressState
}

// NewSession starts a session at the course's start line.
func NewSession(course Course) *Session {
	return &Session{course: course, state: course.Start()}
}

// Observe folds one sample into the session and returns the new state.
func (s *Session) Observe(sample ScrollSample, geom Geometry) ProgressState {
	s.state = s.course.OnScroll(s.state, s.previous, sample, geom.Scrollable())
	prev := sample
	s.previous = &prev
	return s.state
}

// Jump activates a section directly, as a navigation click does before the
// smooth scroll catches up. Progress and pace are untouched.
func (s *Session) Jump(sectionID string) (ProgressState, error) {
	sec, err := s.course.Section(sectionID)
	if err != nil {
		return s.state, err
	}
	s.state.ActiveSection = sec.ID
	return s.state, nil
}

// State returns the last computed state.
func (s *Session) State() ProgressState {
	return s.state
}

// Course returns the course the session runs on.
func (s *Session) Course() Course {
	return s.course
}
