package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionThreadsPreviousSample(t *testing.T) {
	t.Parallel()

	s := NewSession(DefaultCourse())
	geom := Geometry{ScrollHeight: 1800, ViewportHeight: 800}

	first := s.Observe(sample(0, 0), geom)
	require.Equal(t, 0.0, first.PaceMinPerKm)
	require.Equal(t, "home", first.ActiveSection)

	second := s.Observe(sample(500, 15_000), geom)
	require.Equal(t, 50.0, second.ProgressPct)
	require.Equal(t, 3.0, second.PaceMinPerKm)
	require.Equal(t, "projects", second.ActiveSection)

	// Stalled scroll keeps the pace.
	third := s.Observe(sample(500, 19_000), geom)
	require.Equal(t, 3.0, third.PaceMinPerKm)
	require.Equal(t, third, s.State())
}

func TestSessionJump(t *testing.T) {
	t.Parallel()

	s := NewSession(DefaultCourse())
	st, err := s.Jump("running")
	require.NoError(t, err)
	require.Equal(t, "running", st.ActiveSection)
	require.Equal(t, 0.0, st.ProgressPct)

	_, err = s.Jump("contact")
	require.ErrorIs(t, err, ErrUnknownSection)
	require.Equal(t, "running", s.State().ActiveSection)
}

func TestNewCourse(t *testing.T) {
	t.Parallel()

	c, err := NewCourse(21.1, []Section{{ID: "a", Index: 7}, {ID: "b"}})
	require.NoError(t, err)
	require.Equal(t, 0, c.Sections[0].Index)
	require.Equal(t, 1, c.Sections[1].Index)
	require.Equal(t, 50.0, c.BandWidth())

	_, err = NewCourse(0, DefaultSections())
	require.ErrorIs(t, err, ErrInvalidCourse)
	_, err = NewCourse(10, nil)
	require.ErrorIs(t, err, ErrInvalidCourse)
	_, err = NewCourse(10, []Section{{ID: "a"}, {ID: "a"}})
	require.ErrorIs(t, err, ErrInvalidCourse)
	_, err = NewCourse(10, []Section{{ID: ""}})
	require.ErrorIs(t, err, ErrInvalidCourse)
}

func TestCourseSectionAt(t *testing.T) {
	t.Parallel()

	c := DefaultCourse()
	s, ok := c.SectionAt(0)
	require.True(t, ok)
	require.Equal(t, 0, s.Index)
	_, ok = c.SectionAt(100)
	require.False(t, ok)
	_, ok = c.SectionAt(-1)
	require.False(t, ok)
}
