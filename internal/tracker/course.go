// Package tracker converts raw scroll samples into marathon progress: a
// normalized progress fraction, a simulated distance and pace, and the
// section of the page currently considered in view.
package tracker

import (
	"errors"
	"fmt"
)

// MarathonKm is the distance covered when the page is scrolled to the bottom.
const MarathonKm = 42.2

var (
	// ErrInvalidCourse is returned when a Course cannot partition progress.
	ErrInvalidCourse = errors.New("invalid course")
	// ErrUnknownSection is returned when a section id is not on the course.
	ErrUnknownSection = errors.New("unknown section")
)

// Section is one band of the page. Sections are ordered; Index is the
// position in that order.
type Section struct {
	ID    string `json:"id" mapstructure:"id" yaml:"id"`
	Index int    `json:"index" mapstructure:"index" yaml:"index"`
	Label string `json:"label" mapstructure:"label" yaml:"label"`
}

// DefaultSections mirrors the navigation checkpoints rendered on the page.
func DefaultSections() []Section {
	return []Section{
		{ID: "home", Index: 0, Label: "Start Line"},
		{ID: "projects", Index: 1, Label: "Checkpoint 1"},
		{ID: "running", Index: 2, Label: "Finish Line"},
	}
}

// Course is the fixed configuration every progress computation runs against.
type Course struct {
	TotalDistanceKm float64
	Sections        []Section
}

// DefaultCourse is a marathon over the default sections.
func DefaultCourse() Course {
	return Course{TotalDistanceKm: MarathonKm, Sections: DefaultSections()}
}

// NewCourse validates and builds a Course. Section indexes are reassigned
// from slice order so the bands always partition [0,100).
func NewCourse(totalDistanceKm float64, sections []Section) (Course, error) {
	c := Course{TotalDistanceKm: totalDistanceKm, Sections: make([]Section, len(sections))}
	for i, s := range sections {
		s.Index = i
		c.Sections[i] = s
	}
	if err := c.Validate(); err != nil {
		return Course{}, err
	}
	return c, nil
}

// Validate checks the distance is positive and section ids are unique.
func (c Course) Validate() error {
	if !(c.TotalDistanceKm > 0) {
		return fmt.Errorf("%w: total distance must be > 0, got %v", ErrInvalidCourse, c.TotalDistanceKm)
	}
	if len(c.Sections) == 0 {
		return fmt.Errorf("%w: at least one section is required", ErrInvalidCourse)
	}
	seen := make(map[string]struct{}, len(c.Sections))
	for i, s := range c.Sections {
		if s.ID == "" {
			return fmt.Errorf("%w: section %d has no id", ErrInvalidCourse, i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate section %q", ErrInvalidCourse, s.ID)
		}
		if s.Index != i {
			return fmt.Errorf("%w: section %q has index %d, want %d", ErrInvalidCourse, s.ID, s.Index, i)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// BandWidth is the width in percent of each section's band.
func (c Course) BandWidth() float64 {
	if len(c.Sections) == 0 {
		return 0
	}
	return 100 / float64(len(c.Sections))
}

// SectionAt returns the section whose half-open band [i*w, (i+1)*w) holds
// progressPct. Nothing matches 100 exactly or values outside [0,100).
func (c Course) SectionAt(progressPct float64) (Section, bool) {
	w := c.BandWidth()
	for i, s := range c.Sections {
		if progressPct >= float64(i)*w && progressPct < float64(i+1)*w {
			return s, true
		}
	}
	return Section{}, false
}

// Section looks up a section by id.
func (c Course) Section(id string) (Section, error) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, nil
		}
	}
	return Section{}, fmt.Errorf("%w: %q", ErrUnknownSection, id)
}

// CheckpointsReached counts the milestone markers lit at progressPct. The
// marker of section i lights once progress reaches the start of its band.
func (c Course) CheckpointsReached(progressPct float64) int {
	w := c.BandWidth()
	n := 0
	for i := range c.Sections {
		if progressPct >= float64(i)*w {
			n++
		}
	}
	return n
}
