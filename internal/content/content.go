// Package content holds the portfolio shown on the page: hero, projects and
// races. Defaults are embedded; a YAML file can override them and is
// reloaded when it changes.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Hero is the landing section.
type Hero struct {
	Name       string   `yaml:"name" json:"name"`
	Title      string   `yaml:"title" json:"title"`
	Location   string   `yaml:"location" json:"location"`
	Email      string   `yaml:"email" json:"email"`
	GitHub     string   `yaml:"github" json:"github"`
	LinkedIn   string   `yaml:"linkedin" json:"linkedin"`
	ResumeURL  string   `yaml:"resume_url" json:"resume_url"`
	Bio        string   `yaml:"bio" json:"bio"`
	Skills     []string `yaml:"skills" json:"skills"`
	Highlights []string `yaml:"highlights" json:"highlights"`
}

// Project is one card in the projects grid.
type Project struct {
	Title        string   `yaml:"title" json:"title"`
	Description  string   `yaml:"description" json:"description"`
	Technologies []string `yaml:"technologies" json:"technologies"`
	Metrics      []string `yaml:"metrics" json:"metrics"`
	ImageURL     string   `yaml:"image_url" json:"image_url"`
	CaseStudyURL string   `yaml:"case_study_url" json:"case_study_url"`
}

// Race is one card in the running grid.
type Race struct {
	Date       string `yaml:"date" json:"date"`
	Location   string `yaml:"location" json:"location"`
	Distance   string `yaml:"distance" json:"distance"`
	Time       string `yaml:"time" json:"time"`
	Elevation  string `yaml:"elevation" json:"elevation"`
	Highlights string `yaml:"highlights" json:"highlights"`
	ImageURL   string `yaml:"image_url" json:"image_url"`
}

// Portfolio is everything rendered on the page.
type Portfolio struct {
	Hero     Hero      `yaml:"hero" json:"hero"`
	Projects []Project `yaml:"projects" json:"projects"`
	Races    []Race    `yaml:"races" json:"races"`
}

// Validate requires a name and titled cards.
func (p Portfolio) Validate() error {
	if p.Hero.Name == "" {
		return errors.New("hero.name is required")
	}
	for i, pr := range p.Projects {
		if pr.Title == "" {
			return fmt.Errorf("projects[%d].title is required", i)
		}
	}
	for i, r := range p.Races {
		if r.Distance == "" {
			return fmt.Errorf("races[%d].distance is required", i)
		}
	}
	return nil
}

// Parse decodes and validates a portfolio document.
func Parse(data []byte) (Portfolio, error) {
	var p Portfolio
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Portfolio{}, fmt.Errorf("parse portfolio: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Portfolio{}, fmt.Errorf("invalid portfolio: %w", err)
	}
	return p, nil
}

// Default returns the embedded portfolio.
func Default() Portfolio {
	p, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded portfolio: %v", err))
	}
	return p
}

// Load reads a portfolio file.
func Load(path string) (Portfolio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Portfolio{}, fmt.Errorf("read portfolio %s: %w", path, err)
	}
	return Parse(data)
}

// Store holds the current portfolio for concurrent readers.
type Store struct {
	mu sync.RWMutex
	p  Portfolio
}

// NewStore returns a Store serving p.
func NewStore(p Portfolio) *Store {
	return &Store{p: p}
}

// Get returns the current portfolio.
func (s *Store) Get() Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

// Set replaces the portfolio.
func (s *Store) Set(p Portfolio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = p
}
