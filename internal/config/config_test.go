package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Zachkp/marathon-portfolio/internal/tracker"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PORTFOLIO_SERVER_PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 16*time.Millisecond, cfg.Scroll.Frame)
	require.Equal(t, tracker.MarathonKm, cfg.Course.TotalDistanceKm)
	require.Equal(t, tracker.DefaultSections(), cfg.Course.Sections)
	require.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)

	course, err := cfg.Track()
	require.NoError(t, err)
	require.Equal(t, tracker.DefaultCourse(), course)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  mode: debug
course:
  total_distance_km: 21.1
  sections:
    - id: intro
      label: Start
    - id: work
      label: Finish
scroll:
  frame: 33ms
`), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("SMTP_USER", "me@example.com")
	t.Setenv("PORTFOLIO_ADMIN_USERNAME", "coach")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.Mode)
	require.Equal(t, 33*time.Millisecond, cfg.Scroll.Frame)
	require.Equal(t, "me@example.com", cfg.SMTP.User)
	require.Equal(t, "coach", cfg.Admin.Username)

	course, err := cfg.Track()
	require.NoError(t, err)
	require.Equal(t, 21.1, course.TotalDistanceKm)
	require.Equal(t, "work", course.Sections[1].ID)
	require.Equal(t, 1, course.Sections[1].Index)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("PORTFOLIO_SERVER_PORT", "0")
	_, err := Load("")
	require.ErrorContains(t, err, "server.port")
}

func TestLoadRejectsBadCourse(t *testing.T) {
	t.Setenv("PORTFOLIO_COURSE_TOTAL_DISTANCE_KM", "-1")
	_, err := Load("")
	require.ErrorIs(t, err, tracker.ErrInvalidCourse)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}
