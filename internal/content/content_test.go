package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultPortfolio(t *testing.T) {
	t.Parallel()

	p := Default()
	require.Equal(t, "John Doe", p.Hero.Name)
	require.Len(t, p.Projects, 2)
	require.Len(t, p.Races, 3)
	require.Equal(t, "2024-03-15", p.Races[0].Date)
	require.Equal(t, "3:45:22", p.Races[0].Time)
	require.Contains(t, p.Projects[0].Technologies, "Tableau")
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("hero: [unclosed"))
	require.Error(t, err)

	_, err = Parse([]byte("hero:\n  title: nobody\n"))
	require.ErrorContains(t, err, "hero.name")

	_, err = Parse([]byte("hero:\n  name: A\nprojects:\n  - description: untitled\n"))
	require.ErrorContains(t, err, "projects[0].title")
}

func TestStoreGetSet(t *testing.T) {
	t.Parallel()

	s := NewStore(Default())
	p := s.Get()
	p.Hero.Name = "Jane Roe"
	s.Set(p)
	require.Equal(t, "Jane Roe", s.Get().Hero.Name)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hero:\n  name: First\n"), 0o600))

	store := NewStore(Default())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, nil, store.Set) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("hero: [broken"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, "John Doe", store.Get().Hero.Name)

	require.NoError(t, os.WriteFile(path, []byte("hero:\n  name: Second\n"), 0o600))
	require.Eventually(t, func() bool {
		return store.Get().Hero.Name == "Second"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchMissingFile(t *testing.T) {
	t.Parallel()

	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), nil, func(Portfolio) {})
	require.Error(t, err)
}
