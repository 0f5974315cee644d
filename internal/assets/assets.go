// Package assets resolves the bundled frame images and caption font and keeps
// track of whether they are present on disk.
//
// Frames are never cached: every request reads its frame fresh. The Set only
// answers "where is it" and "is everything there" for the health endpoint.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Orientation picks one of the two frame variants.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// ParseOrientation accepts English names and the Chinese form labels.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "portrait", "vertical", "直式":
		return Portrait, nil
	case "landscape", "horizontal", "橫式":
		return Landscape, nil
	}
	return "", fmt.Errorf("invalid orientation %q: must be portrait or landscape", s)
}

// Paths are the resolved asset file locations.
type Paths struct {
	Portrait  string
	Landscape string
	Font      string
	FontGlobs []string
}

// Set tracks asset presence.
type Set struct {
	paths  Paths
	logger *slog.Logger

	mu      sync.RWMutex
	missing []string
}

// NewSet creates a Set and performs the initial check.
func NewSet(paths Paths, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Set{paths: paths, logger: logger}
	s.Check()
	return s
}

// FramePath returns the frame file for o.
func (s *Set) FramePath(o Orientation) string {
	if o == Landscape {
		return s.paths.Landscape
	}
	return s.paths.Portrait
}

// FontPath returns the primary caption font file.
func (s *Set) FontPath() string {
	return s.paths.Font
}

// FontGlobs returns the fallback font patterns.
func (s *Set) FontGlobs() []string {
	return s.paths.FontGlobs
}

// Check stats the frames and font and records which are missing. Frames are
// required; a missing font only degrades captions but is still reported.
func (s *Set) Check() []string {
	var missing []string
	for _, p := range []string{s.paths.Portrait, s.paths.Landscape, s.paths.Font} {
		if p == "" {
			continue
		}
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			missing = append(missing, p)
		}
	}

	s.mu.Lock()
	changed := !slices.Equal(s.missing, missing)
	s.missing = missing
	s.mu.Unlock()

	if changed {
		if len(missing) > 0 {
			s.logger.Warn("assets missing", "paths", strings.Join(missing, ","))
		} else {
			s.logger.Info("assets ready")
		}
	}
	return missing
}

// Missing returns the paths missing at the last check.
func (s *Set) Missing() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.missing)
}

// FramesReady reports whether both frame files were present at the last check.
func (s *Set) FramesReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.missing {
		if m == s.paths.Portrait || m == s.paths.Landscape {
			return false
		}
	}
	return true
}

// Watch re-checks the assets whenever a file in their directories changes,
// until ctx is done. onChange, if non-nil, is called after each re-check.
func (s *Set) Watch(ctx context.Context, onChange func(missing []string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dirs := map[string]bool{}
	for _, p := range []string{s.paths.Portrait, s.paths.Landscape, s.paths.Font} {
		if p != "" {
			dirs[filepath.Dir(p)] = true
		}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				missing := s.Check()
				if onChange != nil {
					onChange(missing)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				s.logger.Warn("asset watcher error", "error", err)
			}
		}
	}()
	return nil
}
