package radio

import (
	"errors"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Selector picks the next track for a channel.
type Selector struct {
	extensions []string
	fallback   string
	intn       func(n int) int
}

// NewSelector returns a Selector matching the given extensions
// (case-insensitive) and falling back to the silence asset when a channel
// has nothing to play.
func NewSelector(extensions []string, fallback string) *Selector {
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return &Selector{extensions: exts, fallback: fallback, intn: rand.Intn}
}

// Tracks lists the eligible files in dir, sorted by name. A missing directory
// is the same as an empty one. Other read errors are returned alongside an
// empty list.
func (s *Selector) Tracks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var tracks []string
	for _, e := range entries {
		if e.IsDir() || !s.eligible(e.Name()) {
			continue
		}
		tracks = append(tracks, filepath.Join(dir, e.Name()))
	}
	sort.Strings(tracks)
	return tracks, nil
}

// Pick returns a uniformly random element of tracks, or the fallback when
// tracks is empty.
func (s *Selector) Pick(tracks []string) string {
	if len(tracks) == 0 {
		return s.fallback
	}
	return tracks[s.intn(len(tracks))]
}

// Select lists dir and picks one track from it. It never fails.
func (s *Selector) Select(dir string) string {
	tracks, _ := s.Tracks(dir)
	return s.Pick(tracks)
}

func (s *Selector) eligible(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range s.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
