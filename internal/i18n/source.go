package i18n

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
)

// ErrIncompatibleReload is returned when replacement locale data would change
// the language set or the slide count that running views depend on.
var ErrIncompatibleReload = errors.New("i18n: incompatible reload")

// Source hands out the current Store. Views capture the Store they were
// created with; only views created after a Replace see the new content.
type Source struct {
	cur atomic.Pointer[Store]
}

// NewSource wraps an initial, already validated Store.
func NewSource(s *Store) *Source {
	src := &Source{}
	src.cur.Store(s)
	return src
}

// Store returns the current Store.
func (s *Source) Store() *Store { return s.cur.Load() }

// Replace swaps in next when it keeps the same languages, default and slide
// count as the current Store.
func (s *Source) Replace(next *Store) error {
	if next == nil {
		return fmt.Errorf("%w: nil store", ErrIncompatibleReload)
	}
	prev := s.cur.Load()
	if prev != nil {
		if prev.Default() != next.Default() {
			return fmt.Errorf("%w: default language %s -> %s", ErrIncompatibleReload, prev.Default(), next.Default())
		}
		if !slices.Equal(prev.Languages(), next.Languages()) {
			return fmt.Errorf("%w: languages %v -> %v", ErrIncompatibleReload, prev.Languages(), next.Languages())
		}
		if prev.SlideCount() != next.SlideCount() {
			return fmt.Errorf("%w: slide count %d -> %d", ErrIncompatibleReload, prev.SlideCount(), next.SlideCount())
		}
	}
	s.cur.Store(next)
	return nil
}
