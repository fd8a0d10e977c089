// Package rotator implements the auto-advancing slide index used by the
// philosophy and menu carousels.
package rotator

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty is returned when a rotator is built over zero slides.
	ErrEmpty = errors.New("rotator: slide count must be at least 1")
	// ErrIndexOutOfRange is returned by Select for an index outside [0, N).
	ErrIndexOutOfRange = errors.New("rotator: index out of range")
	// ErrClosed is returned by Select after Close.
	ErrClosed = errors.New("rotator: closed")
)

// State is the bare index machine: Tick advances by one modulo N, Select
// jumps to a chosen slide. The zero value is not usable; call NewState.
type State struct {
	index int
	n     int
}

// NewState returns a machine over n slides positioned at index 0.
func NewState(n int) (State, error) {
	if n < 1 {
		return State{}, fmt.Errorf("%w (got %d)", ErrEmpty, n)
	}
	return State{n: n}, nil
}

// Tick advances to the next slide, wrapping after the last one.
func (s *State) Tick() int {
	s.index = (s.index + 1) % s.n
	return s.index
}

// Select jumps to slide i.
func (s *State) Select(i int) error {
	if i < 0 || i >= s.n {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, s.n)
	}
	s.index = i
	return nil
}

// Index returns the active slide.
func (s State) Index() int { return s.index }

// Len returns N.
func (s State) Len() int { return s.n }
