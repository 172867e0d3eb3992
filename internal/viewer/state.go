// Package viewer holds the slice browser's state machine, voxel probing and
// slice rendering. It has no GUI dependency; internal/views draws what it
// produces.
package viewer

import (
	"fmt"
	"strings"
	"sync"
)

// InitialReadout is shown until the pointer first hovers a voxel.
const InitialReadout = "Move the pointer over the image to see values..."

// Controls lists the key and mouse bindings for the console help.
var Controls = []string{
	"Mouse wheel or Up/Down (k/j): change slice",
	"M: toggle mask overlay",
	"Hover: show scan and mask values",
}

// State is the viewer's navigation state. The slice index is always within
// [0, slices-1].
type State struct {
	mu       sync.RWMutex
	slice    int
	slices   int
	showMask bool
	readout  string
}

// NewState starts on the middle slice with the mask shown.
func NewState(slices int) (*State, error) {
	if slices < 1 {
		return nil, fmt.Errorf("viewer needs at least one slice, got %d", slices)
	}
	return &State{
		slice:    slices / 2,
		slices:   slices,
		showMask: true,
		readout:  InitialReadout,
	}, nil
}

func (s *State) Slice() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slice
}

func (s *State) Slices() int {
	return s.slices
}

func (s *State) MaskVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showMask
}

func (s *State) Readout() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readout
}

func (s *State) SetReadout(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readout = text
}

// Advance moves one slice forward. It reports whether the index changed.
func (s *State) Advance() bool {
	return s.move(1)
}

// Retreat moves one slice back. It reports whether the index changed.
func (s *State) Retreat() bool {
	return s.move(-1)
}

func (s *State) move(step int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.slice + step
	if next < 0 {
		next = 0
	}
	if next > s.slices-1 {
		next = s.slices - 1
	}
	changed := next != s.slice
	s.slice = next
	return changed
}

func (s *State) ToggleMask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showMask = !s.showMask
}

// HandleKey applies a key press by name. Names are matched case-insensitively:
// "m" toggles the mask, "up"/"k" advance and "down"/"j" retreat. It reports
// whether the key is bound.
func (s *State) HandleKey(key string) bool {
	switch strings.ToLower(key) {
	case "m":
		s.ToggleMask()
	case "up", "k":
		s.Advance()
	case "down", "j":
		s.Retreat()
	default:
		return false
	}
	return true
}

// HandleScroll advances on wheel up and retreats on wheel down.
func (s *State) HandleScroll(up bool) {
	if up {
		s.Advance()
		return
	}
	s.Retreat()
}

// Title is the heading drawn above the slice.
func (s *State) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mask := "Off"
	if s.showMask {
		mask = "On"
	}
	return fmt.Sprintf("Slice: %d/%d | Mask [M]: %s", s.slice+1, s.slices, mask)
}
