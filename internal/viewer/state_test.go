package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateStartsInTheMiddle(t *testing.T) {
	for slices, want := range map[int]int{1: 0, 2: 1, 5: 2, 40: 20} {
		s, err := NewState(slices)
		require.NoError(t, err)
		assert.Equal(t, want, s.Slice(), "slices=%d", slices)
		assert.True(t, s.MaskVisible())
		assert.Equal(t, InitialReadout, s.Readout())
	}

	_, err := NewState(0)
	assert.Error(t, err)
}

func TestAdvanceClampsAtLastSlice(t *testing.T) {
	s, err := NewState(3)
	require.NoError(t, err)

	assert.True(t, s.Advance())
	assert.Equal(t, 2, s.Slice())
	for i := 0; i < 5; i++ {
		assert.False(t, s.Advance())
		assert.Equal(t, 2, s.Slice())
	}
}

func TestRetreatClampsAtFirstSlice(t *testing.T) {
	s, err := NewState(3)
	require.NoError(t, err)

	assert.True(t, s.Retreat())
	assert.Equal(t, 0, s.Slice())
	for i := 0; i < 5; i++ {
		assert.False(t, s.Retreat())
		assert.Equal(t, 0, s.Slice())
	}
}

func TestSingleSliceNeverMoves(t *testing.T) {
	s, err := NewState(1)
	require.NoError(t, err)
	assert.False(t, s.Advance())
	assert.False(t, s.Retreat())
	assert.Equal(t, 0, s.Slice())
}

func TestHandleKey(t *testing.T) {
	s, err := NewState(10)
	require.NoError(t, err)

	cases := []struct {
		key   string
		slice int
		mask  bool
		bound bool
	}{
		{"Up", 6, true, true},
		{"k", 7, true, true},
		{"K", 8, true, true},
		{"Down", 7, true, true},
		{"J", 6, true, true},
		{"m", 6, false, true},
		{"M", 6, true, true},
		{"x", 6, true, false},
		{"Left", 6, true, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.bound, s.HandleKey(tc.key), tc.key)
		assert.Equal(t, tc.slice, s.Slice(), tc.key)
		assert.Equal(t, tc.mask, s.MaskVisible(), tc.key)
	}
}

func TestHandleScroll(t *testing.T) {
	s, err := NewState(4)
	require.NoError(t, err)

	s.HandleScroll(true)
	assert.Equal(t, 3, s.Slice())
	s.HandleScroll(true)
	assert.Equal(t, 3, s.Slice())
	s.HandleScroll(false)
	s.HandleScroll(false)
	s.HandleScroll(false)
	s.HandleScroll(false)
	assert.Equal(t, 0, s.Slice())
}

func TestTitle(t *testing.T) {
	s, err := NewState(12)
	require.NoError(t, err)
	assert.Equal(t, "Slice: 7/12 | Mask [M]: On", s.Title())

	s.ToggleMask()
	s.Retreat()
	assert.Equal(t, "Slice: 6/12 | Mask [M]: Off", s.Title())
}
