package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomics-toolkit/internal/volume"
)

func probeVolumes(t *testing.T, maskComponents int) (*volume.Volume, *volume.Volume) {
	t.Helper()
	scan, err := volume.New(3, 2, 2, 1, volume.Float32)
	require.NoError(t, err)
	for i := range scan.Data {
		scan.Data[i] = float64(i) + 0.25
	}
	mask, err := volume.New(3, 2, 2, maskComponents, volume.Uint8)
	require.NoError(t, err)
	return scan, mask
}

func TestProbeScalarMask(t *testing.T) {
	scan, mask := probeVolumes(t, 1)
	mask.Set(2, 1, 1, 0, 1)

	r, ok := Probe(scan, mask, 1, 2, 1)
	require.True(t, ok)
	assert.Equal(t, 11.25, r.Scan)
	assert.True(t, r.MaskNonZero())
	assert.Equal(t, "Coord(Y,X): (1, 2)\nScan Value: 11.25\nMask Value: 1", r.Text())
	assert.Equal(t, "Slice 2 | Coord(Y,X): (1, 2) | Scan Value: 11.25 | Mask Value: 1", r.Line())
}

func TestProbeMultiChannelMask(t *testing.T) {
	scan, mask := probeVolumes(t, 3)
	mask.Set(0, 0, 0, 1, 1)

	r, ok := Probe(scan, mask, 0, 0, 0)
	require.True(t, ok)
	assert.Equal(t, "[0 1 0]", r.MaskText())
	assert.Contains(t, r.Text(), "Scan Value: 0.25")

	// the readout is a snapshot
	mask.Set(0, 0, 0, 1, 0)
	assert.Equal(t, "[0 1 0]", r.MaskText())
}

func TestProbeOutside(t *testing.T) {
	scan, mask := probeVolumes(t, 1)
	for _, p := range [][3]int{{-1, 0, 0}, {0, 3, 0}, {0, 0, 2}, {2, 0, 0}} {
		_, ok := Probe(scan, mask, p[0], p[1], p[2])
		assert.False(t, ok, "%v", p)
	}
}

func TestReadoutSameVoxel(t *testing.T) {
	a := Readout{X: 1, Y: 2, Z: 3}
	assert.True(t, a.SameVoxel(Readout{X: 1, Y: 2, Z: 3, Scan: 9}))
	assert.False(t, a.SameVoxel(Readout{X: 1, Y: 2, Z: 4}))
	assert.False(t, Readout{Mask: []float64{0, 0}}.MaskNonZero())
}

func TestPointerToVoxel(t *testing.T) {
	cases := []struct {
		name       string
		px, py     float32
		w, h       float32
		cols, rows int
		x, y       int
		ok         bool
	}{
		{"top left", 0, 0, 100, 100, 10, 10, 0, 0, true},
		{"bottom right", 99.9, 99.9, 100, 100, 10, 10, 9, 9, true},
		{"letterbox left", 10, 50, 200, 100, 10, 10, 0, 0, false},
		{"letterboxed inside", 55, 15, 200, 100, 10, 10, 0, 1, true},
		{"past the edge", 100, 50, 100, 100, 10, 10, 0, 0, false},
		{"pillarbox top", 50, 10, 100, 200, 10, 10, 0, 0, false},
		{"empty area", 1, 1, 0, 0, 10, 10, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x, y, ok := PointerToVoxel(tc.px, tc.py, tc.w, tc.h, tc.cols, tc.rows)
			require.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.x, x)
				assert.Equal(t, tc.y, y)
			}
		})
	}
}
