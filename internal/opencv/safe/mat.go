// Package safe guards gocv matrices against use after Close.
package safe

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Mat owns a gocv.Mat. Accessors on a closed Mat report zero sizes instead of
// reaching into freed OpenCV memory.
type Mat struct {
	mat    gocv.Mat
	closed atomic.Bool
	mu     sync.RWMutex
	tag    string
}

// NewMatFromBytes copies data into a new Mat. data must hold exactly
// rows*cols*channels bytes for matType.
func NewMatFromBytes(rows, cols int, matType gocv.MatType, data []byte, tag string) (*Mat, error) {
	if err := ValidateDimensions(cols, rows, tag); err != nil {
		return nil, err
	}
	if want := rows * cols * bytesPerPixel(matType); len(data) != want {
		return nil, fmt.Errorf("%s: got %d bytes, want %d for %dx%d", tag, len(data), want, cols, rows)
	}

	view, err := gocv.NewMatFromBytes(rows, cols, matType, data)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create Mat from bytes: %w", tag, err)
	}
	defer view.Close()

	// the view may alias data
	return NewMatFromMat(view, tag)
}

// NewMatFromMat takes an owned clone of src.
func NewMatFromMat(src gocv.Mat, tag string) (*Mat, error) {
	if src.Empty() {
		return nil, fmt.Errorf("%s: source Mat is empty", tag)
	}

	clone := src.Clone()
	if clone.Empty() {
		clone.Close()
		return nil, fmt.Errorf("%s: failed to clone Mat", tag)
	}

	m := &Mat{mat: clone, tag: tag}
	runtime.SetFinalizer(m, (*Mat).Close)
	return m, nil
}

func (m *Mat) IsValid() bool {
	return !m.closed.Load()
}

// Dims returns rows, columns and channels, all zero once closed.
func (m *Mat) Dims() (rows, cols, channels int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() || m.mat.Empty() {
		return 0, 0, 0
	}
	return m.mat.Rows(), m.mat.Cols(), m.mat.Channels()
}

func (m *Mat) Rows() int {
	rows, _, _ := m.Dims()
	return rows
}

func (m *Mat) Cols() int {
	_, cols, _ := m.Dims()
	return cols
}

func (m *Mat) Channels() int {
	_, _, channels := m.Dims()
	return channels
}

func (m *Mat) Empty() bool {
	rows, cols, _ := m.Dims()
	return rows == 0 || cols == 0
}

// Bytes returns a copy of the pixel data.
func (m *Mat) Bytes() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return nil, fmt.Errorf("%s: Mat is closed", m.tag)
	}
	return append([]byte(nil), m.mat.ToBytes()...), nil
}

// GetMat exposes the underlying matrix for gocv calls. It must not be kept
// past Close.
func (m *Mat) GetMat() gocv.Mat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mat
}

// Close releases the matrix. Repeated calls are no-ops.
func (m *Mat) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Swap(true) {
		return
	}
	m.mat.Close()
	runtime.SetFinalizer(m, nil)
}

func bytesPerPixel(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4, gocv.MatTypeCV32FC1:
		return 4
	default:
		return 1
	}
}
