package safe

import (
	"errors"
	"fmt"
)

// maxDimension bounds Mat width and height.
const maxDimension = 32768

var ErrInvalidMat = errors.New("invalid Mat")

// ValidateMatForOperation fails for nil, closed or empty matrices.
func ValidateMatForOperation(m *Mat, operation string) error {
	switch {
	case m == nil:
		return fmt.Errorf("%w: nil for %s", ErrInvalidMat, operation)
	case !m.IsValid():
		return fmt.Errorf("%w: closed before %s", ErrInvalidMat, operation)
	case m.Empty():
		return fmt.Errorf("%w: empty for %s", ErrInvalidMat, operation)
	}
	return nil
}

// ValidateDimensions accepts sizes in [1, maxDimension].
func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 || width > maxDimension || height > maxDimension {
		return fmt.Errorf("%w: size %dx%d for %s", ErrInvalidMat, width, height, operation)
	}
	return nil
}
