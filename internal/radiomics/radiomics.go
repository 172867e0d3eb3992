// Package radiomics computes quantitative features of a labelled region of
// interest in a 3D scan.
//
// Two engines are provided: an engine that delegates to an installed
// pyradiomics command line tool and runs every image type and feature class
// it knows, and a native engine covering first order, shape and GLCM texture
// features over the intensity filters. The native engine skips enabled names
// it cannot compute.
package radiomics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"radiomics-toolkit/internal/volume"
)

// DiagnosticsPrefix marks result keys that describe the run rather than the
// region of interest.
const DiagnosticsPrefix = "diagnostics"

var (
	ErrMultiComponent   = errors.New("pixel type not supported: image has more than one component")
	ErrGeometryMismatch = errors.New("image and mask geometry do not match")
	ErrLabelNotPresent  = errors.New("label not present in mask")
	ErrInvalidSettings  = errors.New("invalid settings")
)

// Engine computes a feature mapping for an image and its mask.
type Engine interface {
	Execute(ctx context.Context, image, mask *volume.Volume) (Result, error)
}

// Entry is one computed value. Value is float64 for features and either
// float64 or string for diagnostics.
type Entry struct {
	Key   string
	Value interface{}
}

// IsDiagnostic reports whether the entry describes the run.
func (e Entry) IsDiagnostic() bool {
	return strings.HasPrefix(e.Key, DiagnosticsPrefix)
}

// Result is an ordered feature mapping.
type Result []Entry

// Get returns the value for key.
func (r Result) Get(key string) (interface{}, bool) {
	for _, e := range r {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// FilterDiagnostics returns the entries whose key does not start with the
// diagnostics prefix, keeping their order.
func FilterDiagnostics(r Result) Result {
	out := make(Result, 0, len(r))
	for _, e := range r {
		if !e.IsDiagnostic() {
			out = append(out, e)
		}
	}
	return out
}

// ImageType names a derived image the features are computed on.
type ImageType string

const (
	ImageOriginal    ImageType = "original"
	ImageSquare      ImageType = "square"
	ImageSquareRoot  ImageType = "squareroot"
	ImageLogarithm   ImageType = "logarithm"
	ImageExponential ImageType = "exponential"
	ImageGradient    ImageType = "gradient"
	ImageWavelet     ImageType = "wavelet"
	ImageLoG         ImageType = "log"
	ImageLBP2D       ImageType = "lbp2d"
	ImageLBP3D       ImageType = "lbp3d"
)

// AllImageTypes lists every known image type in computation order.
func AllImageTypes() []ImageType {
	return []ImageType{
		ImageOriginal, ImageWavelet, ImageLoG, ImageSquare, ImageSquareRoot,
		ImageLogarithm, ImageExponential, ImageGradient, ImageLBP2D, ImageLBP3D,
	}
}

// NativeImageTypes lists the image types the native engine computes.
func NativeImageTypes() []ImageType {
	return []ImageType{ImageOriginal, ImageSquare, ImageSquareRoot, ImageLogarithm, ImageExponential, ImageGradient}
}

// FeatureClass names a family of features.
type FeatureClass string

const (
	ClassFirstOrder FeatureClass = "firstorder"
	ClassShape      FeatureClass = "shape"
	ClassGLCM       FeatureClass = "glcm"
	ClassGLRLM      FeatureClass = "glrlm"
	ClassGLSZM      FeatureClass = "glszm"
	ClassGLDM       FeatureClass = "gldm"
	ClassNGTDM      FeatureClass = "ngtdm"
)

// AllFeatureClasses lists every known feature class in computation order.
func AllFeatureClasses() []FeatureClass {
	return []FeatureClass{ClassShape, ClassFirstOrder, ClassGLCM, ClassGLRLM, ClassGLSZM, ClassGLDM, ClassNGTDM}
}

// NativeFeatureClasses lists the feature classes the native engine computes.
func NativeFeatureClasses() []FeatureClass {
	return []FeatureClass{ClassShape, ClassFirstOrder, ClassGLCM}
}

// Settings configures an engine.
type Settings struct {
	Label          int            `yaml:"label"`
	Force2D        bool           `yaml:"force2d"`
	BinWidth       float64        `yaml:"bin_width"`
	ImageTypes     []ImageType    `yaml:"image_types"`
	FeatureClasses []FeatureClass `yaml:"feature_classes"`
}

// DefaultSettings returns label 1, 3D computation, bin width 25 and every
// image type and feature class enabled.
func DefaultSettings() Settings {
	s := Settings{Label: 1, Force2D: false, BinWidth: 25}
	s.EnableAll()
	return s
}

// EnableAll turns on every image type and feature class.
func (s *Settings) EnableAll() {
	s.ImageTypes = AllImageTypes()
	s.FeatureClasses = AllFeatureClasses()
}

// Validate checks the settings for values no engine can run with.
func (s Settings) Validate() error {
	if s.Label < 1 {
		return fmt.Errorf("%w: label must be >= 1, got %d", ErrInvalidSettings, s.Label)
	}
	if s.BinWidth <= 0 {
		return fmt.Errorf("%w: bin width must be > 0, got %g", ErrInvalidSettings, s.BinWidth)
	}
	for _, it := range s.ImageTypes {
		if !it.valid() {
			return fmt.Errorf("%w: unknown image type %q", ErrInvalidSettings, it)
		}
	}
	for _, fc := range s.FeatureClasses {
		if !fc.valid() {
			return fmt.Errorf("%w: unknown feature class %q", ErrInvalidSettings, fc)
		}
	}
	return nil
}

func (it ImageType) valid() bool {
	return containsImageType(AllImageTypes(), it)
}

func (fc FeatureClass) valid() bool {
	return containsClass(AllFeatureClasses(), fc)
}

// restrict returns a copy of s keeping only the image types and feature
// classes in the given lists, along with the names it dropped.
func (s Settings) restrict(types []ImageType, classes []FeatureClass) (Settings, []string) {
	out := s
	out.ImageTypes = nil
	out.FeatureClasses = nil
	var dropped []string
	for _, it := range s.ImageTypes {
		if containsImageType(types, it) {
			out.ImageTypes = append(out.ImageTypes, it)
		} else {
			dropped = append(dropped, string(it))
		}
	}
	for _, fc := range s.FeatureClasses {
		if containsClass(classes, fc) {
			out.FeatureClasses = append(out.FeatureClasses, fc)
		} else {
			dropped = append(dropped, string(fc))
		}
	}
	return out, dropped
}

func containsImageType(list []ImageType, it ImageType) bool {
	for _, known := range list {
		if it == known {
			return true
		}
	}
	return false
}

func containsClass(list []FeatureClass, fc FeatureClass) bool {
	for _, known := range list {
		if fc == known {
			return true
		}
	}
	return false
}

// checkInputs rejects inputs the feature classes cannot handle.
func checkInputs(image, mask *volume.Volume, label int) error {
	if image.Components != 1 {
		return fmt.Errorf("%w (image has %d)", ErrMultiComponent, image.Components)
	}
	if mask.Components != 1 {
		return fmt.Errorf("%w (mask has %d)", ErrMultiComponent, mask.Components)
	}
	if !volume.SameGeometry(image, mask) {
		return fmt.Errorf("%w: image size %v, mask size %v", ErrGeometryMismatch, image.Size, mask.Size)
	}
	want := float64(label)
	for _, v := range mask.Data {
		if v == want {
			return nil
		}
	}
	return fmt.Errorf("%w: label %d", ErrLabelNotPresent, label)
}
