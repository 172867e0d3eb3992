package radiomics

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/volume"
)

func floatValue(r Result, key string) (float64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// cubeFixture returns a 6x6x6 image and a mask labelling the 2x2x2 cube at
// (2..3, 2..3, 2..3). Cube voxels hold 1..8 in raster order.
func cubeFixture(t *testing.T) (*volume.Volume, *volume.Volume) {
	t.Helper()
	image, err := volume.New(6, 6, 6, 1, volume.Int16)
	require.NoError(t, err)
	mask, err := volume.New(6, 6, 6, 1, volume.Uint8)
	require.NoError(t, err)

	next := 1.0
	for z := 2; z <= 3; z++ {
		for y := 2; y <= 3; y++ {
			for x := 2; x <= 3; x++ {
				image.Set(x, y, z, 0, next)
				mask.Set(x, y, z, 0, 1)
				next++
			}
		}
	}
	return image, mask
}

func newEngine(t *testing.T, s Settings) *NativeEngine {
	t.Helper()
	e, err := NewNativeEngine(s, logger.NewNop())
	require.NoError(t, err)
	return e
}

func TestNativeEngineFirstOrder(t *testing.T) {
	image, mask := cubeFixture(t)
	result, err := newEngine(t, DefaultSettings()).Execute(context.Background(), image, mask)
	require.NoError(t, err)

	want := map[string]float64{
		"original_firstorder_Mean":            4.5,
		"original_firstorder_Median":          4.5,
		"original_firstorder_Minimum":         1,
		"original_firstorder_Maximum":         8,
		"original_firstorder_Range":           7,
		"original_firstorder_Variance":        5.25,
		"original_firstorder_Energy":          204,
		"original_firstorder_TotalEnergy":     204,
		"original_firstorder_10Percentile":    1.7,
		"original_firstorder_90Percentile":    7.3,
		"original_firstorder_RootMeanSquared": math.Sqrt(204.0 / 8),
		"original_firstorder_Skewness":        0,
		"original_firstorder_Entropy":         0,
		"original_firstorder_Uniformity":      1,
	}
	for key, expected := range want {
		got, ok := floatValue(result, key)
		require.True(t, ok, key)
		assert.InDelta(t, expected, got, 1e-9, key)
	}
}

func TestNativeEngineShape(t *testing.T) {
	image, mask := cubeFixture(t)
	result, err := newEngine(t, DefaultSettings()).Execute(context.Background(), image, mask)
	require.NoError(t, err)

	get := func(key string) float64 {
		v, ok := floatValue(result, "original_shape_"+key)
		require.True(t, ok, key)
		return v
	}
	assert.Equal(t, 8.0, get("VoxelVolume"))
	assert.Equal(t, 24.0, get("SurfaceArea"))
	assert.Equal(t, 3.0, get("SurfaceVolumeRatio"))
	assert.InDelta(t, math.Cbrt(36*math.Pi*64)/24, get("Sphericity"), 1e-9)
	assert.InDelta(t, math.Sqrt(3), get("Maximum3DDiameter"), 1e-9)
	assert.InDelta(t, math.Sqrt(2), get("Maximum2DDiameterSlice"), 1e-9)
	assert.InDelta(t, 4*math.Sqrt(2.0/7), get("MajorAxisLength"), 1e-9)
	assert.InDelta(t, 1, get("Elongation"), 1e-9)
	assert.InDelta(t, 1, get("Flatness"), 1e-9)

	// shape is computed once, on the original image
	_, ok := result.Get("square_shape_VoxelVolume")
	assert.False(t, ok)
}

func TestNativeEngineGLCMSingleLevel(t *testing.T) {
	image, mask := cubeFixture(t)
	s := DefaultSettings()
	s.ImageTypes = []ImageType{ImageOriginal}
	s.FeatureClasses = []FeatureClass{ClassGLCM}

	result, err := newEngine(t, s).Execute(context.Background(), image, mask)
	require.NoError(t, err)

	// all cube values fall into the first bin
	want := map[string]float64{
		"original_glcm_Contrast":           0,
		"original_glcm_JointEnergy":        1,
		"original_glcm_Correlation":        1,
		"original_glcm_Idm":                1,
		"original_glcm_MCC":                1,
		"original_glcm_MaximumProbability": 1,
		"original_glcm_JointAverage":       1,
		"original_glcm_SumAverage":         2,
	}
	for key, expected := range want {
		got, ok := floatValue(result, key)
		require.True(t, ok, key)
		assert.InDelta(t, expected, got, 1e-9, key)
	}
	je, _ := floatValue(result, "original_glcm_JointEntropy")
	assert.InDelta(t, 0, je, 1e-9)
}

func TestNativeEngineGLCMTwoLevels(t *testing.T) {
	image, mask := cubeFixture(t)
	// split the cube in two gray levels along x
	for z := 2; z <= 3; z++ {
		for y := 2; y <= 3; y++ {
			image.Set(2, y, z, 0, 0)
			image.Set(3, y, z, 0, 30)
		}
	}
	s := DefaultSettings()
	s.ImageTypes = []ImageType{ImageOriginal}
	s.FeatureClasses = []FeatureClass{ClassGLCM}
	s.Force2D = true

	result, err := newEngine(t, s).Execute(context.Background(), image, mask)
	require.NoError(t, err)

	contrast, ok := floatValue(result, "original_glcm_Contrast")
	require.True(t, ok)
	assert.Greater(t, contrast, 0.0)
	energy, _ := floatValue(result, "original_glcm_JointEnergy")
	assert.Less(t, energy, 1.0)
}

func TestNativeEngineKeyLayout(t *testing.T) {
	image, mask := cubeFixture(t)
	result, err := newEngine(t, DefaultSettings()).Execute(context.Background(), image, mask)
	require.NoError(t, err)

	// diagnostics come first
	assert.True(t, result[0].IsDiagnostic())

	seenTypes := map[string]bool{}
	for _, e := range FilterDiagnostics(result) {
		parts := strings.SplitN(e.Key, "_", 3)
		require.Len(t, parts, 3, e.Key)
		seenTypes[parts[0]] = true
		_, isFloat := e.Value.(float64)
		assert.True(t, isFloat, e.Key)
	}
	for _, it := range NativeImageTypes() {
		assert.True(t, seenTypes[string(it)], it)
	}
	assert.False(t, seenTypes[string(ImageWavelet)])

	voxels, ok := floatValue(result, "diagnostics_Mask-original_VoxelNum")
	require.True(t, ok)
	assert.Equal(t, 8.0, voxels)
	parts, _ := floatValue(result, "diagnostics_Mask-original_VolumeNum")
	assert.Equal(t, 1.0, parts)
	bbox, _ := result.Get("diagnostics_Mask-original_BoundingBox")
	assert.Equal(t, "(2, 2, 2, 2, 2, 2)", bbox)
}

func TestNativeEngineRejectsInputs(t *testing.T) {
	image, mask := cubeFixture(t)
	engine := newEngine(t, DefaultSettings())

	vector, err := volume.New(6, 6, 6, 3, volume.Uint8)
	require.NoError(t, err)
	_, err = engine.Execute(context.Background(), vector, mask)
	assert.ErrorIs(t, err, ErrMultiComponent)

	shifted := mask.Clone()
	shifted.Origin[0] = 5
	_, err = engine.Execute(context.Background(), image, shifted)
	assert.ErrorIs(t, err, ErrGeometryMismatch)

	s := DefaultSettings()
	s.Label = 2
	_, err = newEngine(t, s).Execute(context.Background(), image, mask)
	assert.ErrorIs(t, err, ErrLabelNotPresent)
}

func TestNativeEngineStopsOnCancel(t *testing.T) {
	image, mask := cubeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t, DefaultSettings()).Execute(ctx, image, mask)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNativeEngineLogsThroughScopedLogger(t *testing.T) {
	image, mask := cubeFixture(t)

	var buf bytes.Buffer
	base := logger.NewZerolog(&buf, logger.DebugLevel)

	e, err := NewNativeEngine(DefaultSettings(), base.Scoped(logger.ErrorLevel))
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), image, mask)
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	e, err = NewNativeEngine(DefaultSettings(), base)
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), image, mask)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "image type computed")
}

func TestFilterDiagnosticsKeepsOrder(t *testing.T) {
	in := Result{
		{Key: "diagnostics_Versions_Engine", Value: "x"},
		{Key: "original_shape_VoxelVolume", Value: 8.0},
		{Key: "diagnosticsExtra", Value: 1.0},
		{Key: "original_firstorder_Mean", Value: 4.5},
	}
	want := Result{
		{Key: "original_shape_VoxelVolume", Value: 8.0},
		{Key: "original_firstorder_Mean", Value: 4.5},
	}
	if diff := cmp.Diff(want, FilterDiagnostics(in)); diff != "" {
		t.Errorf("FilterDiagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.Label = 0
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s = DefaultSettings()
	s.BinWidth = 0
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s = DefaultSettings()
	s.ImageTypes = []ImageType{"sharpen"}
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s = DefaultSettings()
	s.FeatureClasses = []FeatureClass{ClassGLRLM, ClassNGTDM}
	assert.NoError(t, s.Validate())
}

func TestNativeEngineSkipsUnsupportedNames(t *testing.T) {
	image, mask := cubeFixture(t)

	var buf bytes.Buffer
	s := DefaultSettings()
	s.ImageTypes = []ImageType{ImageOriginal, ImageWavelet}
	s.FeatureClasses = []FeatureClass{ClassFirstOrder, ClassGLRLM}

	e, err := NewNativeEngine(s, logger.NewZerolog(&buf, logger.DebugLevel))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "wavelet,glrlm")

	result, err := e.Execute(context.Background(), image, mask)
	require.NoError(t, err)
	types, _ := result.Get("diagnostics_Configuration_EnabledImageTypes")
	assert.Equal(t, "original", types)
	for _, entry := range FilterDiagnostics(result) {
		assert.True(t, strings.HasPrefix(entry.Key, "original_firstorder_"), entry.Key)
	}
}
