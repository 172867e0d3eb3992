package radiomics

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"radiomics-toolkit/internal/volume"
)

type paramDoc struct {
	ImageType    map[string]map[string]interface{} `yaml:"imageType"`
	FeatureClass map[string]interface{}            `yaml:"featureClass"`
	Setting      struct {
		Label    int     `yaml:"label"`
		Force2D  bool    `yaml:"force2D"`
		BinWidth float64 `yaml:"binWidth"`
	} `yaml:"setting"`
}

func renderParams(t *testing.T, s Settings) paramDoc {
	t.Helper()
	e, err := NewPyRadiomicsEngine("", s, nil)
	require.NoError(t, err)
	data, err := e.paramFile()
	require.NoError(t, err)
	var doc paramDoc
	require.NoError(t, yaml.Unmarshal(data, &doc))
	return doc
}

func TestDecodeOrderedKeepsKeyOrder(t *testing.T) {
	in := `{"diagnostics_Versions_PyRadiomics": "v3.1.0",
		"original_shape_VoxelVolume": 1000,
		"original_firstorder_Mean": 12.5,
		"diagnostics_Mask-original_BoundingBox": [1, 2, 3]}`

	got, err := decodeOrdered(strings.NewReader(in))
	require.NoError(t, err)

	want := Result{
		{Key: "diagnostics_Versions_PyRadiomics", Value: "v3.1.0"},
		{Key: "original_shape_VoxelVolume", Value: 1000.0},
		{Key: "original_firstorder_Mean", Value: 12.5},
		{Key: "diagnostics_Mask-original_BoundingBox", Value: "[1, 2, 3]"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decodeOrdered mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeOrderedBatchArray(t *testing.T) {
	got, err := decodeOrdered(strings.NewReader(`[{"a": 1}]`))
	require.NoError(t, err)
	assert.Equal(t, Result{{Key: "a", Value: 1.0}}, got)

	_, err = decodeOrdered(strings.NewReader(`"text"`))
	assert.Error(t, err)
}

func TestPyRadiomicsParamFile(t *testing.T) {
	s := DefaultSettings()
	s.ImageTypes = []ImageType{ImageOriginal, ImageSquareRoot}
	e, err := NewPyRadiomicsEngine("", s, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPyRadiomicsCommand, e.command)

	doc := renderParams(t, s)
	assert.Len(t, doc.ImageType, 2)
	assert.Contains(t, doc.ImageType, "Original")
	assert.Contains(t, doc.ImageType, "SquareRoot")
	assert.Len(t, doc.FeatureClass, len(AllFeatureClasses()))
	assert.Equal(t, 1, doc.Setting.Label)
	assert.False(t, doc.Setting.Force2D)
	assert.Equal(t, 25.0, doc.Setting.BinWidth)
}

func TestPyRadiomicsParamFileEnablesEverything(t *testing.T) {
	doc := renderParams(t, DefaultSettings())

	for _, name := range []string{"Original", "Wavelet", "LoG", "Square", "SquareRoot",
		"Logarithm", "Exponential", "Gradient", "LBP2D", "LBP3D"} {
		assert.Contains(t, doc.ImageType, name)
	}
	for _, name := range []string{"shape", "firstorder", "glcm", "glrlm", "glszm", "gldm", "ngtdm"} {
		assert.Contains(t, doc.FeatureClass, name)
	}
}

const cliOutput = `{"Image": "/tmp/radiomics-1/image.nrrd",
	"Mask": "/tmp/radiomics-1/mask.nrrd",
	"diagnostics_Versions_PyRadiomics": "3.1",
	"original_firstorder_Mean": 1.5,
	"wavelet-LLH_glrlm_RunEntropy": 2.25,
	"Label": 1}`

func TestParseOutputDropsCaseColumns(t *testing.T) {
	got, err := parseOutput(strings.NewReader(cliOutput))
	require.NoError(t, err)

	want := Result{
		{Key: "diagnostics_Versions_PyRadiomics", Value: "3.1"},
		{Key: "original_firstorder_Mean", Value: 1.5},
		{Key: "wavelet-LLH_glrlm_RunEntropy", Value: 2.25},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseOutput mismatch (-want +got):\n%s", diff)
	}
}

func TestPyRadiomicsExecuteUsesCommandOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script command")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "pyradiomics")
	body := "#!/bin/sh\ncat <<'EOF'\n" + cliOutput + "\nEOF\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	image, mask := cubeFixture(t)
	e, err := NewPyRadiomicsEngine(script, DefaultSettings(), nil)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), image, mask)
	require.NoError(t, err)

	features := FilterDiagnostics(result)
	require.Len(t, features, 2)
	assert.Equal(t, "original_firstorder_Mean", features[0].Key)
	_, ok := result.Get("Image")
	assert.False(t, ok)
}

func TestPyRadiomicsExecuteRejectsVectorImage(t *testing.T) {
	e, err := NewPyRadiomicsEngine("", DefaultSettings(), nil)
	require.NoError(t, err)

	vector, err := volume.New(2, 2, 2, 3, volume.Uint8)
	require.NoError(t, err)
	mask, err := volume.New(2, 2, 2, 1, volume.Uint8)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), vector, mask)
	assert.ErrorIs(t, err, ErrMultiComponent)
}
