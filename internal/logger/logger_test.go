package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		" error ": ErrorLevel,
		"":        InfoLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestZerologAdapterWritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, DebugLevel)

	log.Warning("Organizer", "no segmentation file", map[string]interface{}{"patient": "P2"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Organizer", entry["component"])
	assert.Equal(t, "P2", entry["patient"])
	assert.Equal(t, "no segmentation file", entry["message"])
}

func TestZerologAdapterError(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, InfoLevel)

	log.Error("Extraction", "patient failed", errors.New("corrupt header"), nil)

	assert.Contains(t, buf.String(), `"error":"corrupt header"`)
	assert.Contains(t, buf.String(), `"message":"patient failed"`)
}

func TestScopedLoggerSuppressesBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	base := NewZerolog(&buf, DebugLevel)
	engine := base.Scoped(ErrorLevel)

	engine.Info("radiomics", "computing glcm", nil)
	engine.Warning("radiomics", "small mask", nil)
	assert.Empty(t, buf.String())

	engine.Error("radiomics", "failed", errors.New("boom"), nil)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	// the parent keeps its own level
	base.Debug("Extraction", "still visible", nil)
	assert.Contains(t, buf.String(), "still visible")
}

func TestNopLogger(t *testing.T) {
	log := NewNop()
	log.Info("x", "y", nil)
	assert.NotNil(t, log.Scoped(DebugLevel))
}
