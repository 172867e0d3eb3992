package table

import (
	"bytes"
	"encoding/csv"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomics-toolkit/internal/models"
)

func record(id string, kv ...interface{}) models.FeatureRecord {
	r := models.FeatureRecord{PatientID: id}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Features = append(r.Features, models.Feature{Name: kv[i].(string), Value: kv[i+1]})
	}
	return r
}

func TestFromRecordsUnionsColumns(t *testing.T) {
	tbl := FromRecords("PatientID", []models.FeatureRecord{
		record("A", "f1", 1.0, "f2", 2.0),
		record("B", "f2", 3.0, "f3", "x"),
	})

	want := []string{"PatientID", "f1", "f2", "f3"}
	if diff := cmp.Diff(want, tbl.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []interface{}{"A", 1.0, 2.0, nil}, tbl.Rows[0])
	assert.Equal(t, []interface{}{"B", nil, 3.0, "x"}, tbl.Rows[1])
}

func TestWriteCSV(t *testing.T) {
	tbl := FromRecords("PatientID", []models.FeatureRecord{
		record("P1", "original_firstorder_Mean", 0.1, "original_shape_VoxelVolume", 1000.0),
		record("P2", "original_firstorder_Mean", math.NaN()),
	})

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		{"PatientID", "original_firstorder_Mean", "original_shape_VoxelVolume"},
		{"P1", "0.1", "1000"},
		{"P2", "", ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSVNoRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FromRecords("PatientID", nil).WriteCSV(&buf))
	assert.Equal(t, "PatientID\n", buf.String())
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", FormatCell(nil))
	assert.Equal(t, "3.141592653589793", FormatCell(math.Pi))
	assert.Equal(t, "1e+21", FormatCell(1e21))
	assert.Equal(t, "7", FormatCell(7))
	assert.Equal(t, "true", FormatCell(true))
	assert.Equal(t, "label", FormatCell("label"))
}
