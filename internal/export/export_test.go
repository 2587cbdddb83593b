package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/swimstroke/internal/stroke"
)

func testRows() []stroke.IndicatorRow {
	cols := stroke.Columns()
	rows := make([]stroke.IndicatorRow, 2)
	for r := range rows {
		m := make(map[string]float64, len(cols))
		for i, c := range cols {
			m[c] = float64(r*100 + i)
		}
		rows[r] = stroke.RowFromMap(r, 0.5+float64(r)*3, m)
	}
	// empty phase and zero-length stroke
	rows[1].Phases[stroke.PhaseAir].MeanPitch = math.NaN()
	rows[1].StrokeRate = math.Inf(1)
	return rows
}

func TestFormatFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{"JSON", FormatJSON, false},
		{" msgpack ", FormatMsgpack, false},
		{"messagepack", FormatMsgpack, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := FormatFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, testRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	require.Len(t, header, 41)
	assert.Equal(t, ColumnStroke, header[0])
	assert.Equal(t, ColumnStartTime, header[1])
	assert.Equal(t, "Speed Variation - Entry Fase", header[2])
	assert.Equal(t, "Stroke Time", header[40])

	assert.Equal(t, "0", records[1][0])
	assert.Equal(t, "0.5", records[1][1])
	assert.Equal(t, "0", records[1][2])

	second := records[2]
	col := func(name string) string {
		for i, h := range header {
			if h == name {
				return second[i]
			}
		}
		t.Fatalf("column %q missing", name)
		return ""
	}
	assert.Equal(t, "", col("Mean Pitch - Air Fase"))
	assert.Equal(t, "inf", col("Stroke Rate"))
	assert.Equal(t, "101", col("Pitch Amplitude - Entry Fase"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, testRows()))

	// key order follows the column order
	out := buf.String()
	assert.Less(t, strings.Index(out, `"Stroke"`), strings.Index(out, `"Speed Variation - Entry Fase"`))
	assert.Less(t, strings.Index(out, `"Speed Variation - Entry Fase"`), strings.Index(out, `"Stroke Time"`))

	var decoded []map[string]*float64
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Len(t, decoded[0], 41)
	assert.Nil(t, decoded[1]["Mean Pitch - Air Fase"])
	assert.Nil(t, decoded[1]["Stroke Rate"])
	require.NotNil(t, decoded[1]["Stroke Time"])
	assert.Equal(t, 138.0, *decoded[1]["Stroke Time"])

	var records []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[1].Stroke)
	assert.Equal(t, 3.5, records[1].StartTime)
	assert.True(t, math.IsNaN(records[1].Row().Phase(stroke.PhaseAir).MeanPitch))
}

func TestWriteMsgpack(t *testing.T) {
	rows := testRows()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMsgpack, rows))

	var records []Record
	require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)

	for i, rec := range records {
		assert.Equal(t, rows[i].Stroke, rec.Stroke)
		assert.Equal(t, rows[i].StartTime, rec.StartTime)
		want := rows[i].Values()
		for j, v := range rec.Values {
			assert.Equal(t, math.Float64bits(want[j]), math.Float64bits(v), "row %d column %d", i, j)
		}
	}

	var generic []map[string]any
	require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &generic))
	assert.Len(t, generic[0], 41)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicators"+FormatJSON.Extension())
	require.NoError(t, WriteFile(path, FormatJSON, testRows()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "x.csv"), FormatCSV, nil))
	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), nil))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "application/x-msgpack", FormatMsgpack.ContentType())
}
