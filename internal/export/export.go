// Package export writes indicator tables as CSV, JSON or MessagePack.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/swimstroke/internal/stroke"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// Leading columns written before the indicator columns.
const (
	ColumnStroke    = "Stroke"
	ColumnStartTime = "Start Time"
)

// FormatFromString parses a format name. The empty string selects CSV.
func FormatFromString(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack, "messagepack":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("invalid format: %s. Must be csv, json, or msgpack", s)
	}
}

// ContentType returns the HTTP content type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMsgpack:
		return "application/x-msgpack"
	default:
		return "text/csv"
	}
}

// Extension returns the file extension for the format, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Record is one indicator row in column order. It marshals to JSON and
// MessagePack as a map with the leading columns first; NaN and infinite
// values become null in JSON.
type Record struct {
	Stroke    int
	StartTime float64
	Values    []float64
}

// Records converts rows to Records.
func Records(rows []stroke.IndicatorRow) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record{Stroke: r.Stroke, StartTime: r.StartTime, Values: r.Values()}
	}
	return out
}

// Row rebuilds the indicator row held by r.
func (r Record) Row() stroke.IndicatorRow {
	cols := stroke.Columns()
	m := make(map[string]float64, len(cols))
	for i, c := range cols {
		if i < len(r.Values) {
			m[c] = r.Values[i]
		}
	}
	return stroke.RowFromMap(r.Stroke, r.StartTime, m)
}

func (r Record) MarshalJSON() ([]byte, error) {
	cols := stroke.Columns()

	var buf bytes.Buffer
	buf.WriteByte('{')
	fmt.Fprintf(&buf, "%q:%d,%q:", ColumnStroke, r.Stroke, ColumnStartTime)
	writeJSONFloat(&buf, r.StartTime)
	for i, v := range r.Values {
		buf.WriteByte(',')
		key, err := json.Marshal(cols[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		writeJSONFloat(&buf, v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONFloat(buf *bytes.Buffer, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		buf.WriteString("null")
		return
	}
	buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]*float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	r.fromMap(func(k string) (float64, bool) {
		v, ok := m[k]
		if !ok || v == nil {
			return math.NaN(), ok
		}
		return *v, true
	})
	return nil
}

var _ msgpack.CustomEncoder = Record{}
var _ msgpack.CustomDecoder = (*Record)(nil)

func (r Record) EncodeMsgpack(enc *msgpack.Encoder) error {
	cols := stroke.Columns()
	if err := enc.EncodeMapLen(len(r.Values) + 2); err != nil {
		return err
	}
	if err := enc.EncodeString(ColumnStroke); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(r.Stroke)); err != nil {
		return err
	}
	if err := enc.EncodeString(ColumnStartTime); err != nil {
		return err
	}
	if err := enc.EncodeFloat64(r.StartTime); err != nil {
		return err
	}
	for i, v := range r.Values {
		if err := enc.EncodeString(cols[i]); err != nil {
			return err
		}
		if err := enc.EncodeFloat64(v); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) DecodeMsgpack(dec *msgpack.Decoder) error {
	var m map[string]float64
	if err := dec.Decode(&m); err != nil {
		return err
	}
	r.fromMap(func(k string) (float64, bool) {
		v, ok := m[k]
		return v, ok
	})
	return nil
}

func (r *Record) fromMap(get func(string) (float64, bool)) {
	if v, ok := get(ColumnStroke); ok {
		r.Stroke = int(v)
	}
	r.StartTime, _ = get(ColumnStartTime)

	cols := stroke.Columns()
	r.Values = make([]float64, len(cols))
	for i, c := range cols {
		v, ok := get(c)
		if !ok {
			v = math.NaN()
		}
		r.Values[i] = v
	}
}

// Write encodes rows to w in the given format.
func Write(w io.Writer, f Format, rows []stroke.IndicatorRow) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Records(rows))
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(Records(rows))
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}

// WriteFile writes rows to path in the given format.
func WriteFile(path string, f Format, rows []stroke.IndicatorRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := Write(file, f, rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s export: %w", f, err)
	}
	return file.Close()
}

// writeCSV writes a header row followed by one row per stroke. NaN is
// written as an empty field.
func writeCSV(w io.Writer, rows []stroke.IndicatorRow) error {
	writer := csv.NewWriter(w)

	header := append([]string{ColumnStroke, ColumnStartTime}, stroke.Columns()...)
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, r := range rows {
		record[0] = strconv.Itoa(r.Stroke)
		record[1] = formatCSVFloat(r.StartTime)
		for i, v := range r.Values() {
			record[i+2] = formatCSVFloat(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCSVFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}
