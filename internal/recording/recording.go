// Package recording reads wrist sensor recordings into stroke samples.
package recording

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/swimstroke/internal/stroke"
)

// Column names understood by the reader. Any other name in Options.Columns
// marks a field that is read and ignored.
const (
	ColumnTimestamp = "time_stamp"
	ColumnAX        = "ax"
	ColumnAY        = "ay"
	ColumnAZ        = "az"
	ColumnPitch     = "pitch"
	ColumnRoll      = "roll"
)

// DefaultColumns is the field order written by the wrist logger.
var DefaultColumns = []string{ColumnTimestamp, ColumnAX, ColumnAY, ColumnAZ, ColumnPitch, ColumnRoll}

// timestampLayouts are tried in order when Options.TimeFormat is empty.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
}

var ErrNoSamples = errors.New("recording contains no samples")

// Options controls how a recording is parsed.
type Options struct {
	// TimeFormat is a Go time layout for the time_stamp field. Empty means
	// try the common layouts, then plain seconds.
	TimeFormat string

	// Columns names the CSV fields in order. Defaults to DefaultColumns.
	Columns []string
}

type columnIndex struct {
	ts, ax, ay, az, pitch, roll int
	width                       int
}

func indexColumns(columns []string) (columnIndex, error) {
	idx := columnIndex{ts: -1, ax: -1, ay: -1, az: -1, pitch: -1, roll: -1, width: len(columns)}
	for i, c := range columns {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case ColumnTimestamp:
			idx.ts = i
		case ColumnAX:
			idx.ax = i
		case ColumnAY:
			idx.ay = i
		case ColumnAZ:
			idx.az = i
		case ColumnPitch:
			idx.pitch = i
		case ColumnRoll:
			idx.roll = i
		}
	}
	if idx.ts < 0 || idx.ax < 0 {
		return idx, fmt.Errorf("columns must include %q and %q, got %v", ColumnTimestamp, ColumnAX, columns)
	}
	return idx, nil
}

// LoadFile reads the recording at path.
func LoadFile(path string, opts Options) ([]stroke.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	samples, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// Read parses a CSV recording. The file normally has no header; a first
// row whose numeric fields do not parse is treated as one and skipped.
// Sample.Time is seconds elapsed since the first row.
func Read(r io.Reader, opts Options) ([]stroke.Sample, error) {
	columns := opts.Columns
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	idx, err := indexColumns(columns)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		samples []stroke.Sample
		first   time.Time
		line    int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line++

		if len(record) < idx.width {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, idx.width, len(record))
		}

		s, ts, err := parseRecord(record, idx, opts.TimeFormat)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if len(samples) == 0 {
			first = ts
		}
		s.Time = ts.Sub(first).Seconds()
		samples = append(samples, s)
	}

	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return samples, nil
}

func parseRecord(record []string, idx columnIndex, layout string) (stroke.Sample, time.Time, error) {
	var s stroke.Sample

	ts, err := parseTimestamp(strings.TrimSpace(record[idx.ts]), layout)
	if err != nil {
		return s, ts, err
	}

	fields := []struct {
		name string
		pos  int
		dst  *float64
	}{
		{ColumnAX, idx.ax, &s.AX},
		{ColumnAY, idx.ay, &s.AY},
		{ColumnAZ, idx.az, &s.AZ},
		{ColumnPitch, idx.pitch, &s.Pitch},
		{ColumnRoll, idx.roll, &s.Roll},
	}
	for _, f := range fields {
		if f.pos < 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[f.pos]), 64)
		if err != nil {
			return s, ts, fmt.Errorf("invalid %s value %q", f.name, record[f.pos])
		}
		*f.dst = v
	}
	return s, ts, nil
}

// parseTimestamp parses value with layout, or with the common layouts when
// layout is empty. Bare numbers are taken as seconds.
func parseTimestamp(value, layout string) (time.Time, error) {
	if layout != "" {
		t, err := time.Parse(layout, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
		}
		return t, nil
	}

	for _, l := range timestampLayouts {
		if t, err := time.Parse(l, value); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Unix(0, 0).Add(time.Duration(secs * float64(time.Second))), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", value)
}

// Write writes samples as a headerless CSV in DefaultColumns order, with
// time_stamp rendered as start plus the sample's elapsed time.
func Write(w io.Writer, start time.Time, samples []stroke.Sample) error {
	writer := csv.NewWriter(w)

	for _, s := range samples {
		ts := start.Add(time.Duration(math.Round(s.Time * float64(time.Second))))
		record := []string{
			ts.Format("2006-01-02 15:04:05.000"),
			strconv.FormatFloat(s.AX, 'f', -1, 64),
			strconv.FormatFloat(s.AY, 'f', -1, 64),
			strconv.FormatFloat(s.AZ, 'f', -1, 64),
			strconv.FormatFloat(s.Pitch, 'f', -1, 64),
			strconv.FormatFloat(s.Roll, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
