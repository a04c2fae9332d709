// Package stream writes and reads the line-oriented measurement stream:
//
//	id_local;data_hora_ms;id_sensor;valor
//	1;1000;1;25.31
//	1;1000;2;0.48
//	1;1000;3;148.02
//	STATUS: NORMAL
//
// Data lines have exactly four ';'-separated fields. Diagnostic lines never contain ';'
// so a parser can skip them. A file may hold several runs appended one after another;
// each run starts with its own header and restarts the sequence at 1.
package stream

import (
	"fmt"
	"io"
	"strings"

	"equipment_monitor/sensor"
)

// Header is the column line written once before the first record.
const Header = "id_local;data_hora_ms;id_sensor;valor"

const separator = ";"

// Record is one measurement line. The three records of an iteration share Sequence and
// TimestampMs; Sequence is a batch id, not a per-record id.
type Record struct {
	Sequence    uint64
	TimestampMs int64
	SensorID    int
	Value       float64
	// Run numbers the runs of a file from 1. Set by Scan, not written to the stream.
	Run int
}

func (r Record) String() string {
	return fmt.Sprintf("%d;%d;%d;%.2f", r.Sequence, r.TimestampMs, r.SensorID, r.Value)
}

// Records builds the records of one iteration in sensor order 1, 2, 3.
func Records(seq uint64, tsMs int64, snap sensor.Snapshot) []Record {
	samples := snap.Samples()
	out := make([]Record, 0, len(samples))
	for _, s := range samples {
		out = append(out, Record{
			Sequence:    seq,
			TimestampMs: tsMs,
			SensorID:    s.Kind.ID(),
			Value:       s.Value,
		})
	}
	return out
}

// Writer emits the stream to an append-only sink. Writes go straight to the sink with no
// buffering or retry.
type Writer struct {
	w          io.Writer
	headerDone bool
}

// NewWriter creates a stream writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the column header. Only the first call writes anything.
func (sw *Writer) WriteHeader() error {
	if sw.headerDone {
		return nil
	}
	if _, err := io.WriteString(sw.w, Header+"\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	sw.headerDone = true
	return nil
}

// Emit writes the three records of an iteration and returns them.
func (sw *Writer) Emit(seq uint64, tsMs int64, snap sensor.Snapshot) ([]Record, error) {
	records := Records(seq, tsMs, snap)
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(sw.w, b.String()); err != nil {
		return records, fmt.Errorf("write records %d: %w", seq, err)
	}
	return records, nil
}

// Diagnostic writes a human readable line. Any ';' is replaced so the line can never be
// mistaken for a record.
func (sw *Writer) Diagnostic(format string, args ...any) error {
	line := fmt.Sprintf(format, args...)
	line = strings.ReplaceAll(line, separator, ",")
	line = strings.ReplaceAll(line, "\n", " ")
	if _, err := io.WriteString(sw.w, line+"\n"); err != nil {
		return fmt.Errorf("write diagnostic: %w", err)
	}
	return nil
}
