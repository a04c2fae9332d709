package stream

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"equipment_monitor/sensor"
)

var (
	// ErrNotRecord marks the header and diagnostic lines.
	ErrNotRecord = errors.New("not a measurement record")
	// ErrMalformed marks a four-field line whose fields do not parse.
	ErrMalformed = errors.New("malformed measurement record")
)

var headerFields = strings.Split(Header, separator)

// ParseLine parses a single stream line.
func ParseLine(line string) (Record, error) {
	return ParseFields(strings.Split(strings.TrimRight(line, "\r\n"), separator))
}

// ParseFields parses the ';'-separated fields of one line.
func ParseFields(fields []string) (Record, error) {
	if len(fields) != len(headerFields) {
		return Record{}, ErrNotRecord
	}
	if isHeader(fields) {
		return Record{}, ErrNotRecord
	}

	seq, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: sequence %q", ErrMalformed, fields[0])
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: timestamp %q", ErrMalformed, fields[1])
	}
	id, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Record{}, fmt.Errorf("%w: sensor id %q", ErrMalformed, fields[2])
	}
	if _, err := sensor.KindFromID(id); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: value %q", ErrMalformed, fields[3])
	}

	return Record{Sequence: seq, TimestampMs: ts, SensorID: id, Value: value}, nil
}

func isHeader(fields []string) bool {
	for i, f := range fields {
		if !strings.EqualFold(strings.TrimSpace(f), headerFields[i]) {
			return false
		}
	}
	return true
}

// ScanStats counts what a scan saw besides records.
type ScanStats struct {
	Records   int
	Skipped   int
	Malformed int
	Runs      int
}

// runTracker splits a file into runs. A run ends at a header that follows records, or
// at a record whose sequence is lower than the previous one.
type runTracker struct {
	run      int
	lastSeq  uint64
	inRecord bool
}

func (t *runTracker) header() {
	if t.inRecord {
		t.run++
		t.inRecord = false
		t.lastSeq = 0
	}
}

func (t *runTracker) record(seq uint64) int {
	if t.run == 0 {
		t.run = 1
	}
	if t.inRecord && seq < t.lastSeq {
		t.run++
	}
	t.inRecord = true
	t.lastSeq = seq
	return t.run
}

// Scan reads a stream and calls fn for every record, with Record.Run set. Header and
// diagnostic lines are skipped; malformed records are passed to onMalformed (if set)
// with their line number and then skipped. An error returned by fn stops the scan.
func Scan(r io.Reader, fn func(Record) error, onMalformed func(line int, err error)) (ScanStats, error) {
	var (
		stats ScanStats
		runs  runTracker
	)

	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			stats.Runs = runs.run
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read stream: %w", err)
		}

		rec, err := ParseFields(fields)
		switch {
		case errors.Is(err, ErrNotRecord):
			if isHeader(fields) {
				runs.header()
			}
			stats.Skipped++
			continue
		case err != nil:
			stats.Malformed++
			if onMalformed != nil {
				line, _ := reader.FieldPos(0)
				onMalformed(line, err)
			}
			continue
		}

		rec.Run = runs.record(rec.Sequence)
		stats.Records++
		if err := fn(rec); err != nil {
			stats.Runs = runs.run
			return stats, err
		}
	}
}
