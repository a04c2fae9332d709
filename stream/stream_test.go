package stream

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment_monitor/sensor"
)

func snap(temp, vib, dist float64) sensor.Snapshot {
	return sensor.Snapshot{
		Temperature: sensor.Valid(sensor.Temperature, temp),
		Vibration:   sensor.Valid(sensor.Vibration, vib),
		Distance:    sensor.Valid(sensor.Distance, dist),
	}
}

func TestWriterEmitsHeaderOnceAndOrderedRecords(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteHeader())
	records, err := w.Emit(7, 12345, snap(25.0, 0.123, 100.456))
	require.NoError(t, err)

	want := "id_local;data_hora_ms;id_sensor;valor\n" +
		"7;12345;1;25.00\n" +
		"7;12345;2;0.12\n" +
		"7;12345;3;100.46\n"
	assert.Equal(t, want, buf.String())

	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, uint64(7), r.Sequence)
		assert.Equal(t, int64(12345), r.TimestampMs)
		assert.Equal(t, i+1, r.SensorID)
	}
}

func TestDiagnosticNeverLooksLikeARecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Diagnostic("FAULT: %s", "1;2;3;4"))

	line := strings.TrimSpace(buf.String())
	assert.NotContains(t, line, ";")
	_, err := ParseLine(line)
	assert.ErrorIs(t, err, ErrNotRecord)
}

func TestParseLine(t *testing.T) {
	rec, err := ParseLine("12;3400;3;-127.00\r\n")
	require.NoError(t, err)
	assert.Equal(t, Record{Sequence: 12, TimestampMs: 3400, SensorID: 3, Value: -127}, rec)

	_, err = ParseLine(Header)
	assert.ErrorIs(t, err, ErrNotRecord)

	_, err = ParseLine("STATUS: NORMAL")
	assert.ErrorIs(t, err, ErrNotRecord)

	_, err = ParseLine("1;1000;9;1.00")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseLine("x;1000;1;1.00")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestScanSkipsDiagnostics(t *testing.T) {
	input := Header + "\n" +
		"1;1000;1;25.00\n" +
		"FAULT: temperature probe disconnected\n" +
		"1;1000;2;0.10\n" +
		"1;1000;3;abc\n" +
		"1;1000;3;100.00\n" +
		"STATUS: NORMAL\n"

	var got []Record
	var badLines []int
	stats, err := Scan(strings.NewReader(input), func(r Record) error {
		got = append(got, r)
		return nil
	}, func(line int, err error) {
		badLines = append(badLines, line)
	})

	require.NoError(t, err)
	assert.Equal(t, ScanStats{Records: 3, Skipped: 3, Malformed: 1, Runs: 1}, stats)
	assert.Len(t, got, 3)
	assert.Equal(t, []int{5}, badLines)
}

func TestScanStopsOnCallbackError(t *testing.T) {
	boom := errors.New("stop")
	_, err := Scan(strings.NewReader("1;1;1;1.00\n1;1;2;1.00\n"), func(Record) error {
		return boom
	}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRoundTripThroughReplay(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())

	faulted := snap(0, 0.5, 0)
	faulted.Temperature = sensor.FromCelsius(sensor.DisconnectedC)
	faulted.Distance = sensor.FromEcho(0, 0)

	_, err := w.Emit(1, 1000, snap(25.0, 0.1, 100.0))
	require.NoError(t, err)
	require.NoError(t, w.Diagnostic("STATUS: NORMAL"))
	_, err = w.Emit(2, 2000, faulted)
	require.NoError(t, err)

	rp, err := LoadReplay(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, rp.Len())

	assert.Equal(t, uint64(2), rp.Batches[1].Sequence)
	assert.Equal(t, int64(2000), rp.Batches[1].TimestampMs)
	assert.True(t, rp.Batches[0].Snapshot.Temperature.Valid)
	assert.False(t, rp.Batches[1].Snapshot.Temperature.Valid)
	assert.False(t, rp.Batches[1].Snapshot.Distance.Valid)

	bank := rp.Bank()
	first := bank.Read()
	assert.Equal(t, 25.0, first.Temperature.Value)
	second := bank.Read()
	assert.False(t, second.Temperature.Valid)
	again := bank.Read()
	assert.Equal(t, second, again)
}

func TestReplayMarksMissingSensors(t *testing.T) {
	rp, err := LoadReplay(strings.NewReader("4;10;1;30.00\n4;10;3;50.00\n"))
	require.NoError(t, err)
	require.Equal(t, 1, rp.Len())

	v := rp.Batches[0].Snapshot.Vibration
	assert.Equal(t, sensor.Vibration, v.Kind)
	assert.False(t, v.Valid)
}

func TestScanNumbersAppendedRuns(t *testing.T) {
	input := Header + "\n" +
		"1;1000;1;25.00\n" +
		"2;2000;1;26.00\n" +
		Header + "\n" +
		"1;5000;1;27.00\n" +
		"3;7000;1;28.00\n" +
		"1;9000;1;29.00\n"

	var runs []int
	stats, err := Scan(strings.NewReader(input), func(r Record) error {
		runs = append(runs, r.Run)
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2, 3}, runs)
	assert.Equal(t, 3, stats.Runs)
}

func TestReplayKeepsAppendedRunsApart(t *testing.T) {
	var buf bytes.Buffer

	first := NewWriter(&buf)
	require.NoError(t, first.WriteHeader())
	_, err := first.Emit(1, 1000, snap(95.0, 0.1, 100.0))
	require.NoError(t, err)
	require.NoError(t, first.Diagnostic("EMERGENCY: equipment shut down"))

	second := NewWriter(&buf)
	require.NoError(t, second.WriteHeader())
	_, err = second.Emit(1, 60000, snap(25.0, 0.1, 100.0))
	require.NoError(t, err)

	rp, err := LoadReplay(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, rp.Len())

	assert.Equal(t, 1, rp.Batches[0].Run)
	assert.Equal(t, 95.0, rp.Batches[0].Snapshot.Temperature.Value)
	assert.Equal(t, 2, rp.Batches[1].Run)
	assert.Equal(t, uint64(1), rp.Batches[1].Sequence)
	assert.Equal(t, int64(60000), rp.Batches[1].TimestampMs)
	assert.Equal(t, 25.0, rp.Batches[1].Snapshot.Temperature.Value)
}
