package stream

import (
	"fmt"
	"io"

	"equipment_monitor/sensor"
)

// Batch is one recorded iteration: the records of a run sharing a sequence id.
type Batch struct {
	Run         int
	Sequence    uint64
	TimestampMs int64
	Snapshot    sensor.Snapshot
}

// Replay holds a recorded stream grouped by iteration.
type Replay struct {
	Batches []Batch
}

type batchKey struct {
	run int
	seq uint64
}

// LoadReplay reads a recorded stream. Records are grouped by run and sequence id in the
// order the batches first appear, so runs appended to one file play back one after
// another. A recorded temperature equal to the driver sentinel and a
// recorded distance of zero come back as faulted samples.
func LoadReplay(r io.Reader) (*Replay, error) {
	var (
		rp    Replay
		index = map[batchKey]int{}
		seen  = map[batchKey]map[sensor.Kind]bool{}
	)

	_, err := Scan(r, func(rec Record) error {
		key := batchKey{run: rec.Run, seq: rec.Sequence}
		i, ok := index[key]
		if !ok {
			i = len(rp.Batches)
			index[key] = i
			seen[key] = map[sensor.Kind]bool{}
			rp.Batches = append(rp.Batches, Batch{Run: rec.Run, Sequence: rec.Sequence, TimestampMs: rec.TimestampMs})
		}
		kind, err := sensor.KindFromID(rec.SensorID)
		if err != nil {
			return err
		}
		seen[key][kind] = true

		b := &rp.Batches[i]
		switch kind {
		case sensor.Temperature:
			b.Snapshot.Temperature = sensor.FromCelsius(rec.Value)
		case sensor.Vibration:
			b.Snapshot.Vibration = sensor.Valid(sensor.Vibration, rec.Value)
		case sensor.Distance:
			if rec.Value == 0 {
				b.Snapshot.Distance = sensor.Faulted(sensor.Distance, 0, "no echo recorded")
			} else {
				b.Snapshot.Distance = sensor.Valid(sensor.Distance, rec.Value)
			}
		}
		return nil
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("load replay: %w", err)
	}

	for i := range rp.Batches {
		b := &rp.Batches[i]
		for _, kind := range sensor.Kinds {
			if seen[batchKey{run: b.Run, seq: b.Sequence}][kind] {
				continue
			}
			missing := sensor.Faulted(kind, 0, "missing from recording")
			switch kind {
			case sensor.Temperature:
				b.Snapshot.Temperature = missing
			case sensor.Vibration:
				b.Snapshot.Vibration = missing
			case sensor.Distance:
				b.Snapshot.Distance = missing
			}
		}
	}

	return &rp, nil
}

// Len returns the number of recorded iterations.
func (rp *Replay) Len() int {
	return len(rp.Batches)
}

// Bank returns readers that play the recording back one iteration per read and repeat
// the last iteration once exhausted.
func (rp *Replay) Bank() sensor.Bank {
	var temp, vib, dist []sensor.Sample
	for _, b := range rp.Batches {
		temp = append(temp, b.Snapshot.Temperature)
		vib = append(vib, b.Snapshot.Vibration)
		dist = append(dist, b.Snapshot.Distance)
	}
	return sensor.Bank{
		Temperature: sensor.NewScript(sensor.Temperature, temp...),
		Vibration:   sensor.NewScript(sensor.Vibration, vib...),
		Distance:    sensor.NewScript(sensor.Distance, dist...),
	}
}
