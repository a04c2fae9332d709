package sensor

// Script is a reader that plays back a fixed list of samples and then keeps repeating
// the last one. It backs replayed recordings and bench tests.
type Script struct {
	kind    Kind
	samples []Sample
	pos     int
}

// NewScript creates a reader returning samples in order.
func NewScript(kind Kind, samples ...Sample) *Script {
	return &Script{kind: kind, samples: samples}
}

// ScriptValues creates a reader returning valid samples with the given values.
func ScriptValues(kind Kind, values ...float64) *Script {
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Valid(kind, v)
	}
	return NewScript(kind, samples...)
}

func (s *Script) Kind() Kind { return s.kind }

func (s *Script) Read() Sample {
	if len(s.samples) == 0 {
		return Faulted(s.kind, 0, "no recorded samples")
	}
	sample := s.samples[s.pos]
	if s.pos < len(s.samples)-1 {
		s.pos++
	}
	return sample
}
