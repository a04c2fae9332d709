package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCelsiusSentinel(t *testing.T) {
	s := FromCelsius(DisconnectedC)
	assert.False(t, s.Valid)
	assert.Equal(t, Temperature, s.Kind)
	assert.Equal(t, DisconnectedC, s.Value)
	assert.NotEmpty(t, s.Fault)

	s = FromCelsius(-20)
	assert.True(t, s.Valid)
}

func TestFromAcceleration(t *testing.T) {
	s := FromAcceleration(0, 0, 16384)
	assert.True(t, s.Valid)
	assert.InDelta(t, 1.0, s.Value, 1e-9)

	s = FromAcceleration(16384, 16384, 16384)
	assert.InDelta(t, 1.7320508, s.Value, 1e-6)

	s = FromAcceleration(-16384, 0, 0)
	assert.InDelta(t, 1.0, s.Value, 1e-9)
}

func TestFromEcho(t *testing.T) {
	s := FromEcho(1000*time.Microsecond, 0)
	require.True(t, s.Valid)
	assert.InDelta(t, 17.0, s.Value, 1e-9)

	s = FromEcho(0, 0)
	assert.False(t, s.Valid)
	assert.Equal(t, 0.0, s.Value)

	s = FromEcho(DefaultEchoTimeout, 0)
	assert.False(t, s.Valid)

	s = FromEcho(5*time.Millisecond, 2*time.Millisecond)
	assert.False(t, s.Valid)
}

func TestEchoForRoundTrip(t *testing.T) {
	for _, cm := range []float64{5, 100, 150.25, 250} {
		s := FromEcho(EchoFor(cm), 0)
		require.True(t, s.Valid)
		assert.InDelta(t, cm, s.Value, 1e-3)
	}
}

func TestKindIDs(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, []int{Temperature.ID(), Vibration.ID(), Distance.ID()})

	k, err := KindFromID(2)
	require.NoError(t, err)
	assert.Equal(t, Vibration, k)

	_, err = KindFromID(4)
	assert.Error(t, err)
}

func TestScriptRepeatsLast(t *testing.T) {
	s := ScriptValues(Distance, 10, 20)
	assert.Equal(t, 10.0, s.Read().Value)
	assert.Equal(t, 20.0, s.Read().Value)
	assert.Equal(t, 20.0, s.Read().Value)

	empty := NewScript(Vibration)
	assert.False(t, empty.Read().Valid)
}

func TestBankValidate(t *testing.T) {
	bank := Bank{
		Temperature: ScriptValues(Temperature, 1),
		Vibration:   ScriptValues(Vibration, 1),
		Distance:    ScriptValues(Distance, 1),
	}
	require.NoError(t, bank.Validate())

	bank.Distance = nil
	assert.Error(t, bank.Validate())
}

func TestSimulatorIsDeterministic(t *testing.T) {
	a := NewSimulator(42, 0).Bank()
	b := NewSimulator(42, 0).Bank()
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Read(), b.Read())
	}
}

func TestSimulatorStaysInRangeAndSpikes(t *testing.T) {
	bank := NewSimulator(7, 0).Bank()

	var maxTemp, maxVib float64
	for i := 1; i <= 200; i++ {
		snap := bank.Read()
		require.True(t, snap.Temperature.Valid)
		require.True(t, snap.Distance.Valid, "iteration %d", i)
		assert.GreaterOrEqual(t, snap.Distance.Value, 5.0-1e-6)
		assert.LessOrEqual(t, snap.Distance.Value, 250.0+1e-6)
		if i <= 50 {
			assert.LessOrEqual(t, snap.Temperature.Value, 100.0)
		}
		if snap.Temperature.Value > maxTemp {
			maxTemp = snap.Temperature.Value
		}
		if snap.Vibration.Value > maxVib {
			maxVib = snap.Vibration.Value
		}
	}

	// 19 forced +3 °C steps from at least 20 °C
	assert.Greater(t, maxTemp, 60.0)
	// 19 forced +0.5 g steps from at least 0.1 g
	assert.Greater(t, maxVib, 2.0)
}
