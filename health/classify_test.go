package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment_monitor/sensor"
)

func snapshot(temp, vib, dist float64) sensor.Snapshot {
	return sensor.Snapshot{
		Temperature: sensor.Valid(sensor.Temperature, temp),
		Vibration:   sensor.Valid(sensor.Vibration, vib),
		Distance:    sensor.Valid(sensor.Distance, dist),
	}
}

func TestTemperatureBoundaries(t *testing.T) {
	tests := []struct {
		value float64
		tier  Tier
		cut   bool
	}{
		{25.0, Normal, false},
		{60.0, Normal, false},
		{60.01, Warning, false},
		{80.0, Warning, false},
		{80.01, Critical, false},
		{89.99, Critical, false},
		{90.0, Critical, true},
		{95.0, Critical, true},
	}
	for _, tt := range tests {
		tier, _, cut := classifyTemperature(tt.value)
		assert.Equal(t, tt.tier, tier, "temperature %.2f", tt.value)
		assert.Equal(t, tt.cut, cut, "temperature %.2f cut", tt.value)
	}
}

func TestVibrationBoundaries(t *testing.T) {
	tests := []struct {
		value float64
		tier  Tier
		cut   bool
	}{
		{0.0, Normal, false},
		{1.0, Normal, false},
		{1.01, Warning, false},
		{2.0, Warning, false},
		{2.01, Critical, true},
	}
	for _, tt := range tests {
		tier, _, cut := classifyVibration(tt.value)
		assert.Equal(t, tt.tier, tier, "vibration %.2f", tt.value)
		assert.Equal(t, tt.cut, cut, "vibration %.2f cut", tt.value)
	}
}

func TestDistanceBoundaries(t *testing.T) {
	tests := []struct {
		value float64
		tier  Tier
	}{
		{0.0, Critical},
		{4.99, Critical},
		{5.0, Warning},
		{9.99, Warning},
		{10.0, Normal},
		{100.0, Normal},
		{200.0, Normal},
		{200.01, Warning},
		{250.0, Warning},
		{250.01, Critical},
	}
	for _, tt := range tests {
		tier, _ := classifyDistance(tt.value)
		assert.Equal(t, tt.tier, tier, "distance %.2f", tt.value)
	}
}

func TestClassifyAggregatesByMax(t *testing.T) {
	a := Classify(snapshot(25.0, 2.5, 205.0))

	assert.Equal(t, Critical, a.Tier)
	require.Len(t, a.Reasons, 2)
	assert.Equal(t, sensor.Vibration, a.Reasons[0].Kind)
	assert.Equal(t, Critical, a.Reasons[0].Tier)
	assert.Equal(t, sensor.Distance, a.Reasons[1].Kind)
	assert.Equal(t, Warning, a.Reasons[1].Tier)
}

func TestClassifyScenarios(t *testing.T) {
	tests := []struct {
		name string
		snap sensor.Snapshot
		tier Tier
		cut  bool
	}{
		{"overheat shutdown", snapshot(95.0, 0.1, 100.0), Critical, true},
		{"warm", snapshot(70.0, 0.5, 150.0), Warning, false},
		{"nominal", snapshot(25.0, 0.1, 100.0), Normal, false},
		{"shock", snapshot(25.0, 2.5, 100.0), Critical, true},
		{"hot but below shutdown", snapshot(85.0, 0.1, 100.0), Critical, false},
		{"distance critical does not cut", snapshot(25.0, 0.1, 300.0), Critical, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Classify(tt.snap)
			assert.Equal(t, tt.tier, a.Tier)
			assert.Equal(t, tt.cut, a.CutRelay)
			assert.Equal(t, tt.cut, len(a.CutReasons) > 0)
			assert.Empty(t, a.Faults)
		})
	}
}

func TestClassifyTemperatureFaultIsExcluded(t *testing.T) {
	snap := snapshot(0, 0.1, 100.0)
	snap.Temperature = sensor.FromCelsius(sensor.DisconnectedC)

	a := Classify(snap)

	assert.Equal(t, Normal, a.Tier)
	assert.Empty(t, a.Reasons)
	require.Len(t, a.Faults, 1)
	assert.Equal(t, sensor.Temperature, a.Faults[0].Kind)
}

func TestClassifyTemperatureFaultKeepsOtherSensors(t *testing.T) {
	snap := snapshot(0, 1.5, 100.0)
	snap.Temperature = sensor.FromCelsius(sensor.DisconnectedC)

	a := Classify(snap)

	assert.Equal(t, Warning, a.Tier)
	require.Len(t, a.Faults, 1)
}

func TestClassifyEchoTimeoutIsCritical(t *testing.T) {
	snap := snapshot(25.0, 0.1, 0)
	snap.Distance = sensor.FromEcho(0, 0)

	a := Classify(snap)

	assert.Equal(t, Critical, a.Tier)
	assert.False(t, a.CutRelay)
	require.Len(t, a.Reasons, 1)
	assert.Equal(t, "no echo", a.Reasons[0].Rule)
	require.Len(t, a.Faults, 1)
	assert.Equal(t, sensor.Distance, a.Faults[0].Kind)
}

func TestClassifyCutReasonsListBothHazards(t *testing.T) {
	a := Classify(snapshot(91.0, 3.0, 100.0))

	assert.True(t, a.CutRelay)
	require.Len(t, a.CutReasons, 2)
	assert.Equal(t, sensor.Temperature, a.CutReasons[0].Kind)
	assert.Equal(t, sensor.Vibration, a.CutReasons[1].Kind)
}

func TestTierOrderingAndString(t *testing.T) {
	assert.Equal(t, Critical, Max(Warning, Critical))
	assert.Equal(t, Warning, Max(Warning, Normal))
	assert.Equal(t, "WARNING", Warning.String())
	assert.Equal(t, "CRITICAL", Critical.String())
}
