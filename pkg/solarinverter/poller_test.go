package solarinverter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/aggregator"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestApply_NotConfiguredMeansNoPV(t *testing.T) {
	p := NewPoller(NewInverter(Config{}))
	reading := &types.MeterReading{GridPowerW: 400, PVPowerW: 12}

	p.Apply(reading, now)

	assert.Equal(t, 0.0, reading.PVPowerW)
	assert.Equal(t, types.Numeric(0), reading.PVEnergyTotalWh)
	assert.Equal(t, 400.0, reading.GridPowerW)
}

func TestApply_FreshData(t *testing.T) {
	p := NewPoller(NewInverter(Config{Ip: "192.0.2.1", ModbusPort: 502, WlanConnectionId: "preconfigured"}))
	p.latest = SolarData{PowerW: 2750, TotalEnergyWh: 1_234_560, ReadAt: now.Add(-10 * time.Second)}

	reading := &types.MeterReading{}
	p.Apply(reading, now)

	assert.Equal(t, 2750.0, reading.PVPowerW)
	assert.Equal(t, types.Numeric(1_234_560), reading.PVEnergyTotalWh)
}

func TestApply_NegativeStandbyPower(t *testing.T) {
	reading := &types.MeterReading{}
	SolarData{PowerW: -5, TotalEnergyWh: 10, ReadAt: now}.apply(reading, now)
	assert.Equal(t, 0.0, reading.PVPowerW)
}

func TestApply_StaleDataKeepsLastCounter(t *testing.T) {
	p := NewPoller(NewInverter(Config{Ip: "192.0.2.1", ModbusPort: 502, WlanConnectionId: "preconfigured"}))
	p.latest = SolarData{PowerW: 2750, TotalEnergyWh: 1_234_560, ReadAt: now.Add(-2 * MaxDataAge)}

	reading := &types.MeterReading{}
	p.Apply(reading, now)

	assert.Equal(t, types.Numeric(1_234_560), reading.PVEnergyTotalWh)
	assert.Equal(t, 0.0, reading.PVPowerW)
}

func TestApply_NeverReadLeavesCounterAbsent(t *testing.T) {
	p := NewPoller(NewInverter(Config{Ip: "192.0.2.1", ModbusPort: 502, WlanConnectionId: "preconfigured"}))

	reading := &types.MeterReading{GridPowerW: 300}
	p.Apply(reading, now)

	assert.False(t, reading.PVEnergyTotalWh.Present)
	assert.Equal(t, 0.0, reading.PVPowerW)
}

// The inverter sleeps at night, the meter does not. Grid energy from the
// dark hours must still count.
func TestApply_NightGapKeepsGridEnergy(t *testing.T) {
	p := NewPoller(NewInverter(Config{Ip: "192.0.2.1", ModbusPort: 502, WlanConnectionId: "preconfigured"}))
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// last read before the inverter went dark yesterday evening
	p.latest = SolarData{TotalEnergyWh: 10_000, ReadAt: day.Add(-3 * time.Hour)}

	steps := []struct {
		at       time.Duration
		gridWh   float64
		inverter *SolarData
	}{
		{at: 0, gridWh: 1000},
		{at: 8 * time.Hour, gridWh: 3000, inverter: &SolarData{PowerW: 1500, TotalEnergyWh: 10_500}},
		{at: 20 * time.Hour, gridWh: 5000, inverter: &SolarData{PowerW: 10, TotalEnergyWh: 14_000}},
		{at: 23 * time.Hour, gridWh: 6000},
	}

	var readings []types.MeterReading
	for _, step := range steps {
		at := day.Add(step.at)
		if step.inverter != nil {
			data := *step.inverter
			data.ReadAt = at
			p.latest = data
		}
		reading := types.MeterReading{
			Timestamp:            at,
			GridEnergyTotalWh:    types.Numeric(step.gridWh),
			GridEnergyReturnedWh: types.Numeric(0),
		}
		p.Apply(&reading, at)
		readings = append(readings, reading)
	}

	result := aggregator.Aggregate(readings, aggregator.Options{})
	assert.Equal(t, 4, result.ValidCount)
	assert.Zero(t, result.RejectedCount)
	assert.Equal(t, 5000.0, result.Totals.ConsumptionWh)
	assert.Equal(t, 4000.0, result.Totals.ProductionWh)
}

func TestRun_NotConfiguredReturns(t *testing.T) {
	p := NewPoller(NewInverter(Config{}))
	done := make(chan struct{})
	go func() {
		p.Run(context.Background(), time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for an unconfigured inverter")
	}
}
