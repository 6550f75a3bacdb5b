package types

import (
	"encoding/json"
	"time"
)

// MeterReading is one telemetry sample as delivered by the interpreter API.
// Cumulative counters are Measurements since the wire may carry them as
// null, strings or garbage; the validator decides what to keep.
type MeterReading struct {
	Timestamp time.Time `json:"timestamp"`

	// Instantaneous power, W. Grid is signed: positive = import, negative = export.
	GridPowerW float64 `json:"grid_power_w"`
	PVPowerW   float64 `json:"pv_power_w"`

	// Per phase net grid power, W
	L1PowerW float64 `json:"l1_power_w"`
	L2PowerW float64 `json:"l2_power_w"`
	L3PowerW float64 `json:"l3_power_w"`

	// Cumulative counters, Wh. Reset only on device reboot.
	GridEnergyTotalWh    Measurement `json:"grid_energy_total_wh"`
	GridEnergyReturnedWh Measurement `json:"grid_energy_returned_wh"`
	PVEnergyTotalWh      Measurement `json:"pv_energy_total_wh"`

	// Electrical info
	VoltageV    float64     `json:"voltage_v"`
	L1VoltageV  float64     `json:"l1_voltage_v"`
	L2VoltageV  float64     `json:"l2_voltage_v"`
	L3VoltageV  float64     `json:"l3_voltage_v"`
	ReactiveVAr Measurement `json:"reactive_var"`
	PowerFactor Measurement `json:"power_factor"`
	FrequencyHz Measurement `json:"frequency_hz"`

	CurrentTariff int    `json:"current_tariff"`
	MeterSerial   string `json:"meter_serial"`
}

func (r *MeterReading) ToJsonBytes() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return data
}

// MeterReadingFromJsonBytes returns nil when the payload is not a reading at all.
// Malformed individual fields are kept as invalid Measurements.
func MeterReadingFromJsonBytes(data []byte) *MeterReading {
	var reading MeterReading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil
	}
	return &reading
}

// ValidReading is a MeterReading that passed validation.
// Optional fields missing on the wire are 0.
type ValidReading struct {
	Timestamp time.Time `json:"timestamp"`

	GridPowerW float64 `json:"grid_power_w"`
	PVPowerW   float64 `json:"pv_power_w"`

	GridEnergyTotalWh    float64 `json:"grid_energy_total_wh"`
	GridEnergyReturnedWh float64 `json:"grid_energy_returned_wh"`
	PVEnergyTotalWh      float64 `json:"pv_energy_total_wh"`

	VoltageV    float64 `json:"voltage_v"`
	ReactiveVAr float64 `json:"reactive_var"`
	PowerFactor float64 `json:"power_factor"`
	FrequencyHz float64 `json:"frequency_hz"`
}
