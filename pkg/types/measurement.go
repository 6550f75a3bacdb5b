package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Measurement is a numeric field that may be absent or malformed.
// A present but unparseable value is kept as NaN.
type Measurement struct {
	Value   float64
	Present bool
}

// Numeric wraps a known value.
func Numeric(v float64) Measurement {
	return Measurement{Value: v, Present: true}
}

// IsFinite reports whether the measurement holds a usable number.
func (m Measurement) IsFinite() bool {
	return m.Present && !math.IsNaN(m.Value) && !math.IsInf(m.Value, 0)
}

// OrZero returns the value, or 0 for absent and non-finite measurements.
func (m Measurement) OrZero() float64 {
	if !m.IsFinite() {
		return 0
	}
	return m.Value
}

func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.IsFinite() {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON never fails, so one bad field cannot drop a whole reading.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Measurement{}
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*m = Measurement{Value: math.NaN(), Present: true}
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v = math.NaN()
	}
	*m = Measurement{Value: v, Present: true}
	return nil
}
