package esmutils

import "math"

// No negative values
func KwToW(kw float64) float64 {
	if kw < 0 {
		return 0
	}
	return math.Round(kw * 1000)
}

func WToKw(w float64) float64 {
	return w / 1000
}

// Meter registers are kWh with 3 decimals, so Wh are whole numbers.
// No negative values
func KwhToWh(kwh float64) float64 {
	if kwh < 0 {
		return 0
	}
	return math.Round(kwh * 1000)
}

func WhToKwh(wh float64) float64 {
	return wh / 1000
}

// NetGridW is signed: positive when importing from the grid.
func NetGridW(consumptionKw, productionKw float64) float64 {
	return KwToW(consumptionKw) - KwToW(productionKw)
}
