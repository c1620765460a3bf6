package render

import (
	"fmt"
	"math"
	"strconv"
)

// PowerClass is the color bucket for the active power value.
type PowerClass int

const (
	PowerNormal PowerClass = iota
	PowerMedium
	PowerHigh
	PowerMax
)

func (c PowerClass) String() string {
	switch c {
	case PowerNormal:
		return "normal"
	case PowerMedium:
		return "medium"
	case PowerHigh:
		return "high"
	case PowerMax:
		return "max"
	}
	return "unknown"
}

// TempClass is the color bucket for the device temperature.
type TempClass int

const (
	TempGreen TempClass = iota
	TempYellow
	TempOrange
	TempRed
)

// Thresholds holds the configurable bucket tables. Each table is a strictly
// increasing list of upper bounds; a value equal to a bound stays in the
// lower bucket.
type Thresholds struct {
	Power [3]float64 // W
	Temp  [3]float64 // °C
}

// DefaultThresholds mirrors the factory tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Power: [3]float64{1500, 2500, 3500},
		Temp:  [3]float64{60, 65, 70},
	}
}

// FormatPower renders watts for display. At and above 1000 W the value
// switches to kilowatts with one decimal; below it is a rounded integer.
func FormatPower(watts float64) (value, unit string) {
	if watts >= 1000 {
		return fmt.Sprintf("%.1f", roundTenth(watts/1000)), "kW"
	}
	return strconv.Itoa(int(math.Round(watts))), "W"
}

// roundTenth rounds to one decimal, half away from zero. %.1f alone rounds
// the underlying binary float, so 4.35 (stored just below the half) would
// print as 4.3.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// ClassifyPower buckets watts against the power threshold table.
func ClassifyPower(watts float64, t Thresholds) PowerClass {
	switch {
	case watts <= t.Power[0]:
		return PowerNormal
	case watts <= t.Power[1]:
		return PowerMedium
	case watts <= t.Power[2]:
		return PowerHigh
	default:
		return PowerMax
	}
}

// FormatVoltage renders volts as a rounded integer with unit.
func FormatVoltage(v float64) string {
	return fmt.Sprintf("%dV", int(math.Round(v)))
}

// FormatCurrent renders amps with one decimal place and unit.
func FormatCurrent(a float64) string {
	return fmt.Sprintf("%.1fA", roundTenth(a))
}

// FormatTemperature renders °C as a rounded integer with a degree symbol.
func FormatTemperature(c float64) string {
	return fmt.Sprintf("%d°C", int(math.Round(c)))
}

// ClassifyTemperature buckets the rounded temperature against the table.
func ClassifyTemperature(c float64, t Thresholds) TempClass {
	r := math.Round(c)
	switch {
	case r <= t.Temp[0]:
		return TempGreen
	case r <= t.Temp[1]:
		return TempYellow
	case r <= t.Temp[2]:
		return TempOrange
	default:
		return TempRed
	}
}

// SignalLevel buckets an RSSI reading into 0 (worst/disconnected) .. 4
// (best). A boundary-exact reading takes the better bucket.
func SignalLevel(dbm int) int {
	switch {
	case dbm >= -55:
		return 4
	case dbm >= -65:
		return 3
	case dbm >= -75:
		return 2
	case dbm >= -85:
		return 1
	default:
		return 0
	}
}
