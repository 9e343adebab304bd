// Package units provides shared constants and conversion for running-speed units.
//
// The acquisition cache stores running speed in cm/s, the native unit of the
// treadmill encoder.
package units

import "fmt"

// Unit constants
const (
	CMPS = "cmps"
	MPS  = "mps"
	KMPH = "kmph"
	MPH  = "mph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{CMPS, MPS, KMPH, MPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "cmps, mps, kmph, mph"
}

// Factor returns the multiplier that converts cm/s into targetUnits.
func Factor(targetUnits string) (float64, error) {
	switch targetUnits {
	case CMPS:
		return 1, nil
	case MPS:
		return 0.01, nil
	case KMPH:
		return 0.036, nil
	case MPH:
		return 0.022369362920544, nil
	default:
		return 0, fmt.Errorf("invalid speed units %q (want one of %s)", targetUnits, GetValidUnitsString())
	}
}

// Label returns a short axis label for the unit.
func Label(unit string) string {
	switch unit {
	case CMPS:
		return "cm/s"
	case MPS:
		return "m/s"
	case KMPH:
		return "km/h"
	case MPH:
		return "mph"
	default:
		return unit
	}
}
