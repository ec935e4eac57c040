// Package units defines the display units the API can emit and the
// conversions from storage units. Everything below the API layer works
// in nanometres and degrees Celsius; conversion happens once, on the
// way out.
package units

import (
	"slices"
	"strings"
)

// Size units.
const (
	NM = "nm"
	UM = "um"
)

// Temperature units.
const (
	Celsius = "c"
	Kelvin  = "k"
)

var (
	ValidSizeUnits        = []string{NM, UM}
	ValidTemperatureUnits = []string{Celsius, Kelvin}
)

func IsValidSizeUnit(unit string) bool {
	return slices.Contains(ValidSizeUnits, unit)
}

func IsValidTemperatureUnit(unit string) bool {
	return slices.Contains(ValidTemperatureUnits, unit)
}

// GetValidSizeUnitsString renders the accepted size units for error
// messages.
func GetValidSizeUnitsString() string {
	return strings.Join(ValidSizeUnits, ", ")
}

// ConvertSize converts a stored size in nanometres to targetUnits.
// Unknown units pass the value through unchanged.
func ConvertSize(sizeNm float64, targetUnits string) float64 {
	if targetUnits == UM {
		return sizeNm / 1000
	}
	return sizeNm
}

// ConvertSizes converts a whole size array from nanometres to the
// target units, returning a fresh slice.
func ConvertSizes(sizesNm []float64, targetUnits string) []float64 {
	out := make([]float64, len(sizesNm))
	for i, s := range sizesNm {
		out[i] = ConvertSize(s, targetUnits)
	}
	return out
}

// ConvertTemperature converts a stored temperature in Celsius to
// targetUnits. Unknown units pass the value through unchanged.
func ConvertTemperature(tempC float64, targetUnits string) float64 {
	if targetUnits == Kelvin {
		return tempC + 273.15
	}
	return tempC
}
