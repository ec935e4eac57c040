package units

import (
	"math"
	"testing"
)

func TestConvertSize(t *testing.T) {
	tests := []struct {
		name     string
		sizeNm   float64
		units    string
		want     float64
	}{
		{"489.144 nm to um", 489.144, UM, 0.489144},
		{"489.144 nm to nm", 489.144, NM, 489.144},
		{"unknown units default to nm", 489.144, "unknown", 489.144},
		{"0 nm to um", 0.0, UM, 0.0},
		{"micron-scale aggregate 2500 nm to um", 2500.0, UM, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSize(tt.sizeNm, tt.units)
			if math.Abs(result-tt.want) > 1e-9 {
				t.Errorf("ConvertSize(%f, %s) = %f, want %f", tt.sizeNm, tt.units, result, tt.want)
			}
		})
	}
}

func TestConvertSizes(t *testing.T) {
	in := []float64{100, 1000, 10000}
	out := ConvertSizes(in, UM)

	want := []float64{0.1, 1, 10}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Errorf("ConvertSizes[%d] = %f, want %f", i, out[i], want[i])
		}
	}

	// Input slice must stay untouched.
	if in[0] != 100 {
		t.Errorf("input mutated: %v", in)
	}
}

func TestConvertTemperature(t *testing.T) {
	tests := []struct {
		name     string
		tempC    float64
		units    string
		want     float64
	}{
		{"25 C to K", 25.0, Kelvin, 298.15},
		{"25 C to C", 25.0, Celsius, 25.0},
		{"unknown units default to C", 25.0, "unknown", 25.0},
		{"0 C to K", 0.0, Kelvin, 273.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertTemperature(tt.tempC, tt.units)
			if math.Abs(result-tt.want) > 1e-9 {
				t.Errorf("ConvertTemperature(%f, %s) = %f, want %f", tt.tempC, tt.units, result, tt.want)
			}
		})
	}
}

func TestIsValidSizeUnit(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		want     bool
	}{
		{"nm is valid", NM, true},
		{"um is valid", UM, true},
		{"empty is invalid", "", false},
		{"mm is invalid", "mm", false},
		{"uppercase is invalid", "NM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidSizeUnit(tt.unit); got != tt.want {
				t.Errorf("IsValidSizeUnit(%q) = %v, want %v", tt.unit, got, tt.want)
			}
		})
	}
}

func TestIsValidTemperatureUnit(t *testing.T) {
	if !IsValidTemperatureUnit(Celsius) || !IsValidTemperatureUnit(Kelvin) {
		t.Error("expected c and k to be valid")
	}
	if IsValidTemperatureUnit("f") {
		t.Error("expected f to be invalid")
	}
}

func TestGetValidSizeUnitsString(t *testing.T) {
	// API error messages embed this string.
	if got := GetValidSizeUnitsString(); got != "nm, um" {
		t.Errorf("GetValidSizeUnitsString() = %q, want %q", got, "nm, um")
	}
}
