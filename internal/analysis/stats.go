package analysis

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// DistributionStats summarizes a weighted size distribution. Sizes act
// as sample positions and the dependent variable (intensity, volume or
// number percent) as weights, which matches how light-scattering
// distributions are reported.
type DistributionStats struct {
	Count        int     `json:"count"`
	WeightedMean float64 `json:"weightedMean"`
	HarmonicMean float64 `json:"harmonicMean"`
	StdDev       float64 `json:"stdDev"`
	D10          float64 `json:"d10"`
	D50          float64 `json:"d50"`
	D90          float64 `json:"d90"`
	Span         float64 `json:"span"`
}

var errEmptyDistribution = errors.New("analysis: empty distribution")

// Distribution computes weighted summary statistics over positions x
// with weights w. Inputs are copied and sorted; callers keep ownership.
func Distribution(x, w []float64) (DistributionStats, error) {
	if len(x) == 0 {
		return DistributionStats{}, errEmptyDistribution
	}
	if len(x) != len(w) {
		return DistributionStats{}, fmt.Errorf("analysis: length mismatch: %d positions, %d weights", len(x), len(w))
	}
	var total float64
	for i, wi := range w {
		if wi < 0 {
			return DistributionStats{}, fmt.Errorf("analysis: negative weight %g at index %d", wi, i)
		}
		total += wi
	}
	if total == 0 {
		return DistributionStats{}, errors.New("analysis: all weights are zero")
	}

	xs := append([]float64(nil), x...)
	ws := append([]float64(nil), w...)
	stat.SortWeighted(xs, ws)

	s := DistributionStats{
		Count:        len(xs),
		WeightedMean: stat.Mean(xs, ws),
		HarmonicMean: stat.HarmonicMean(xs, ws),
		StdDev:       stat.StdDev(xs, ws),
		D10:          stat.Quantile(0.10, stat.Empirical, xs, ws),
		D50:          stat.Quantile(0.50, stat.Empirical, xs, ws),
		D90:          stat.Quantile(0.90, stat.Empirical, xs, ws),
	}
	if s.D50 != 0 {
		s.Span = (s.D90 - s.D10) / s.D50
	}
	return s, nil
}

// SpectrumStats computes DistributionStats for a spectrum's x/y pair.
func SpectrumStats(sp *Spectrum) (DistributionStats, error) {
	if sp == nil {
		return DistributionStats{}, errEmptyDistribution
	}
	xv, okX := sp.Variables.X()
	yv, okY := sp.Variables.Y()
	if !okX || !okY {
		return DistributionStats{}, fmt.Errorf("analysis: spectrum %q has no x/y pair", sp.ID)
	}
	return Distribution(xv.Data, yv.Data)
}
