package dls

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/lumen-data/particle.report/internal/paramtree"
	"github.com/lumen-data/particle.report/internal/timeutil"
)

// SyntheticGenerator produces parameter trees shaped like real analyzer
// export records, for fixture archives and demos. Distributions are
// lognormal intensity peaks on a log-spaced size grid, with the volume
// and number weightings derived from the intensity weighting the way
// the instrument software does (d³ and d⁶ rescaling).
type SyntheticGenerator struct {
	sampleName   string
	recordNumber int
	start        time.Time

	// Configuration
	Classes        int     // size classes in each distribution
	MinSizeNm      float64 // lower edge of the size grid
	MaxSizeNm      float64 // upper edge of the size grid
	MeanSizeNm     float64 // target peak diameter
	GeometricSD    float64 // lognormal spread of the peak (>1)
	TemperatureC   float64 // cell temperature
	MaterialName   string
	DispersantName string
	SerialNumber   string

	// Internal state
	rng *rand.Rand
}

// NewSyntheticGenerator creates a generator for the named sample. The
// defaults describe a well-behaved ~100 nm latex standard in water.
func NewSyntheticGenerator(sampleName string) *SyntheticGenerator {
	return &SyntheticGenerator{
		sampleName:     sampleName,
		start:          time.Now(),
		Classes:        50,
		MinSizeNm:      10,
		MaxSizeNm:      1000,
		MeanSizeNm:     105,
		GeometricSD:    1.35,
		TemperatureC:   25,
		MaterialName:   "Polystyrene latex",
		DispersantName: "Water",
		SerialNumber:   "MAL1178276",
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextRecord generates the next record's parameter tree. Each call
// advances the record number and spaces the measurement timestamps a
// run apart.
func (g *SyntheticGenerator) NextRecord() *paramtree.Node {
	g.recordNumber++
	measuredAt := g.start.Add(time.Duration(g.recordNumber-1) * 90 * time.Second)

	// Jitter the peak a little per record so repeats are not identical.
	mean := g.MeanSizeNm * (1 + 0.04*(g.rng.Float64()-0.5))

	sizes := g.sizeGrid()
	intensity := lognormalPercent(sizes, mean, g.GeometricSD)
	volume := rescalePercent(sizes, intensity, 3)
	number := rescalePercent(sizes, intensity, 6)

	zAvg := harmonicMean(sizes, intensity)
	pdi := math.Exp(math.Pow(math.Log(g.GeometricSD), 2)) - 1
	countRate := 300 + g.rng.Float64()*150

	return &paramtree.Node{
		Name: "Size Measurement Record",
		Children: []*paramtree.Node{
			{Name: "Sample Description", Value: paramtree.String(fmt.Sprintf("%s run %d", g.sampleName, g.recordNumber))},
			{Name: "Record Number", Value: paramtree.Int(int64(g.recordNumber))},
			{Name: "Measurement Date And Time", Value: paramtree.Int(timeutil.ToDotNetTicks(measuredAt))},
			{Name: "Measurement Position", Value: paramtree.Float(4.65)},
			{Name: "Result Quality", Value: paramtree.String("Good")},
			{Name: "Software Version", Value: paramtree.String("2.3.1.11")},
			{Name: "Sample Settings", Children: []*paramtree.Node{
				{Name: "Sample Name", Value: paramtree.String(g.sampleName)},
				{Name: "Material Settings", Children: []*paramtree.Node{
					{Name: "Material Name", Value: paramtree.String(g.MaterialName)},
					{Name: "Material RI", Value: paramtree.Float(1.59)},
					{Name: "Material Absorption", Value: paramtree.Float(0.01)},
				}},
				{Name: "Dispersant Settings", Children: []*paramtree.Node{
					{Name: "Dispersant Name", Value: paramtree.String(g.DispersantName)},
					{Name: "Dispersant RI", Value: paramtree.Float(1.33)},
					{Name: "Dispersant Viscosity", Value: paramtree.Float(0.8872)},
				}},
			}},
			{Name: "Instrument Settings", Children: []*paramtree.Node{
				{Name: "Instrument Serial Number", Value: paramtree.String(g.SerialNumber)},
				{Name: "Detection Angle", Value: paramtree.Float(173)},
				{Name: "Laser Wavelength", Value: paramtree.Float(632.8)},
				{Name: "Attenuator", Value: paramtree.Int(int64(6 + g.rng.Intn(3)))},
				{Name: "Temperature", Value: paramtree.Float(g.TemperatureC)},
				{Name: "Measurement Duration", Value: paramtree.Int(60)},
				{Name: "Number Of Runs", Value: paramtree.Int(12)},
				{Name: "Equilibration Time", Value: paramtree.Float(120)},
			}},
			{Name: "Size Analysis", Children: []*paramtree.Node{
				{Name: "Sizes", Value: paramtree.FloatArray(sizes)},
				{Name: "Intensity", Value: paramtree.FloatArray(intensity)},
				{Name: "Volume", Value: paramtree.FloatArray(volume)},
				{Name: "Number", Value: paramtree.FloatArray(number)},
				{Name: "Cumulants", Children: []*paramtree.Node{
					{Name: "Z-Average", Value: paramtree.Float(round3(zAvg))},
					{Name: "Polydispersity Index", Value: paramtree.Float(round4(pdi))},
					{Name: "Fit Error", Value: paramtree.Float(round6(0.0005 + g.rng.Float64()*0.001))},
					{Name: "Intercept", Value: paramtree.Float(round3(0.92 + g.rng.Float64()*0.04))},
				}},
				{Name: "Derived Mean Count Rate", Value: paramtree.Float(round1(countRate))},
			}},
		},
	}
}

// sizeGrid returns Classes log-spaced diameters from MinSizeNm to
// MaxSizeNm inclusive.
func (g *SyntheticGenerator) sizeGrid() []float64 {
	sizes := make([]float64, g.Classes)
	ratio := math.Log(g.MaxSizeNm / g.MinSizeNm)
	for i := range sizes {
		frac := float64(i) / float64(g.Classes-1)
		sizes[i] = round2(g.MinSizeNm * math.Exp(frac*ratio))
	}
	return sizes
}

// lognormalPercent evaluates a lognormal weighting over the grid and
// normalizes it to sum to 100.
func lognormalPercent(sizes []float64, mean, gsd float64) []float64 {
	w := make([]float64, len(sizes))
	lnSD := math.Log(gsd)
	for i, d := range sizes {
		z := (math.Log(d) - math.Log(mean)) / lnSD
		w[i] = math.Exp(-z * z / 2)
	}
	return normalizePercent(w)
}

// rescalePercent converts an intensity weighting to a volume (power 3)
// or number (power 6) weighting by dividing out the scattering
// dependence on diameter, then renormalizes.
func rescalePercent(sizes, intensity []float64, power float64) []float64 {
	w := make([]float64, len(intensity))
	for i, v := range intensity {
		w[i] = v / math.Pow(sizes[i], power)
	}
	return normalizePercent(w)
}

func normalizePercent(w []float64) []float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum == 0 {
		return w
	}
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = round4(v / sum * 100)
	}
	return out
}

// harmonicMean is the intensity-weighted harmonic mean diameter, the
// quantity the cumulant z-average estimates.
func harmonicMean(sizes, weights []float64) float64 {
	var wSum, invSum float64
	for i, w := range weights {
		wSum += w
		invSum += w / sizes[i]
	}
	if invSum == 0 {
		return 0
	}
	return wSum / invSum
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
