// Package analysis holds normalized measurement collections: sets of
// spectra with typed numeric variables, scalar metadata, and
// instrument settings. The converter fills an Analysis; storage and the
// API read from it. The container itself is domain-neutral — it never
// inspects variable symbols or metadata keys.
package analysis

// Variable is one named, unit-tagged numeric array of a spectrum.
type Variable struct {
	Symbol      string    `json:"symbol"`
	Label       string    `json:"label"`
	Units       string    `json:"units"`
	Data        []float64 `json:"data"`
	IsDependent bool      `json:"isDependent"`
}

// VariableSet maps a one-letter symbol to its variable. A valid set
// always carries "x" (independent) and "y" (first dependent); the
// converter enforces that before pushing.
type VariableSet map[string]Variable

// X returns the independent variable.
func (vs VariableSet) X() (Variable, bool) {
	v, ok := vs["x"]
	return v, ok
}

// Y returns the first dependent variable.
func (vs VariableSet) Y() (Variable, bool) {
	v, ok := vs["y"]
	return v, ok
}

// SpectrumOptions carries the per-spectrum fields supplied alongside the
// variable set on push.
type SpectrumOptions struct {
	ID       string
	Title    string
	DataType string
	Meta     map[string]any
}

// Spectrum is one measurement record in normalized form.
type Spectrum struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	DataType  string         `json:"dataType"`
	Variables VariableSet    `json:"variables"`
	Meta      map[string]any `json:"meta,omitempty"`

	// Settings is attached after the push (the acquisition settings are
	// not part of the spectral data proper). Stored opaquely so the
	// container needs no knowledge of the instrument.
	Settings any `json:"settings,omitempty"`
}

// Analysis is an ordered collection of spectra from one source file.
type Analysis struct {
	ID      string      `json:"id"`
	Label   string      `json:"label,omitempty"`
	Spectra []*Spectrum `json:"spectra"`
}

// New returns an empty collection with the given identity.
func New(id, label string) *Analysis {
	return &Analysis{ID: id, Label: label}
}

// PushSpectrum appends one spectrum built from the given variables and
// options.
func (a *Analysis) PushSpectrum(vars VariableSet, opts SpectrumOptions) {
	a.Spectra = append(a.Spectra, &Spectrum{
		ID:        opts.ID,
		Title:     opts.Title,
		DataType:  opts.DataType,
		Variables: vars,
		Meta:      opts.Meta,
	})
}

// Last returns the most recently pushed spectrum, or nil when empty.
// Callers use it to attach settings right after a push.
func (a *Analysis) Last() *Spectrum {
	if len(a.Spectra) == 0 {
		return nil
	}
	return a.Spectra[len(a.Spectra)-1]
}

// Len reports the number of spectra in the collection.
func (a *Analysis) Len() int { return len(a.Spectra) }
