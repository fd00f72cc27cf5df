package otf

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// NoTurbulenceR0 is the band coherence diameter (m) reported when no
// turbulence source is enabled.
const NoTurbulenceR0 = 1e6

// Source is one independent, linear, spatially invariant degradation stage.
type Source interface {
	Name() string
	// Chromatic reports whether Evaluate depends on wavelength. The
	// Assembler evaluates chromatic sources once per wavelength through
	// WeightedByWavelength and achromatic sources once.
	Chromatic() bool
	// Evaluate returns the response on g. Achromatic sources ignore
	// wavelength.
	Evaluate(g *FrequencyGrid, wavelength float64) ([][]complex128, error)
}

// Switchable is implemented by sources whose parameters can make them an
// identity stage (for example turbulence with a zero ground-level Cn²).
type Switchable interface {
	Enabled() bool
}

// TurbulenceSource is a source that needs a per-wavelength coherence
// diameter. The Assembler obtains r0 from CoherenceDiameter and hands it
// unmodified to EvaluateWithCoherence.
type TurbulenceSource interface {
	Source
	CoherenceDiameter(wavelength float64) (float64, error)
	EvaluateWithCoherence(g *FrequencyGrid, wavelength, r0 float64) ([][]complex128, error)
}

// Component is the evaluated response of one source.
type Component struct {
	Name     string
	Response [][]complex128
	Enabled  bool
}

// SystemOTF is the cascade of all components.
type SystemOTF struct {
	System     [][]complex128
	Components []Component
	// R0Band is the spectrally weighted coherence diameter (m) of the first
	// enabled turbulence source, or NoTurbulenceR0.
	R0Band float64
}

// Component returns the response of the named component.
func (s *SystemOTF) Component(name string) ([][]complex128, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c.Response, true
		}
	}
	return nil, false
}

// Assembler composes a catalog of sources into a system transfer function.
type Assembler struct {
	Spectrum Spectrum
	Sources  []Source
	Logger   logrus.FieldLogger

	disabled map[string]bool
}

// NewAssembler returns an Assembler for the given spectrum and sources.
func NewAssembler(spectrum Spectrum, sources ...Source) *Assembler {
	return &Assembler{Spectrum: spectrum, Sources: sources}
}

// Add appends a source to the catalog.
func (a *Assembler) Add(src Source) {
	a.Sources = append(a.Sources, src)
}

// Disable turns the named sources into identity stages.
func (a *Assembler) Disable(names ...string) {
	if a.disabled == nil {
		a.disabled = make(map[string]bool)
	}
	for _, n := range names {
		a.disabled[n] = true
	}
}

func (a *Assembler) enabled(src Source) bool {
	if a.disabled[src.Name()] {
		return false
	}
	if s, ok := src.(Switchable); ok {
		return s.Enabled()
	}
	return true
}

func (a *Assembler) logger() logrus.FieldLogger {
	if a.Logger == nil {
		return logrus.StandardLogger()
	}
	return a.Logger
}

// Assemble evaluates every source on g and returns their elementwise
// product. Disabled sources contribute an all-ones grid of the same shape.
func (a *Assembler) Assemble(g *FrequencyGrid) (*SystemOTF, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := a.Spectrum.Validate(); err != nil {
		return nil, err
	}
	rows, cols := g.Shape()
	log := a.logger()

	out := &SystemOTF{
		Components: make([]Component, len(a.Sources)),
		R0Band:     NoTurbulenceR0,
	}
	r0s := make([]float64, len(a.Sources))

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range a.Sources {
		eg.Go(func() error {
			c := Component{Name: src.Name(), Enabled: a.enabled(src)}
			if !c.Enabled {
				c.Response = Ones(rows, cols)
				out.Components[i] = c
				return nil
			}
			h, r0, err := a.evaluate(g, src)
			if err != nil {
				return fmt.Errorf("source %q: %w", src.Name(), err)
			}
			if err := checkShape(src.Name(), h, rows, cols); err != nil {
				return err
			}
			c.Response = h
			out.Components[i] = c
			r0s[i] = r0
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out.System = Ones(rows, cols)
	haveR0 := false
	for i, c := range out.Components {
		for r := range c.Response {
			for k := range c.Response[r] {
				out.System[r][k] *= c.Response[r][k]
			}
		}
		if r0s[i] > 0 && !haveR0 {
			out.R0Band = r0s[i]
			haveR0 = true
		}
		log.WithFields(logrus.Fields{
			"source":  c.Name,
			"enabled": c.Enabled,
			"dc":      real(AtZero(c.Response)),
		}).Debug("evaluated degradation source")
	}
	return out, nil
}

// evaluate returns the response of src and, for turbulence sources, the
// band coherence diameter.
func (a *Assembler) evaluate(g *FrequencyGrid, src Source) ([][]complex128, float64, error) {
	if ts, ok := src.(TurbulenceSource); ok {
		h, err := WeightedByWavelength(a.Spectrum, func(wl float64) ([][]complex128, error) {
			r0, err := ts.CoherenceDiameter(wl)
			if err != nil {
				return nil, err
			}
			return ts.EvaluateWithCoherence(g, wl, r0)
		})
		if err != nil {
			return nil, 0, err
		}
		r0band, err := WeightedScalar(a.Spectrum, ts.CoherenceDiameter)
		if err != nil {
			return nil, 0, err
		}
		return h, r0band, nil
	}
	if src.Chromatic() {
		h, err := WeightedByWavelength(a.Spectrum, func(wl float64) ([][]complex128, error) {
			return src.Evaluate(g, wl)
		})
		return h, 0, err
	}
	h, err := src.Evaluate(g, 0)
	return h, 0, err
}
