package otf

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Names of the built-in sources, as reported by Source.Name.
const (
	SourceAperture        = "aperture"
	SourceApertureDefocus = "aperture-defocus"
	SourceDefocus         = "defocus"
	SourceDetector        = "detector"
	SourceCTE             = "cte"
	SourceDiffusion       = "diffusion"
	SourceDrift           = "drift"
	SourceJitter          = "jitter"
	SourceGaussian        = "gaussian"
	SourceTDI             = "tdi"
	SourceWavefront       = "wavefront"
	SourceWavefrontRMS    = "wavefront-rms"
	SourceTurbulence      = "turbulence"
	SourceFilter          = "filter"
	SourceRadialTable     = "radial-table"
	SourceXYTable         = "xy-table"
	SourceTable2D         = "table-2d"
)

func requireWavelength(wl float64) error {
	if !(wl > 0) {
		return fmt.Errorf("wavelength %g: %w", wl, ErrInvalidWavelength)
	}
	return nil
}

// CircularAperture is the diffraction OTF of a circular aperture of
// diameter d with relative linear central obscuration eta, at radial
// frequency rho and wavelength wl. eta = 0 gives the unobscured result.
func CircularAperture(rho, wl, d, eta float64) float64 {
	r0 := d / wl // diffraction-limited cutoff (rad^-1)
	x := rho / r0

	a := finiteOrZero((2.0 / math.Pi) * (math.Acos(x) - x*math.Sqrt(1.0-x*x)))
	if eta <= 0 {
		return a
	}

	xe := x / eta
	b := finiteOrZero((2.0 * eta * eta / math.Pi) * (math.Acos(xe) - xe*math.Sqrt(1.0-xe*xe)))

	c1 := 0.0
	if rho < (1.0-eta)*r0/2.0 {
		c1 = -2.0 * eta * eta
	}

	c2 := 0.0
	if rho <= (1.0+eta)*r0/2.0 {
		phi := math.Acos((1.0 + eta*eta - 4.0*x*x) / 2.0 / eta)
		c2 = 2.0*eta*math.Sin(phi)/math.Pi + (1.0+eta*eta)*phi/math.Pi - 2.0*eta*eta
		c2 -= (2.0 * (1.0 - eta*eta) / math.Pi) * math.Atan((1.0+eta)*math.Tan(phi/2.0)/(1.0-eta))
		c2 = finiteOrZero(c2)
	}

	return (a + b + c1 + c2) / (1.0 - eta*eta)
}

// Aperture is obscured circular aperture diffraction.
type Aperture struct {
	Diameter    float64 // effective aperture diameter (m)
	Obscuration float64 // relative linear obscuration (unitless)
}

func (Aperture) Name() string    { return SourceAperture }
func (Aperture) Chromatic() bool { return true }

func (a Aperture) Evaluate(g *FrequencyGrid, wl float64) ([][]complex128, error) {
	if err := requireWavelength(wl); err != nil {
		return nil, err
	}
	if !(a.Diameter > 0) {
		return nil, fmt.Errorf("aperture diameter %g must be positive", a.Diameter)
	}
	if a.Obscuration < 0 || a.Obscuration >= 1 {
		return nil, fmt.Errorf("aperture obscuration %g must be in [0, 1)", a.Obscuration)
	}
	return g.MapReal(func(u, v float64) float64 {
		return CircularAperture(math.Hypot(u, v), wl, a.Diameter, a.Obscuration)
	}), nil
}

// ApertureDefocus is an unobscured circular aperture with a defocus
// aberration (Hopkins, 1955).
type ApertureDefocus struct {
	Diameter    float64 // m
	FocalLength float64 // m
	Defocus     float64 // distance between the geometric and actual focus (m)
}

func (ApertureDefocus) Name() string    { return SourceApertureDefocus }
func (ApertureDefocus) Chromatic() bool { return true }

func (a ApertureDefocus) Evaluate(g *FrequencyGrid, wl float64) ([][]complex128, error) {
	if err := requireWavelength(wl); err != nil {
		return nil, err
	}
	r0 := a.Diameter / wl
	fn := a.FocalLength / a.Diameter
	// optical path difference at the pupil edge
	w20 := 0.5 / (1.0 + 4.0*fn*fn) * a.Defocus

	return g.MapReal(func(u, v float64) float64 {
		rho := math.Hypot(u, v)
		if rho == 0 {
			return 1
		}
		s := 2.0 * rho / r0
		beta := math.Acos(0.5 * s)
		if math.IsNaN(beta) {
			return 0
		}
		if a.Defocus == 0 {
			return (2*beta - math.Sin(2*beta)) / math.Pi
		}
		alpha := 4 * math.Pi / wl * w20 * s
		j := func(n int) float64 { return math.Jn(n, alpha) }
		even := beta*j(1) +
			math.Sin(2*beta)*(j(1)-j(3))/2 -
			math.Sin(4*beta)*(j(3)-j(5))/4 +
			math.Sin(6*beta)*(j(5)-j(7))/6
		odd := math.Sin(beta)*(j(0)-j(2)) -
			math.Sin(3*beta)*(j(2)-j(4))/3 +
			math.Sin(5*beta)*(j(4)-j(6))/5 -
			math.Sin(7*beta)*(j(6)-j(8))/7
		h := 4 / (math.Pi * alpha) * (math.Cos(alpha*0.5*s)*even - math.Sin(alpha*0.5*s)*odd)
		return finiteOrZero(h)
	}), nil
}

// Defocus is the Gaussian approximation to on-axis defocus.
type Defocus struct {
	WX, WY float64 // 1/e blur spot radii (rad)
}

func (Defocus) Name() string    { return SourceDefocus }
func (Defocus) Chromatic() bool { return false }

func (d Defocus) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	k := -math.Pi * math.Pi / 4.0
	return g.MapReal(func(u, v float64) float64 {
		return math.Exp(k * (d.WX*d.WX*u*u + d.WY*d.WY*v*v))
	}), nil
}

// ObjectDomainDefocusRadius is the 1/e axial defocus blur radius (rad) for
// an object at range r when focus is set at range r0.
func ObjectDomainDefocusRadius(d, r, r0 float64) float64 {
	return 0.62 * d * (1.0/r - 1.0/r0)
}

// ImageDomainDefocusRadius is the 1/e axial defocus blur radius (rad) for
// an image-domain focus error dz.
func ImageDomainDefocusRadius(d, dz, f float64) float64 {
	return 0.62 * d * dz / (f * f)
}

// Detector is the spatial integration of the detector footprint,
// optionally aggregated over N×N pixels.
type Detector struct {
	WX, WY      float64 // detector width (m)
	PX, PY      float64 // detector pitch (m); only used when Aggregate > 1
	FocalLength float64 // m
	Aggregate   int     // pixels aggregated per axis; 0 or 1 means none
}

func (Detector) Name() string    { return SourceDetector }
func (Detector) Chromatic() bool { return false }

func (d Detector) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	if !(d.FocalLength > 0) {
		return nil, fmt.Errorf("detector focal length %g must be positive", d.FocalLength)
	}
	f := d.FocalLength
	n := d.Aggregate
	if n < 1 {
		n = 1
	}
	return g.MapReal(func(u, v float64) float64 {
		h := sinc(d.WX*u/f) * sinc(d.WY*v/f)
		if n == 1 {
			return h
		}
		aggU, aggV := 0.0, 0.0
		nf := float64(n)
		for i := 0; i < n; i++ {
			fi := float64(i)
			aggU += math.Cos(2 * math.Pi * (fi*d.PX*u/f - (nf-1)*d.PX*u/2/f))
			aggV += math.Cos(2 * math.Pi * (fi*d.PY*v/f - (nf-1)*d.PY*v/2/f))
		}
		return aggU * aggV / (nf * nf) * h
	}), nil
}

// CTE is blur from charge transfer inefficiency in a CCD.
type CTE struct {
	PX, PY      float64 // detector pitch (m)
	NX, NY      float64 // number of charge transfers
	Phases      float64 // clock phases per transfer
	Efficiency  float64 // charge transfer efficiency
	FocalLength float64 // m
}

func (CTE) Name() string    { return SourceCTE }
func (CTE) Chromatic() bool { return false }

func (c CTE) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	fcn := func(n, pu float64) float64 {
		return math.Exp(-c.Phases * n * (1.0 - c.Efficiency) * (1.0 - math.Cos(2.0*math.Pi*pu/c.FocalLength)))
	}
	return g.MapReal(func(u, v float64) float64 {
		return fcn(c.NX, c.PX*u) * fcn(c.NY, c.PY*v)
	}), nil
}

// Diffusion is minority-carrier diffusion blur in a CCD.
type Diffusion struct {
	Alpha       float64 // spectral diffusion coefficient (m^-1)
	Depletion   float64 // depletion layer width (m)
	Length      float64 // diffusion length (m)
	FocalLength float64 // m
}

func (Diffusion) Name() string    { return SourceDiffusion }
func (Diffusion) Chromatic() bool { return false }

func (d Diffusion) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	fcn := func(xx float64) float64 {
		return 1.0 - math.Exp(-d.Alpha*d.Depletion)/(1.0+d.Alpha*xx)
	}
	norm := fcn(d.Length)
	return g.MapReal(func(u, v float64) float64 {
		k := 2.0 * math.Pi * math.Hypot(u, v) / d.FocalLength
		alrho := math.Sqrt(1.0 / (1.0/(d.Length*d.Length) + k*k))
		return fcn(alrho) / norm
	}), nil
}

// Drift is blur from constant line-of-sight motion during integration.
type Drift struct {
	AX, AY float64 // angular drift during one integration time (rad)
}

func (Drift) Name() string    { return SourceDrift }
func (Drift) Chromatic() bool { return false }

func (d Drift) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	return g.MapReal(func(u, v float64) float64 {
		return sinc(d.AX*u) * sinc(d.AY*v)
	}), nil
}

// Jitter is blur from high-frequency random line-of-sight motion.
type Jitter struct {
	SX, SY float64 // RMS jitter (rad)
}

func (Jitter) Name() string    { return SourceJitter }
func (Jitter) Chromatic() bool { return false }

func (j Jitter) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	k := -2.0 * math.Pi * math.Pi
	return g.MapReal(func(u, v float64) float64 {
		return math.Exp(k * (j.SX*j.SX*u*u + j.SY*j.SY*v*v))
	}), nil
}

// Gaussian is a generic Gaussian blur whose PSF falls to about 0.043 of
// its peak at the given angular extent.
type Gaussian struct {
	BlurX, BlurY float64 // rad
}

func (Gaussian) Name() string    { return SourceGaussian }
func (Gaussian) Chromatic() bool { return false }

func (gs Gaussian) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	return g.MapReal(func(u, v float64) float64 {
		a, b := u*gs.BlurX, v*gs.BlurY
		return math.Exp(-math.Pi * (a*a + b*b))
	}), nil
}

// TDI is blur from a mismatch between time-delay-integration clocking and
// image motion. The response is complex and varies along one axis only.
type TDI struct {
	Width       float64 // detector width along the TDI direction (m)
	Stages      int
	Phases      int
	Beta        float64 // TDI clock rate / image motion rate
	FocalLength float64 // m
	AlongV      bool    // TDI direction is v (rows) instead of u
}

func (TDI) Name() string    { return SourceTDI }
func (TDI) Chromatic() bool { return false }

func (t TDI) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	if t.Stages < 1 || t.Phases < 1 {
		return nil, fmt.Errorf("tdi stages %d and phases %d must be at least 1", t.Stages, t.Phases)
	}
	if !(t.Beta > 0) {
		return nil, fmt.Errorf("tdi rate ratio %g must be positive", t.Beta)
	}
	n := t.Stages * t.Phases
	return g.Map(func(u, v float64) complex128 {
		f := u
		if t.AlongV {
			f = v
		}
		xx := t.Width * f / (t.FocalLength * t.Beta)
		var sum complex128
		for i := 0; i < n; i++ {
			sum += cmplx.Exp(complex(0, -2.0*math.Pi*xx*(t.Beta-1.0)*float64(i)))
		}
		return complex(sinc(xx), 0) * sum / complex(float64(n), 0)
	}), nil
}

// Wavefront is blur from small random pupil-phase errors with a Gaussian
// phase autocorrelation.
type Wavefront struct {
	PhaseVariance float64 // rad², defined at ReferenceWavelength
	// ReferenceWavelength is the wavelength (m) at which PhaseVariance is
	// specified. When positive, the variance is scaled by (ref/λ)².
	ReferenceWavelength float64
	LX, LY              float64 // correlation lengths (m)
}

func (Wavefront) Name() string    { return SourceWavefront }
func (Wavefront) Chromatic() bool { return true }

// Enabled is false for a zero phase variance.
func (w Wavefront) Enabled() bool { return w.PhaseVariance > 0 }

func (w Wavefront) Evaluate(g *FrequencyGrid, wl float64) ([][]complex128, error) {
	if err := requireWavelength(wl); err != nil {
		return nil, err
	}
	if !(w.LX > 0) || !(w.LY > 0) {
		return nil, fmt.Errorf("wavefront correlation lengths %g, %g must be positive", w.LX, w.LY)
	}
	pv := w.PhaseVariance
	if w.ReferenceWavelength > 0 {
		r := w.ReferenceWavelength / wl
		pv *= r * r
	}
	return g.MapReal(func(u, v float64) float64 {
		a, b := u/w.LX, v/w.LY
		autoc := math.Exp(-wl * wl * (a*a + b*b))
		return math.Exp(-pv * (1 - autoc))
	}), nil
}

// WavefrontRMS is the Shannon approximation for an RMS wavefront error.
// It loses accuracy as RMS exceeds about 0.18 waves.
type WavefrontRMS struct {
	Cutoff float64 // diffraction cutoff D/λ (rad^-1)
	RMS    float64 // waves
}

func (WavefrontRMS) Name() string    { return SourceWavefrontRMS }
func (WavefrontRMS) Chromatic() bool { return false }

func (w WavefrontRMS) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	k := (w.RMS / 0.18) * (w.RMS / 0.18)
	return g.MapReal(func(u, v float64) float64 {
		n := math.Hypot(u, v) / w.Cutoff
		return 1.0 - k*(1.0-4.0*(n-0.5)*(n-0.5))
	}), nil
}
