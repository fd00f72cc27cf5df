package otf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// EarthRadius is the mean equatorial radius used for slant-path geometry (m).
const EarthRadius = 6378.164e3

// SlantPathSamples is the number of samples taken along a slant path when
// integrating the structure-parameter profile.
var SlantPathSamples = 10000

// referenceWavelength is where r0 is integrated before λ^(6/5) scaling.
const referenceWavelength = 1.0e-6

// HufnagelValley returns the refractive index structure parameter Cn²
// (m^(-2/3)) at height h (m) for high-altitude wind speed v (m/s) and
// ground-level value cn2At1m. HV 5/7 is cn2At1m = 1.7e-14, v = 21.
func HufnagelValley(h, v, cn2At1m float64) float64 {
	return 5.94e-53*(v/27.0)*(v/27.0)*math.Pow(h, 10.0)*math.Exp(-h/1000.0) +
		2.7e-16*math.Exp(-h/1500.0) +
		cn2At1m*math.Exp(-h/100.0)
}

// SlantRange is the line-of-sight distance between a target at height
// hTarget and a sensor at height hSensor separated by groundRange along a
// spherical earth (all m).
func SlantRange(hTarget, hSensor, groundRange float64) float64 {
	a := EarthRadius + hTarget
	b := EarthRadius + hSensor
	theta := groundRange / EarthRadius
	return math.Sqrt(a*a + b*b - 2*a*b*math.Cos(theta))
}

// SlantPath samples a slant path of length slantRange between a target at
// hTarget and a sensor at hSensor. zPath runs from the target (0) to the
// sensor (slantRange); hPath holds the height above ground at each sample.
func SlantPath(hTarget, hSensor, slantRange float64, n int) (zPath, hPath []float64, err error) {
	if !(slantRange > 0) {
		return nil, nil, fmt.Errorf("slant range %g must be positive", slantRange)
	}
	if n < 2 {
		return nil, nil, fmt.Errorf("slant path needs at least 2 samples, got %d", n)
	}
	a := EarthRadius + hSensor
	t := EarthRadius + hTarget
	cosNadir := (a*a + slantRange*slantRange - t*t) / (2 * a * slantRange)
	cosNadir = math.Max(-1, math.Min(1, cosNadir))

	zPath = make([]float64, n)
	floats.Span(zPath, 0, slantRange)
	hPath = make([]float64, n)
	for i, z := range zPath {
		d := slantRange - z // distance from the sensor
		c := math.Sqrt(a*a + d*d - 2*a*d*cosNadir)
		hPath[i] = c - EarthRadius
	}
	return zPath, hPath, nil
}

// CoherenceDiameter is Fried's coherence diameter r0 (m) for spherical wave
// propagation at wavelength wl along zPath, where cn2 holds the structure
// parameter at each sample. zPath starts at the target.
func CoherenceDiameter(wl float64, zPath, cn2 []float64) (float64, error) {
	if err := requireWavelength(wl); err != nil {
		return 0, err
	}
	if len(zPath) < 2 || len(zPath) != len(cn2) {
		return 0, fmt.Errorf("coherence path needs matching samples, got %d z and %d cn2", len(zPath), len(cn2))
	}
	zMax := floats.Max(zPath)
	if !(zMax > 0) {
		return 0, errors.New("coherence path has zero length")
	}
	integrand := make([]float64, len(zPath))
	for i, z := range zPath {
		integrand[i] = cn2[i] * math.Pow(z/zMax, 5.0/3.0)
	}
	sp := integrate.Trapezoidal(zPath, integrand)
	k := 2 * math.Pi / wl
	return math.Pow(sp*0.423*k*k, -3.0/5.0), nil
}

// TurbulenceMTF is the long (alpha = 0) or short (alpha = 0.5) exposure
// turbulence OTF at radial frequency rho.
func TurbulenceMTF(rho, wl, d, r0, alpha float64) float64 {
	return math.Exp(-3.44 * math.Pow(wl*rho/r0, 5.0/3.0) *
		(1 - alpha*math.Pow(wl*rho/d, 1.0/3.0)))
}

// WindspeedTurbulenceMTF blends short and long exposure turbulence by the
// ratio of the dwell time to the turbulence decorrelation time.
func WindspeedTurbulenceMTF(rho, wl, d, r0, dwell, vel float64) float64 {
	w := math.Exp(-vel * dwell / r0)
	return w*TurbulenceMTF(rho, wl, d, r0, 0.5) + (1-w)*TurbulenceMTF(rho, wl, d, r0, 0.0)
}

// TurbulenceParams describes a slant path through a Hufnagel-Valley
// atmosphere from a ground target to a sensor.
type TurbulenceParams struct {
	Diameter         float64 // aperture diameter (m)
	Altitude         float64 // sensor height above the target (m)
	SlantRange       float64 // m
	HighAltitudeWind float64 // m/s
	Cn2At1m          float64 // m^(-2/3); 0 disables turbulence
	Dwell            float64 // integration time, including TDI stages (s)
	Speed            float64 // apparent atmospheric velocity (m/s)
}

// Turbulence is the polychromatic atmospheric turbulence source.
type Turbulence struct {
	TurbulenceParams
	r0At1um float64
}

// NewTurbulence integrates the profile once at 1 µm; CoherenceDiameter then
// scales it by λ^(6/5).
func NewTurbulence(p TurbulenceParams) (*Turbulence, error) {
	t := &Turbulence{TurbulenceParams: p}
	if !t.Enabled() {
		return t, nil
	}
	zPath, hPath, err := SlantPath(0, p.Altitude, p.SlantRange, SlantPathSamples)
	if err != nil {
		return nil, err
	}
	cn2 := make([]float64, len(hPath))
	for i, h := range hPath {
		cn2[i] = HufnagelValley(h, p.HighAltitudeWind, p.Cn2At1m)
	}
	t.r0At1um, err = CoherenceDiameter(referenceWavelength, zPath, cn2)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (*Turbulence) Name() string    { return SourceTurbulence }
func (*Turbulence) Chromatic() bool { return true }

// Enabled is false when the ground-level structure parameter is zero.
func (t *Turbulence) Enabled() bool { return t.Cn2At1m > 0 }

func (t *Turbulence) CoherenceDiameter(wl float64) (float64, error) {
	if err := requireWavelength(wl); err != nil {
		return 0, err
	}
	if !t.Enabled() {
		return NoTurbulenceR0, nil
	}
	return t.r0At1um * math.Pow(wl/referenceWavelength, 6.0/5.0), nil
}

func (t *Turbulence) EvaluateWithCoherence(g *FrequencyGrid, wl, r0 float64) ([][]complex128, error) {
	if err := requireWavelength(wl); err != nil {
		return nil, err
	}
	if !(r0 > 0) {
		return nil, fmt.Errorf("coherence diameter %g must be positive", r0)
	}
	return g.MapReal(func(u, v float64) float64 {
		return WindspeedTurbulenceMTF(math.Hypot(u, v), wl, t.Diameter, r0, t.Dwell, t.Speed)
	}), nil
}

func (t *Turbulence) Evaluate(g *FrequencyGrid, wl float64) ([][]complex128, error) {
	r0, err := t.CoherenceDiameter(wl)
	if err != nil {
		return nil, err
	}
	return t.EvaluateWithCoherence(g, wl, r0)
}
