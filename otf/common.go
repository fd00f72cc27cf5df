package otf

import "fmt"

// Sensor holds the optical and detector parameters used by CommonSources.
type Sensor struct {
	Diameter    float64 // effective aperture diameter (m)
	Obscuration float64 // relative linear central obscuration
	FocalLength float64 // m

	DetectorWidthX, DetectorWidthY float64 // m
	PitchX, PitchY                 float64 // m

	JitterX, JitterY       float64 // RMS jitter (rad)
	DriftRateX, DriftRateY float64 // line-of-sight drift (rad/s)
	TDIStages              int     // 0 or 1 means no TDI

	// PhaseVariance is the wavefront phase variance (rad²) at
	// PhaseVarianceWavelength (m).
	PhaseVariance           float64
	PhaseVarianceWavelength float64
	CorrelationLengthX      float64 // m
	CorrelationLengthY      float64 // m

	// FilterKernel is applied to the sensor image. nil or 1×1 means none.
	FilterKernel [][]float64
}

// IFOV is the detector instantaneous field of view along x (rad).
func (s Sensor) IFOV() float64 { return s.PitchX / s.FocalLength }

// Cutoff is the diffraction cutoff frequency D/λ (rad^-1).
func (s Sensor) Cutoff(wavelength float64) float64 { return s.Diameter / wavelength }

func (s Sensor) stages() float64 {
	if s.TDIStages < 1 {
		return 1
	}
	return float64(s.TDIStages)
}

// Scenario describes the atmosphere and platform motion.
type Scenario struct {
	Altitude         float64 // sensor height above the target (m)
	HighAltitudeWind float64 // m/s
	Cn2At1m          float64 // m^(-2/3); 0 turns turbulence off
	AircraftSpeed    float64 // apparent atmospheric velocity (m/s)
}

// CommonSources builds the usual catalog for a sensor viewing a target at
// slantRange with integration time intTime (s): aperture, turbulence,
// detector, jitter, drift, wavefront and filter, in that order.
func CommonSources(sensor Sensor, scn Scenario, slantRange, intTime float64) ([]Source, error) {
	if !(sensor.FocalLength > 0) {
		return nil, fmt.Errorf("sensor focal length %g must be positive", sensor.FocalLength)
	}
	dwell := intTime * sensor.stages()
	turb, err := NewTurbulence(TurbulenceParams{
		Diameter:         sensor.Diameter,
		Altitude:         scn.Altitude,
		SlantRange:       slantRange,
		HighAltitudeWind: scn.HighAltitudeWind,
		Cn2At1m:          scn.Cn2At1m,
		Dwell:            dwell,
		Speed:            scn.AircraftSpeed,
	})
	if err != nil {
		return nil, fmt.Errorf("turbulence: %w", err)
	}
	return []Source{
		Aperture{Diameter: sensor.Diameter, Obscuration: sensor.Obscuration},
		turb,
		Detector{WX: sensor.DetectorWidthX, WY: sensor.DetectorWidthY, FocalLength: sensor.FocalLength},
		Jitter{SX: sensor.JitterX, SY: sensor.JitterY},
		Drift{AX: sensor.DriftRateX * dwell, AY: sensor.DriftRateY * dwell},
		Wavefront{
			PhaseVariance:       sensor.PhaseVariance,
			ReferenceWavelength: sensor.PhaseVarianceWavelength,
			LX:                  sensor.CorrelationLengthX,
			LY:                  sensor.CorrelationLengthY,
		},
		Filter{Kernel: sensor.FilterKernel, IFOV: sensor.IFOV()},
	}, nil
}
