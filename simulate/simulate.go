// Package simulate applies a system transfer function to an ideal
// reference image to emulate what a sensor with a given instantaneous field
// of view would record.
//
// The reference image is assumed to view the world along the same line of
// sight as the simulated sensor, with a known ground sample distance and a
// single range to the object of interest. Scene depth and perspective
// changes are not modeled.
package simulate

import (
	"fmt"
	"math"
	"runtime"

	"github.com/bob-anderson-ok/otfsim/psf"
	"github.com/bob-anderson-ok/otfsim/resample"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ReferenceIFOV is the angular sample spacing (rad) of an image with
// ground sample distance gsd viewed from range rng.
func ReferenceIFOV(gsd, rng float64) float64 {
	return 2 * math.Atan(gsd/(2*rng))
}

// SamplingLimit is the largest reference ground sample distance (m) at
// range rng that still samples a system with diffraction cutoff cutoff
// (rad^-1) adequately. ApplyOTFToImage does not enforce it.
func SamplingLimit(rng, cutoff float64) float64 {
	return rng / (4 * cutoff)
}

// Result is a simulated image and the kernel that produced it, both at
// the sensor sample spacing.
type Result struct {
	Image  [][]float64
	Kernel [][]float64

	IFOV          float64 // sensor sample spacing (rad)
	ReferenceIFOV float64 // reference image sample spacing (rad)

	// EnergyFraction and Converged describe the kernel support search.
	EnergyFraction float64
	Converged      bool
}

// Simulator holds the kernel and boundary policies. The zero value uses
// psf.DefaultCropPolicy and the standard logger, and replicates edge pixels
// of the reference scene during convolution.
type Simulator struct {
	Logger  logrus.FieldLogger
	Policy  psf.CropPolicy
	Padding psf.PaddingMode
}

// New returns a Simulator that replicates edge pixels and logs to logger.
func New(logger logrus.FieldLogger) *Simulator {
	return &Simulator{Logger: logger, Policy: psf.DefaultCropPolicy, Padding: psf.PadReplicate}
}

func (s *Simulator) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

// ApplyOTFToImage blurs img (ground sample distance gsd at range rng, both
// m) with the system response h (frequency spacing df, rad^-1) and
// resamples the result to the sensor spacing ifov (rad). The input image
// is not modified.
func (s *Simulator) ApplyOTFToImage(img [][]float64, gsd, rng float64, h [][]complex128, df, ifov float64) (*Result, error) {
	out, err := s.ApplyOTFToBands([][][]float64{img}, gsd, rng, h, df, ifov)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ApplyOTFToBands is ApplyOTFToImage for a multi-band image. The kernel is
// synthesized once and the bands are processed concurrently.
func (s *Simulator) ApplyOTFToBands(bands [][][]float64, gsd, rng float64, h [][]complex128, df, ifov float64) ([]*Result, error) {
	if len(bands) == 0 {
		return nil, psf.ErrEmptyInput
	}
	if err := positive("ground sample distance", gsd); err != nil {
		return nil, err
	}
	if err := positive("range", rng); err != nil {
		return nil, err
	}
	if err := positive("ifov", ifov); err != nil {
		return nil, err
	}
	log := s.logger()
	ifovIn := ReferenceIFOV(gsd, rng)

	k, err := psf.Synthesize(h, df, ifovIn, s.Policy)
	if err != nil {
		return nil, fmt.Errorf("synthesizing kernel: %w", err)
	}
	fields := logrus.Fields{
		"reference_ifov": ifovIn,
		"ifov":           ifov,
		"kernel_size":    len(k.Data),
		"energy":         k.EnergyFraction,
	}
	if k.Converged {
		log.WithFields(fields).Debug("kernel synthesized")
	} else {
		log.WithFields(fields).Warn("kernel crop did not reach the energy threshold; using the widest candidate")
	}

	kernel, err := resample.Resample2D(k.Data, ifovIn, ifov)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(bands))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, band := range bands {
		g.Go(func() error {
			blurred, err := psf.Convolve(band, k.Data, psf.ConvSame, s.Padding)
			if err != nil {
				return fmt.Errorf("band %d: %w", i, err)
			}
			sim, err := resample.Resample2D(blurred, ifovIn, ifov)
			if err != nil {
				return fmt.Errorf("band %d: %w", i, err)
			}
			results[i] = &Result{
				Image:          sim,
				Kernel:         clone(kernel),
				IFOV:           ifov,
				ReferenceIFOV:  ifovIn,
				EnergyFraction: k.EnergyFraction,
				Converged:      k.Converged,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"bands": len(bands),
		"rows":  len(results[0].Image),
		"cols":  len(results[0].Image[0]),
	}).Debug("image simulated")
	return results, nil
}

// ApplyOTFToImage runs a zero-value Simulator.
func ApplyOTFToImage(img [][]float64, gsd, rng float64, h [][]complex128, df, ifov float64) (*Result, error) {
	var s Simulator
	return s.ApplyOTFToImage(img, gsd, rng, h, df, ifov)
}

func clone(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for y := range m {
		out[y] = append([]float64(nil), m[y]...)
	}
	return out
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%s %g: %w", name, v, psf.ErrInvalidSampling)
	}
	return nil
}
