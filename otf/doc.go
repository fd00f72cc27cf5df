// Package otf evaluates optical transfer functions (OTFs) of an imaging
// chain on a grid of angular spatial frequencies and combines them into a
// system response.
//
// Each physical degradation (aperture diffraction, detector footprint,
// jitter, drift, turbulence, wavefront error, filtering, user tables) is a
// Source. Chromatic sources are averaged over a Spectrum by
// WeightedByWavelength; the Assembler multiplies all sources into the
// system OTF. Every normalized source, and the system response, equals 1
// at zero frequency.
package otf
