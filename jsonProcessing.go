package main

import (
	"fmt"
	"math"

	json "github.com/KevinWang15/go-json5"
	"github.com/bob-anderson-ok/otfsim/psf"
)

// parseArrayFormat reads a table of [wavelength_nm, weight] pairs.
func parseArrayFormat(data []byte) ([][2]float64, error) {
	var pairs [][2]float64
	err := json.Unmarshal(data, &pairs)
	return pairs, err
}

func getLeafValue(jsonTable map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = jsonTable
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func keyName(path []string) string {
	name := path[0]
	for _, p := range path[1:] {
		name += "." + p
	}
	return name
}

// optionalFloat fills dst when the entry is present. dst keeps its value
// (the default) when the entry is missing.
func optionalFloat(jsonTable map[string]interface{}, dst *float64, path ...string) (string, bool) {
	v, ok := getLeafValue(jsonTable, path...)
	if !ok {
		return "", true
	}
	f, ok := v.(float64)
	if !ok {
		return keyName(path) + ": is not a float64", false
	}
	*dst = f
	return "", true
}

func requiredFloat(jsonTable map[string]interface{}, dst *float64, path ...string) (string, bool) {
	if _, ok := getLeafValue(jsonTable, path...); !ok {
		return keyName(path) + ": not found", false
	}
	return optionalFloat(jsonTable, dst, path...)
}

func optionalInt(jsonTable map[string]interface{}, dst *int, path ...string) (string, bool) {
	f := float64(*dst)
	if msg, ok := optionalFloat(jsonTable, &f, path...); !ok {
		return msg, false
	}
	if f != math.Trunc(f) {
		return keyName(path) + ": is not an integer", false
	}
	*dst = int(f)
	return "", true
}

func optionalString(jsonTable map[string]interface{}, dst *string, path ...string) (string, bool) {
	v, ok := getLeafValue(jsonTable, path...)
	if !ok {
		return "", true
	}
	s, ok := v.(string)
	if !ok {
		return keyName(path) + ": is not a string", false
	}
	*dst = s
	return "", true
}

func optionalBool(jsonTable map[string]interface{}, dst *bool, path ...string) (string, bool) {
	v, ok := getLeafValue(jsonTable, path...)
	if !ok {
		return "", true
	}
	b, ok := v.(bool)
	if !ok {
		return keyName(path) + ": is not a bool", false
	}
	*dst = b
	return "", true
}

// toMatrix converts a decoded JSON array of numeric arrays.
func toMatrix(v interface{}) ([][]float64, bool) {
	rows, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	m := make([][]float64, len(rows))
	for i, r := range rows {
		cols, ok := r.([]interface{})
		if !ok {
			return nil, false
		}
		m[i] = make([]float64, len(cols))
		for j, c := range cols {
			m[i][j], ok = c.(float64)
			if !ok {
				return nil, false
			}
		}
	}
	return m, true
}

// fieldCheck is one validation step; validateJsonFileAndFillScenario stops
// at the first one that fails.
type fieldCheck func() (string, bool)

func runChecks(checks ...fieldCheck) (string, bool) {
	for _, c := range checks {
		if msg, ok := c(); !ok {
			return msg, false
		}
	}
	return "", true
}

func validateJsonFileAndFillScenario(jsonTable map[string]interface{}, scn *Scenario) (string, bool) {
	msg := "No problem found in json file" // Initialize msg to presumed success.

	// Defaults for fields that may be missing
	scn.WindowSizePixels = 500
	scn.GridSizePoints = 256
	scn.GridSpanOverCutoff = 2.0
	scn.Atmosphere.HighAltitudeWind = 21.0
	scn.CropPolicy = psf.DefaultCropPolicy

	if m, ok := runChecks(
		func() (string, bool) { return optionalBool(jsonTable, &scn.ShowInput, "show_input_bool") },
		func() (string, bool) { return optionalBool(jsonTable, &scn.Debug, "debug_bool") },
		func() (string, bool) { return optionalBool(jsonTable, &scn.LogJSON, "log_json_bool") },
		func() (string, bool) { return optionalInt(jsonTable, &scn.WindowSizePixels, "window_size_pixels") },
		func() (string, bool) { return optionalString(jsonTable, &scn.Title, "title") },
		func() (string, bool) { return optionalInt(jsonTable, &scn.GridSizePoints, "grid_size_points") },
		func() (string, bool) {
			return optionalFloat(jsonTable, &scn.GridSpanOverCutoff, "grid_span_over_cutoff")
		},
		func() (string, bool) {
			return optionalFloat(jsonTable, &scn.MTFSliceAngleDegrees, "mtf_slice_angle_degrees")
		},
	); !ok {
		return m, false
	}
	if scn.GridSizePoints < 8 {
		return "grid_size_points: must be at least 8", false
	}
	if !(scn.GridSpanOverCutoff > 0) {
		return "grid_span_over_cutoff: must be positive", false
	}

	// Spectrum: exactly one of the three forms
	if m, ok := runChecks(
		func() (string, bool) {
			return optionalFloat(jsonTable, &scn.ObservationWavelengthNm, "observation_wavelength_nm")
		},
		func() (string, bool) {
			return optionalString(jsonTable, &scn.PathToSpectralWeights, "path_to_spectral_weights_file")
		},
	); !ok {
		return m, false
	}
	if v, ok := getLeafValue(jsonTable, "spectral_weights"); ok {
		m, ok := toMatrix(v)
		if !ok {
			return "spectral_weights: is not an array of [wavelength_nm, weight] pairs", false
		}
		for _, pair := range m {
			if len(pair) != 2 {
				return "spectral_weights: is not an array of [wavelength_nm, weight] pairs", false
			}
			scn.SpectralWeights = append(scn.SpectralWeights, [2]float64{pair[0], pair[1]})
		}
	}
	given := 0
	if scn.ObservationWavelengthNm != 0 {
		given++
	}
	if scn.PathToSpectralWeights != "" {
		given++
	}
	if len(scn.SpectralWeights) > 0 {
		given++
	}
	if given != 1 {
		msg = "exactly one of observation_wavelength_nm, spectral_weights or path_to_spectral_weights_file is required"
		return msg, false
	}

	// The sensor group is required
	if _, ok := getLeafValue(jsonTable, "sensor"); !ok {
		return "sensor group not found and is required.", false
	}
	s := &scn.Sensor
	var pitch, detWidth, jitter, corrLength, pvWavelengthNm float64
	if m, ok := runChecks(
		func() (string, bool) { return requiredFloat(jsonTable, &s.Diameter, "sensor", "aperture_diameter_m") },
		func() (string, bool) { return requiredFloat(jsonTable, &s.FocalLength, "sensor", "focal_length_m") },
		func() (string, bool) { return requiredFloat(jsonTable, &pitch, "sensor", "pixel_pitch_m") },
		func() (string, bool) {
			return requiredFloat(jsonTable, &scn.IntegrationTimeSec, "sensor", "integration_time_sec")
		},
		func() (string, bool) { return optionalFloat(jsonTable, &s.Obscuration, "sensor", "obscuration_ratio") },
		func() (string, bool) { return optionalFloat(jsonTable, &detWidth, "sensor", "detector_width_m") },
		func() (string, bool) { return optionalFloat(jsonTable, &jitter, "sensor", "jitter_rad") },
		func() (string, bool) { return optionalFloat(jsonTable, &s.DriftRateX, "sensor", "drift_x_rad_per_sec") },
		func() (string, bool) { return optionalFloat(jsonTable, &s.DriftRateY, "sensor", "drift_y_rad_per_sec") },
		func() (string, bool) { return optionalInt(jsonTable, &s.TDIStages, "sensor", "tdi_stages") },
		func() (string, bool) {
			return optionalFloat(jsonTable, &s.PhaseVariance, "sensor", "phase_variance_rad2")
		},
		func() (string, bool) {
			return optionalFloat(jsonTable, &pvWavelengthNm, "sensor", "phase_variance_wavelength_nm")
		},
		func() (string, bool) {
			return optionalFloat(jsonTable, &corrLength, "sensor", "correlation_length_m")
		},
		func() (string, bool) { return optionalFloat(jsonTable, &scn.FocusErrorM, "sensor", "focus_error_m") },
	); !ok {
		return m, false
	}
	if !(s.Diameter > 0) || !(s.FocalLength > 0) || !(pitch > 0) {
		return "sensor: aperture_diameter_m, focal_length_m and pixel_pitch_m must be positive", false
	}
	if detWidth == 0 {
		detWidth = pitch // 100% fill factor
	}
	s.PitchX, s.PitchY = pitch, pitch
	s.DetectorWidthX, s.DetectorWidthY = detWidth, detWidth
	s.JitterX, s.JitterY = jitter, jitter
	s.CorrelationLengthX, s.CorrelationLengthY = corrLength, corrLength
	s.PhaseVarianceWavelength = pvWavelengthNm * 1e-9
	if s.PhaseVariance > 0 && !(pvWavelengthNm > 0 && corrLength > 0) {
		msg = "sensor: phase_variance_rad2 needs phase_variance_wavelength_nm and correlation_length_m"
		return msg, false
	}
	if v, ok := getLeafValue(jsonTable, "sensor", "filter_kernel"); ok {
		k, ok := toMatrix(v)
		if !ok || len(k) == 0 {
			return "sensor.filter_kernel: is not a 2D array of numbers", false
		}
		s.FilterKernel = k
	}

	// The geometry group is required
	if _, ok := getLeafValue(jsonTable, "geometry"); !ok {
		return "geometry group not found and is required.", false
	}
	if m, ok := runChecks(
		func() (string, bool) { return requiredFloat(jsonTable, &scn.Atmosphere.Altitude, "geometry", "altitude_m") },
		func() (string, bool) { return optionalFloat(jsonTable, &scn.SlantRangeM, "geometry", "slant_range_m") },
		func() (string, bool) { return optionalFloat(jsonTable, &scn.GroundRangeM, "geometry", "ground_range_m") },
		func() (string, bool) { return optionalFloat(jsonTable, &scn.FocusRangeM, "geometry", "focus_range_m") },
	); !ok {
		return m, false
	}
	if scn.FocusRangeM < 0 {
		return "geometry.focus_range_m: must not be negative", false
	}
	if (scn.SlantRangeM == 0) == (scn.GroundRangeM == 0) {
		return "geometry: exactly one of slant_range_m or ground_range_m is required", false
	}

	// Atmosphere is optional; without it there is no turbulence
	if m, ok := runChecks(
		func() (string, bool) { return optionalFloat(jsonTable, &scn.Atmosphere.Cn2At1m, "atmosphere", "cn2_at_1m") },
		func() (string, bool) {
			return optionalFloat(jsonTable, &scn.Atmosphere.HighAltitudeWind, "atmosphere", "high_altitude_wind_m_per_sec")
		},
		func() (string, bool) {
			return optionalFloat(jsonTable, &scn.Atmosphere.AircraftSpeed, "atmosphere", "aircraft_speed_m_per_sec")
		},
	); !ok {
		return m, false
	}
	if scn.Atmosphere.Cn2At1m < 0 {
		return "atmosphere.cn2_at_1m: must not be negative", false
	}

	// Optional tabulated responses
	if m, ok := runChecks(
		func() (string, bool) { return optionalString(jsonTable, &scn.PathToRadialTable, "path_to_radial_table") },
		func() (string, bool) { return optionalString(jsonTable, &scn.PathToXYTable, "path_to_xy_table") },
		func() (string, bool) { return optionalString(jsonTable, &scn.PathTo2DTable, "path_to_2d_table") },
	); !ok {
		return m, false
	}

	if v, ok := getLeafValue(jsonTable, "disable_sources"); ok {
		names, ok := v.([]interface{})
		if !ok {
			return "disable_sources: is not an array of strings", false
		}
		for _, n := range names {
			name, ok := n.(string)
			if !ok {
				return "disable_sources: is not an array of strings", false
			}
			scn.DisabledSources = append(scn.DisabledSources, name)
		}
	}

	// The reference group is optional. Without it only the system response
	// and kernel are produced.
	_, scn.ReferenceGiven = getLeafValue(jsonTable, "reference")
	if scn.ReferenceGiven {
		if _, ok := getLeafValue(jsonTable, "reference", "path_to_image"); !ok {
			return "reference.path_to_image: not found", false
		}
		if m, ok := runChecks(
			func() (string, bool) {
				return optionalString(jsonTable, &scn.PathToReferenceImage, "reference", "path_to_image")
			},
			func() (string, bool) { return requiredFloat(jsonTable, &scn.ReferenceGsdM, "reference", "gsd_m") },
		); !ok {
			return m, false
		}
		if !(scn.ReferenceGsdM > 0) {
			return "reference.gsd_m: must be positive", false
		}
	}

	// Kernel support search and boundary handling
	var padding string
	if m, ok := runChecks(
		func() (string, bool) {
			return optionalFloat(jsonTable, &scn.CropPolicy.Threshold, "kernel", "energy_threshold")
		},
		func() (string, bool) { return optionalInt(jsonTable, &scn.CropPolicy.StartSize, "kernel", "start_size") },
		func() (string, bool) { return optionalInt(jsonTable, &scn.CropPolicy.Step, "kernel", "step") },
		func() (string, bool) { return optionalString(jsonTable, &padding, "kernel", "padding_mode") },
	); !ok {
		return m, false
	}
	if err := scn.CropPolicy.Validate(); err != nil {
		return fmt.Sprintf("kernel: %v", err), false
	}
	if padding != "" {
		p, err := psf.ParsePaddingMode(padding)
		if err != nil {
			return fmt.Sprintf("kernel.padding_mode: %v", err), false
		}
		scn.Padding = p
	}

	return msg, true
}
